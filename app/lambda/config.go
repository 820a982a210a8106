package lambda

// EventSource represents the source of a lambda event.
type EventSource string

const (
	// EventSourceCloudFront represents a CloudFront edge event. The
	// rewritten request is returned to CloudFront.
	EventSourceCloudFront EventSource = "CLOUDFRONT"

	// EventSourceApiGatewayV1 represents an API Gateway v1 request.
	EventSourceApiGatewayV1 EventSource = "API_GW_V1"

	// EventSourceApiGatewayV2 represents an API Gateway v2 request.
	EventSourceApiGatewayV2 EventSource = "API_GW_V2"

	// EventSourceAlb represents an Application Load Balancer request.
	EventSourceAlb EventSource = "ALB"
)

func (p EventSource) String() string {
	return string(p)
}

type Config struct {
	// EventSource is the source of the AWS Lambda event.
	EventSource EventSource `conf:"lambda_event_source"`
}

package deploy

import (
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudfront"
	"github.com/aws/aws-sdk-go/service/cloudfront/cloudfrontiface"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"golang.org/x/net/http2"
)

// Clients bundles the AWS APIs used during deployment.
type Clients struct {
	S3         s3iface.S3API
	Uploader   s3manageriface.UploaderAPI
	IAM        iamiface.IAMAPI
	Lambda     lambdaiface.LambdaAPI
	CloudFront cloudfrontiface.CloudFrontAPI
}

// OpenSession opens an AWS session for region using the default
// credential chain.
func OpenSession(region string) (*session.Session, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 20 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	return session.NewSession(&aws.Config{
		Region:     aws.String(region),
		MaxRetries: aws.Int(5),
		HTTPClient: &http.Client{Transport: tr},
	})
}

// NewClients creates the service clients for sess.
func NewClients(sess *session.Session) Clients {
	return Clients{
		S3:         s3.New(sess),
		Uploader:   s3manager.NewUploader(sess),
		IAM:        iam.New(sess),
		Lambda:     lambda.New(sess),
		CloudFront: cloudfront.New(sess),
	}
}

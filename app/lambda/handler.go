package lambda

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/getsentry/sentry-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/edgeprefix/edge"
	"github.com/lambda-feedback/edgeprefix/internal/server"
)

// LambdaHandlerParams represents the parameters required for
// the Lambda handler.
type LambdaHandlerParams struct {
	fx.In

	// Config is the configuration for the Lambda handler.
	Config Config

	// Rewriter handles CloudFront edge events.
	Rewriter edge.Handler

	// Routes are served for proxied event sources.
	Routes []*server.Route `group:"routes"`

	// Context is the context for the Lambda handler.
	Context context.Context

	// Logger is the logger for the Lambda handler.
	Logger *zap.Logger
}

type LambdaHandler struct {
	config   Config
	ctx      context.Context
	cancel   context.CancelFunc
	rewriter edge.Handler
	routes   []*server.Route
	log      *zap.Logger
}

// NewLambdaHandler creates a new instance of LambdaHandler
// with the given parameters.
func NewLambdaHandler(params LambdaHandlerParams) *LambdaHandler {
	ctx, cancel := context.WithCancel(params.Context)

	return &LambdaHandler{
		config:   params.Config,
		ctx:      ctx,
		cancel:   cancel,
		rewriter: params.Rewriter,
		routes:   params.Routes,
		log:      params.Logger,
	}
}

// NewLifecycleHandler creates a new instance of LambdaHandler
// with the given parameters and attaches lifecycle hooks to
// start and stop the handler.
func NewLifecycleHandler(params LambdaHandlerParams, lc fx.Lifecycle) *LambdaHandler {
	handler := NewLambdaHandler(params)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return handler.Start()
		},
		OnStop: func(context.Context) error {
			handler.Shutdown()
			return nil
		},
	})
	return handler
}

// Start starts the Lambda runtime client in a new goroutine. An
// error is returned if the event source is unknown.
func (s *LambdaHandler) Start() error {
	handler, err := s.getHandlerFunction()
	if err != nil {
		return err
	}

	s.log.Debug("using lambda event source", zap.Stringer("event_source", s.config.EventSource))

	go lambda.StartWithOptions(handler, lambda.WithContext(s.ctx))

	return nil
}

// Shutdown cancels the execution of the LambdaHandler.
func (s *LambdaHandler) Shutdown() {
	s.cancel()
}

// HandleEdge rewrites the request of a CloudFront edge event. Failures
// are reported to sentry and returned to the runtime, which fails the
// invocation.
func (s *LambdaHandler) HandleEdge(
	ctx context.Context,
	payload json.RawMessage,
) (*edge.Request, error) {
	request, err := s.rewriter.HandleJSON(ctx, payload)
	if err != nil {
		s.log.Error("failed to handle edge event", zap.Error(err))
		sentry.CaptureException(err)
		return nil, err
	}

	return request, nil
}

// getHandlerFunction returns the appropriate handler function
// based on the configured EventSource.
func (s *LambdaHandler) getHandlerFunction() (any, error) {
	switch s.config.EventSource {
	case EventSourceCloudFront, "":
		return s.HandleEdge, nil
	case EventSourceApiGatewayV1:
		return httpadapter.New(server.NewMux(s.routes)).ProxyWithContext, nil
	case EventSourceApiGatewayV2:
		return httpadapter.NewV2(server.NewMux(s.routes)).ProxyWithContext, nil
	case EventSourceAlb:
		return httpadapter.NewALB(server.NewMux(s.routes)).ProxyWithContext, nil
	default:
		return nil, fmt.Errorf("invalid event source: %s", s.config.EventSource)
	}
}

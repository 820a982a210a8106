package edge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/edgeprefix/edge/schema"
)

// DefaultPrefix is the path segment prepended to every request uri.
const DefaultPrefix = "/content"

// RewriteConfig configures the rewriter.
type RewriteConfig struct {
	// Prefix is prepended verbatim to the request uri.
	Prefix string `conf:"prefix"`
}

// Handler handles raw edge events.
type Handler interface {
	HandleJSON(ctx context.Context, payload json.RawMessage) (*Request, error)
}

// Callback receives the outcome of an invocation.
type Callback func(err error, req *Request)

// RewriterParams defines the dependencies for the rewriter.
type RewriterParams struct {
	fx.In

	Config RewriteConfig

	Log *zap.Logger
}

// Rewriter prepends a fixed prefix to the uri of edge requests.
type Rewriter struct {
	prefix string
	schema *schema.Schema
	log    *zap.Logger
}

var _ Handler = (*Rewriter)(nil)

// NewRewriter creates a new rewriter. An empty prefix selects
// DefaultPrefix.
func NewRewriter(params RewriterParams) (*Rewriter, error) {
	eventSchema, err := schema.NewEventSchema()
	if err != nil {
		return nil, err
	}

	prefix := params.Config.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Rewriter{
		prefix: prefix,
		schema: eventSchema,
		log:    log,
	}, nil
}

// Prefix returns the configured prefix.
func (r *Rewriter) Prefix() string {
	return r.prefix
}

// Rewrite prepends the prefix to the uri of req in place and returns
// req. Applying it twice prefixes twice.
func (r *Rewriter) Rewrite(req *Request) *Request {
	req.URI = r.prefix + req.URI
	return req
}

// Handle rewrites the request of the first record of evt.
func (r *Rewriter) Handle(ctx context.Context, evt *Event) (*Request, error) {
	req, err := RequestFromEvent(evt)
	if err != nil {
		r.log.Debug("rejecting event", zap.Error(err))
		return nil, err
	}

	original := req.URI
	r.Rewrite(req)

	if ce := r.log.Check(zap.DebugLevel, "rewrote request uri"); ce != nil {
		ce.Write(
			zap.String("uri", original),
			zap.String("rewritten", req.URI),
			zap.String("method", req.Method()),
			zap.String("host", req.Headers().Get("host")),
			zap.String("querystring", req.QueryString()),
			zap.String("client_ip", req.ClientIP()),
		)
	}

	return req, nil
}

// HandleJSON validates and decodes a raw event, then rewrites it.
func (r *Rewriter) HandleJSON(ctx context.Context, payload json.RawMessage) (*Request, error) {
	if err := r.validate(payload); err != nil {
		r.log.Debug("rejecting event", zap.Error(err))
		return nil, err
	}

	evt, err := DecodeEvent(payload)
	if err != nil {
		r.log.Debug("rejecting event", zap.Error(err))
		return nil, err
	}

	return r.Handle(ctx, evt)
}

// Invoke runs Handle and reports the outcome to done. done is called
// exactly once, also when the rewrite panics. A panic raised by done
// itself is not recovered.
func (r *Rewriter) Invoke(ctx context.Context, evt *Event, done Callback) {
	completed := false

	defer func() {
		p := recover()
		if p == nil {
			return
		}

		if completed {
			panic(p)
		}

		completed = true
		done(fmt.Errorf("%w: %v", ErrRewritePanicked, p), nil)
	}()

	req, err := r.Handle(ctx, evt)

	completed = true
	done(err, req)
}

func (r *Rewriter) validate(payload []byte) error {
	res, err := r.schema.Validate(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}

	return malformed("%s", strings.Join(msgs, "; "))
}

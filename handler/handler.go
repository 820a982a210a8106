package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/edgeprefix/config"
	"github.com/lambda-feedback/edgeprefix/edge"
)

var (
	ErrInvalidMethod = errors.New("invalid method")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrReadBody      = errors.New("failed to read body")
)

var wellKnownErrors = map[error]int{
	ErrInvalidMethod:       http.StatusMethodNotAllowed,
	ErrUnauthorized:        http.StatusUnauthorized,
	ErrReadBody:            http.StatusBadRequest,
	edge.ErrMalformedEvent: http.StatusBadRequest,
}

type RewriteHandlerParams struct {
	fx.In

	Handler edge.Handler
	Config  config.Config
	Log     *zap.Logger
}

func NewRewriteHandler(params RewriteHandlerParams) *RewriteHandler {
	return &RewriteHandler{
		handler: params.Handler,
		config:  params.Config,
		log:     params.Log,
	}
}

// RewriteHandler accepts an edge event over http and responds with
// the rewritten request.
type RewriteHandler struct {
	handler edge.Handler
	config  config.Config
	log     *zap.Logger
}

func (h *RewriteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	)

	if r.Method != http.MethodPost {
		log.Debug("invalid method")
		writeError(w, ErrInvalidMethod)
		return
	}

	// Check for authorization
	if h.config.Auth.Key != "" && r.Header.Get("api-key") != h.config.Auth.Key {
		log.Debug("unauthorized request")
		writeError(w, ErrUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read body", zap.Error(err))
		writeError(w, ErrReadBody)
		return
	}

	// Rewrite the request
	request, err := h.handler.HandleJSON(r.Context(), body)
	if err != nil {
		log.Debug("failed to handle event", zap.Error(err))
		writeError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, request); err != nil {
		log.Debug("failed to write response", zap.Error(err))
	}
}

// HealthHandler reports that the server is up.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getErrorStatusCode returns the status code for the given error.
func getErrorStatusCode(err error) int {
	for known, status := range wellKnownErrors {
		if errors.Is(err, known) {
			return status
		}
	}

	return http.StatusInternalServerError
}

type errorResponse struct {
	Message string `json:"message"`
}

// writeError writes the error envelope for err.
func writeError(w http.ResponseWriter, err error) {
	_ = writeJSON(w, getErrorStatusCode(err), struct {
		Error errorResponse `json:"error"`
	}{
		Error: errorResponse{Message: err.Error()},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, err = w.Write(body)
	return err
}

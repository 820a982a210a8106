package handler

import (
	"net/http"

	"github.com/lambda-feedback/edgeprefix/internal/server"
)

func NewRewriteRoute(handler *RewriteHandler) server.RouteResult {
	return server.AsRoute("/rewrite", handler)
}

func NewHealthRoute() server.RouteResult {
	return server.AsRoute("/health", http.HandlerFunc(HealthHandler))
}

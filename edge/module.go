package edge

import "go.uber.org/fx"

// Module provides the rewriter as both *Rewriter and Handler.
func Module(config RewriteConfig) fx.Option {
	return fx.Module(
		"edge",

		// provide rewrite config
		fx.Supply(config),

		// provide rewriter
		fx.Provide(NewRewriter),

		// expose rewriter as event handler
		fx.Provide(func(r *Rewriter) Handler { return r }),
	)
}

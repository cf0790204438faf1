package main

import (
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/os/gctx"

	"github.com/edugo/edugen/core"
	"github.com/edugo/edugen/core/config"
)

// Startup smoke entry: validates configuration and wires the engine so
// misconfiguration is caught at deploy time, not on the first request.
// Collaborating services embed the engine through core.NewEngine instead.
func main() {
	ctx := gctx.GetInitCtx()

	if err := config.ValidateConfiguration(ctx); err != nil {
		g.Log().Fatalf(ctx, "Configuration validation failed: %v", err)
	}

	if _, err := core.InitializeEngine(ctx); err != nil {
		g.Log().Fatalf(ctx, "Failed to initialize generation engine: %v", err)
	}

	g.Log().Info(ctx, "edugen core ready")
}

package main

import (
	"context"

	"ecourts-backend/cmd/ecourts-cli/commands"
	"ecourts-backend/lib/telemetry"
)

func main() {
	ctx := context.Background()
	t, _ := telemetry.SetupFromEnv(ctx, "ecourts-cli")
	defer t.Shutdown(ctx)
	telemetry.InitSlog(true)
	commands.ExecuteContext(ctx)
}

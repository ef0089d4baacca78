package main

import (
	"context"
	"log/slog"
	"os"

	"crawlkit/cmd/crawl-cli/cmd"
	"crawlkit/lib/telemetry"
)

func main() {
	ctx := context.Background()
	tel, err := telemetry.SetupFromEnv(ctx, "crawl-cli")
	if err != nil && !os.IsNotExist(err) {
		slog.Error("failed to set up telemetry", "err", err)
		os.Exit(1)
	}
	defer tel.Shutdown(ctx)

	cmd.Execute()
}

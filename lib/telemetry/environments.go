package telemetry

import (
	"context"
	"log/slog"
	"os"

	"lyricsync/lib/configutil"
)

const ConfigFile = "telemetry.json5"

var setupTestEnvironments = map[string]bool{}

// sets up telemetry in a testing environment, ensuring that it isn't
// set up more than once
func SetupForTesting(serviceName string) func() {
	_, setupAlready := setupTestEnvironments[serviceName]
	if setupAlready {
		return func() {}
	}
	setupTestEnvironments[serviceName] = true

	InitSlog(true)
	err := SetupFromEnv(context.Background(), serviceName)
	if err != nil {
		panic(err)
	}

	return func() {
		err = Shutdown(context.Background())
		if err != nil {
			panic(err)
		}
	}
}

// searches up the filesystem from the cwd to find a file
// called telemetry.json5, once found it will then use it
// as a config to setup telemetry. no file means telemetry stays disabled.
func SetupFromEnv(ctx context.Context, serviceName string) error {
	config, err := configutil.ReadRecursively[Config](ConfigFile)
	if os.IsNotExist(err) {
		slog.Debug("telemetry disabled", "reason", "no "+ConfigFile)
		return nil
	}
	if err != nil {
		return err
	}
	return Setup(ctx, serviceName, config)
}

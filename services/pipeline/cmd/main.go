package main

import (
	"context"
	"log"
	"os"

	"jobclean/services/pipeline/internal/app"
	"jobclean/services/pipeline/internal/processor"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runOnce starts a single pipeline run once the app is up and shuts the app
// down with a non-zero exit code if the run fails.
func runOnce(lc fx.Lifecycle, shutdowner fx.Shutdowner, runner *processor.Runner, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				if _, err := runner.Run(ctx); err != nil {
					code = 1
				}
				if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Error("Failed to shut down", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func main() {
	fxApp := fx.New(
		app.Module,
		fx.Invoke(runOnce),
	)

	startCtx := context.Background()
	if err := fxApp.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	sig := <-fxApp.Wait()

	stopCtx := context.Background()
	if err := fxApp.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
	os.Exit(sig.ExitCode)
}

// Package engine hosts the long-running scheduler service: an event bus,
// modules that publish and execute scheduled jobs, and the reporting
// surfaces around them.
package engine

import (
	"context"
	"time"

	Logger "github.com/neurocrypto/newsforge/utils/log"
)

const gracefulRetryDelay = 3 * time.Second

// Module is one long-lived worker of the engine. RunModule blocks for the
// module's whole life and returns nil only on graceful shutdown.
type Module interface {
	RunModule(ctx context.Context) error

	// Name uniquely identifies the module instance.
	Name() string
}

// RunModuleWithGracefulRestart keeps a module alive: a module that exits
// with an error is restarted after a short delay until the context ends.
func RunModuleWithGracefulRestart(ctx context.Context, module Module) {
	for {
		err := module.RunModule(ctx)
		if err == nil {
			return
		}
		Logger.Log.Errorf("module %s exited with error %v, restart in %v", module.Name(), err, gracefulRetryDelay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(gracefulRetryDelay):
		}
	}
}

package injector

import (
	"context"
	"errors"
	"time"

	"github.com/zeusync/voxelphys/internal/core/observability/log"
	"github.com/zeusync/voxelphys/internal/server"
	"github.com/zeusync/voxelphys/internal/sim"
)

// App is the assembled simulator process.
type App struct {
	Logger    *log.Logger
	Simulator *sim.Simulator
	Server    *server.Server // nil when disabled
}

func NewApp(logger *log.Logger, simulator *sim.Simulator, srv *server.Server) *App {
	return &App{Logger: logger, Simulator: simulator, Server: srv}
}

// Run starts the viewer server, if any, and blocks in the simulation loop.
func (a *App) Run(ctx context.Context) error {
	if a.Server != nil {
		if err := a.Server.Start(ctx); err != nil {
			return err
		}
	}

	err := a.Simulator.Run(ctx)

	if a.Server != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if stopErr := a.Server.Stop(stopCtx); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
	}
	return err
}

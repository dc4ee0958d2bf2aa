package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/voxelphys/internal/config"
	"github.com/zeusync/voxelphys/internal/core/events/bus"
	"github.com/zeusync/voxelphys/internal/core/observability/log"
	"github.com/zeusync/voxelphys/internal/server"
	"github.com/zeusync/voxelphys/internal/sim"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideEventBus,
	ProvideSimulator,
	ProvideServer,
)

func ProvideLogger(cfg config.Config) (*log.Logger, error) {
	return log.New(log.Config{
		Level:    log.ParseLevel(cfg.Log.Level),
		Encoding: cfg.Log.Encoding,
	})
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

func ProvideSimulator(cfg config.Config, events bus.EventBus, logger log.Log) (*sim.Simulator, error) {
	return sim.New(cfg, events, logger)
}

// ProvideServer returns nil when the viewer server is disabled.
func ProvideServer(cfg config.Config, events bus.EventBus, logger log.Log, simulator *sim.Simulator) (*server.Server, error) {
	if !cfg.Server.Enabled {
		return nil, nil
	}
	sc := server.DefaultServerConfig()
	sc.ListenAddr = cfg.Server.Addr
	sc.SnapshotEvery = cfg.Server.Every

	srv, err := server.NewServer(sc, events, logger)
	if err != nil {
		return nil, err
	}
	simulator.Observe(srv.OnSnapshot)
	return srv, nil
}

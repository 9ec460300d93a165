package run

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/ward-market/src/config"
	"github.com/jiaming2012/ward-market/src/data"
	"github.com/jiaming2012/ward-market/src/dbutils"
	pubsub "github.com/jiaming2012/ward-market/src/eventpubsub"
	"github.com/jiaming2012/ward-market/src/simulation-api/models"
	"github.com/jiaming2012/ward-market/src/simulation-api/services"
)

// App holds the wired world shared by every command.
type App struct {
	Config *config.Config
	Bus    *pubsub.Bus
	World  *services.WorldService
}

func NewApp(cfg *config.Config, opts ...services.Option) (*App, error) {
	db, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	bus := pubsub.New()
	opts = append([]services.Option{services.WithPublisher(bus)}, opts...)

	return &App{
		Config: cfg,
		Bus:    bus,
		World:  services.NewWorldService(db, cfg.Simulation, opts...),
	}, nil
}

func openStore(cfg config.StorageConfig) (models.IWorldDatabase, error) {
	switch cfg.Driver {
	case config.StorageDriverMemory:
		log.Warn("using in-memory storage: world state is lost on exit")
		return data.NewMemoryStore(), nil
	case config.StorageDriverPostgres:
		pg := cfg.Postgres
		db, err := dbutils.InitPostgres(pg.Host, pg.Port, pg.User, pg.Password, pg.Name, pg.SSLMode)
		if err != nil {
			return nil, fmt.Errorf("openStore: %w", err)
		}

		return data.NewPostgresStore(db), nil
	}

	return nil, fmt.Errorf("openStore: unknown driver %q", cfg.Driver)
}

// Seed populates the world from the configured roster. Seeding an already
// seeded world changes nothing.
func (a *App) Seed(ctx context.Context) (*models.SeedResult, error) {
	roster, err := config.LoadRoster(a.Config.Seed.RosterFile)
	if err != nil {
		return nil, err
	}

	return a.World.Seed(ctx, roster)
}

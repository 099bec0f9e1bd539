package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/internal/config"
	boltInfra "github.com/fastygo/taskboard/internal/infrastructure/boltdb"
	mongoInfra "github.com/fastygo/taskboard/internal/infrastructure/mongodb"
	"github.com/fastygo/taskboard/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/taskboard/internal/infrastructure/postgres"
	"github.com/fastygo/taskboard/internal/services/lifecycle"
	"github.com/fastygo/taskboard/repository"
	"github.com/fastygo/taskboard/repository/boltdb"
	"github.com/fastygo/taskboard/repository/mongodb"
	"github.com/fastygo/taskboard/repository/postgres"
)

type recordStore struct {
	tasks  repository.TaskRepository
	boards repository.BoardRepository
}

// openStore connects the configured driver, registers its shutdown hook and health probe.
func openStore(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, mon *monitor.Monitor, logger *zap.Logger) (recordStore, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg.Database, cfg.Migrations, logger); err != nil {
			return recordStore{}, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return recordStore{}, fmt.Errorf("postgres: %w", err)
		}
		manager.Register("postgres", func(context.Context) error {
			pool.Close()
			return nil
		})
		mon.Register("postgres", true, pool.Ping)
		return recordStore{tasks: postgres.NewTaskRepository(pool), boards: postgres.NewBoardRepository(pool)}, nil

	case config.DriverMongo:
		client, err := mongoInfra.Connect(ctx, cfg.Mongo, logger)
		if err != nil {
			return recordStore{}, fmt.Errorf("mongodb: %w", err)
		}
		manager.Register("mongodb", client.Disconnect)
		mon.Register("mongodb", true, func(ctx context.Context) error { return mongoInfra.Ping(ctx, client) })

		db := client.Database(cfg.Mongo.Database)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			return recordStore{}, fmt.Errorf("mongodb indexes: %w", err)
		}
		return recordStore{tasks: mongodb.NewTaskRepository(db), boards: mongodb.NewBoardRepository(db)}, nil

	case config.DriverBolt:
		db, err := boltInfra.Open(cfg.Bolt.Path, boltdb.Buckets...)
		if err != nil {
			return recordStore{}, fmt.Errorf("boltdb: %w", err)
		}
		manager.Closer("boltdb", db.Close)
		mon.Register("boltdb", true, func(context.Context) error { return boltInfra.Check(db) })
		logger.Info("opened bolt store", zap.String("path", cfg.Bolt.Path))
		return recordStore{tasks: boltdb.NewTaskRepository(db), boards: boltdb.NewBoardRepository(db)}, nil
	}
	return recordStore{}, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	dStub "github.com/golang-migrate/migrate/v4/database/mongodb"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/E-Bousk/natours/cmd"
	"github.com/E-Bousk/natours/store"
)

func main() {
	// Logging
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Println("can't create logger: ", err)
		os.Exit(1)
	}

	if err := run(logger); err != nil {
		logger.Error("shutting down, error: ", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	configPath, ok := os.LookupEnv("NATOURS_CONFIG")
	if !ok {
		configPath = "config.yaml"
	}
	cfg, err := cmd.AppConfig(configPath, logger)
	if err != nil {
		return err
	}

	timeoutContext := time.Duration(cfg.Server.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeoutContext)
	defer cancel()

	client, err := store.Open(ctx, cfg.MongoConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err = client.Disconnect(ctx); err != nil {
			logger.Error("mongodb client disconnect error: ", zap.Error(err))
		}
	}()

	if len(os.Args) < 2 {
		return errors.New("must specify a command: migrate_mongo or seed")
	}

	switch os.Args[1] {
	case "migrate_mongo":
		err = migrateMongo(client, cfg.MongoConfig.Name)
	case "seed":
		err = store.Seed(ctx, client.Database(cfg.MongoConfig.Name))
	default:
		err = errors.New("must specify a command: migrate_mongo or seed")
	}

	if err != nil {
		return err
	}

	return nil
}

func migrateMongo(db *mongo.Client, dbName string) error {
	instance, err := dStub.WithInstance(db, &dStub.Config{DatabaseName: dbName})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://store/migrations", dbName, instance)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

// cmd/facility-import/main.go

package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/cb671/streetsafe-server/internal/adapter/events"
	"github.com/cb671/streetsafe-server/internal/adapter/h3index"
	"github.com/cb671/streetsafe-server/internal/adapter/storage"
	"github.com/cb671/streetsafe-server/internal/config"
	"github.com/cb671/streetsafe-server/internal/logger"
	"github.com/cb671/streetsafe-server/internal/service/importer"
)

func main() {
	file := flag.String("file", "", "CSV file of facilities (type,name and latitude,longitude or x,y)")
	timeout := flag.Duration("timeout", 5*time.Minute, "import timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if *file == "" {
		log.Fatal("-file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *file, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := pgxpool.Connect(ctx, cfg.Database.ConnString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var publisher events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("streetsafe-facility-import"), nats.Timeout(cfg.NATS.ConnectTimeout))
		if err != nil {
			log.WithError(err).Warn("NATS unavailable, import will not be announced")
		} else {
			defer nc.Drain()
			publisher = events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
		}
	}

	imp, err := importer.NewFacilityImporter(storage.NewFacilityStore(db), h3index.New(), publisher, cfg.Engine.Resolution)
	if err != nil {
		log.Fatalf("Failed to create importer: %v", err)
	}

	result, err := imp.Import(ctx, f)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.WithFields(logrus.Fields{
		"batch_id": result.BatchID,
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
	}).Info("facilities_imported")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"whatsapp-notifier/internal/config"
	"whatsapp-notifier/internal/db"
	"whatsapp-notifier/internal/importer"
	"whatsapp-notifier/internal/store"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to merchant settings CSV export")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, store.NewPostgres(pool))

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	fmt.Printf("Imported settings for %d merchant(s) in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}

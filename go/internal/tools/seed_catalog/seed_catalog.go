// Command seed_catalog loads a catalog CSV into the catalog_items table.
//
//	go run ./go/internal/tools/seed_catalog [path/to/catalog.csv]
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/dbconfig"
)

const upsertItem = `
    INSERT INTO catalog_items (id, name, category, grade, price)
    VALUES ($1, $2, $3, $4, $5::text::numeric)
    ON CONFLICT (id) DO UPDATE SET
      name = EXCLUDED.name,
      category = EXCLUDED.category,
      grade = EXCLUDED.grade,
      price = EXCLUDED.price
`

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	path := "go/internal/assets/catalog.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load and validate the CSV
	cat, err := catalog.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert items in one batch
	items := cat.Items()
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(upsertItem, int64(item.ID), item.Name, string(item.Category), string(item.Grade), item.Price.String())
	}

	results := pool.SendBatch(ctx, batch)
	inserted, errs := 0, 0
	for range items {
		tag, err := results.Exec()
		if err != nil {
			fmt.Fprintf(os.Stderr, "upsert item: %v\n", err)
			errs++
			continue
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close batch: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Catalog seed: total=%d upserted=%d errors=%d\n", len(items), inserted, errs)
	if errs > 0 {
		os.Exit(1)
	}
}

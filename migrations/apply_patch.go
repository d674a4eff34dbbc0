package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"procurement-docs/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		fmt.Printf("Failed to connect to DB: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	applied, err := db.ApplyMigrations(ctx, pool, dir)
	if err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}
	for _, f := range applied {
		fmt.Printf("applied %s\n", filepath.Base(f))
	}
	fmt.Println("Migration successful.")
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Накатывает *.sql из каталога миграций по порядку имён.
// Схема идемпотентна (IF NOT EXISTS), повторный прогон безопасен.
func main() {
	viper.AutomaticEnv()
	viper.SetDefault("migrations_dir", "migrations")

	dsn := viper.GetString("database_dsn")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_DSN is empty")
		os.Exit(1)
	}

	if err := apply(dsn, viper.GetString("migrations_dir")); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("done")
}

func apply(dsn, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return errors.Wrap(err, "list migrations")
	}
	if len(files) == 0 {
		return errors.Errorf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer func() {
		_ = conn.Close(ctx)
	}()

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			return errors.Wrap(err, "read "+f)
		}
		if _, err := conn.Exec(ctx, string(sqlBytes)); err != nil {
			return errors.Wrap(err, "apply "+f)
		}
		fmt.Printf("%s applied\n", filepath.Base(f))
	}
	return nil
}

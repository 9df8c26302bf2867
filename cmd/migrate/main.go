// Command migrate applies database schema migrations.
//
// Usage:
//
//	migrate up            apply all pending migrations
//	migrate down          roll back the last migration
//	migrate version       print the current schema version
//	migrate force <n>     set the version without running migrations
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"tesoreria/internal/infrastructure/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("failed to load configuration: %v", err)
	}

	migrationsPath := os.Getenv("TESORERIA_MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}

	m, err := migrate.New("file://"+migrationsPath, cfg.Database.DSN())
	if err != nil {
		fatalf("failed to create migrator: %v", err)
	}
	defer m.Close()

	switch os.Args[1] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && verr != migrate.ErrNilVersion {
			fatalf("failed to read version: %v", verr)
		}
		fmt.Printf("version=%d dirty=%v\n", version, dirty)
		return
	case "force":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		version, perr := strconv.Atoi(os.Args[2])
		if perr != nil {
			fatalf("invalid version %q: %v", os.Args[2], perr)
		}
		err = m.Force(version)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil && err != migrate.ErrNoChange {
		fatalf("migration failed: %v", err)
	}

	if err == migrate.ErrNoChange {
		fmt.Println("no change")
		return
	}

	fmt.Println("ok")
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate <up|down|version|force N>")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

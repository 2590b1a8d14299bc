// Command migrate manages the postgres and mysql schemas. SQLite databases
// are created by the server itself.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disi/commandes/internal/infrastructure/config"
	"github.com/disi/commandes/internal/infrastructure/logger"
	"github.com/disi/commandes/internal/infrastructure/migration"
	"go.uber.org/zap"
)

const usage = `usage: migrate [-dir migrations] [-log-level info] <command>

  up               apply pending migrations
  down             roll back every migration
  step <n>         apply n migrations, negative to roll back
  version          print the applied version
  force <version>  clear a dirty state after a failed migration
  create <name>    write an empty up/down pair for each driver
  list             list migrations of the configured driver

The database is read from config.toml and DISI_DATABASE_* variables.`

var errUsage = errors.New("invalid arguments")

func main() {
	dir := flag.String("dir", "migrations", "root of the per-driver migration directories")
	level := flag.String("log-level", "info", "log level")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log, *dir, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		log.Error("Migration command failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(log *zap.Logger, dir string, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	// create works on files only
	if args[0] == "create" {
		if len(args) < 2 {
			return fmt.Errorf("%w: create needs a name", errUsage)
		}
		files, err := migration.CreateMigration(root, args[1], "")
		if err != nil {
			return err
		}
		for _, f := range files {
			log.Info("Migration created", zap.String("driver", f.Driver), zap.String("up", f.UpPath), zap.String("down", f.DownPath))
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	driver := cfg.Database.Driver

	if args[0] == "list" {
		names, err := migration.ListMigrations(migration.Dir(root, driver))
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	}

	if driver == config.DriverSQLite {
		return errors.New("sqlite schemas are created by the server at startup")
	}

	m, err := migration.New(&cfg.Database, root, log)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(v)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("%s %d dirty=%t\n", driver, v, dirty)
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%w: %s needs a number", errUsage, args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[1])
	}
	return n, nil
}

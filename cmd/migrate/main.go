package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

var errUsage = errors.New("usage")

// command is one migrate subcommand. Offline commands only touch the
// migrations directory; the rest run against the configured postgres.
type command struct {
	args    string
	help    string
	offline bool
	run     func(env *cliEnv, args []string) error
}

type cliEnv struct {
	log      *zap.Logger
	dir      string
	migrator *migration.Migrator
}

var commands = map[string]command{
	"up": {
		help: "Apply all pending migrations",
		run:  func(env *cliEnv, _ []string) error { return env.migrator.Up() },
	},
	"down": {
		help: "Roll back all migrations",
		run:  func(env *cliEnv, _ []string) error { return env.migrator.Down() },
	},
	"step": {
		args: "<n>",
		help: "Apply n migrations (positive=up, negative=down)",
		run: func(env *cliEnv, args []string) error {
			n, err := intArg(args)
			if err != nil {
				return err
			}
			return env.migrator.Steps(n)
		},
	},
	"goto": {
		args: "<version>",
		help: "Migrate to a specific version",
		run: func(env *cliEnv, args []string) error {
			v, err := intArg(args)
			if err != nil || v < 0 {
				return errUsage
			}
			return env.migrator.GoTo(uint(v))
		},
	},
	"force": {
		args: "<version>",
		help: "Force set migration version after a failed run",
		run: func(env *cliEnv, args []string) error {
			v, err := intArg(args)
			if err != nil {
				return err
			}
			return env.migrator.Force(v)
		},
	},
	"version": {
		help: "Show current migration version",
		run: func(env *cliEnv, _ []string) error {
			version, dirty, err := env.migrator.Version()
			if err != nil {
				return err
			}
			if version == 0 {
				env.log.Info("No migrations applied")
				return nil
			}
			env.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
			return nil
		},
	},
	"create": {
		args:    "<name> [desc]",
		help:    "Create a new migration file pair",
		offline: true,
		run: func(env *cliEnv, args []string) error {
			if len(args) == 0 {
				return errUsage
			}
			desc := ""
			if len(args) > 1 {
				desc = args[1]
			}
			mf, err := migration.CreateMigration(env.dir, args[0], desc)
			if err != nil {
				return err
			}
			env.log.Info("Migration created",
				zap.Uint("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	},
	"list": {
		help:    "List available migrations",
		offline: true,
		run: func(env *cliEnv, _ []string) error {
			names, err := migration.ListMigrations(env.dir)
			if err != nil {
				return err
			}
			env.log.Info("Available migrations", zap.Int("count", len(names)))
			for _, name := range names {
				fmt.Println("  -", name)
			}
			return nil
		},
	},
}

func main() {
	dir := flag.String("path", "", "Migrations directory (default: embedded for database commands, ./migrations for create/list)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	env := &cliEnv{log: log, dir: *dir}
	if env.dir != "" {
		if env.dir, err = filepath.Abs(env.dir); err != nil {
			log.Fatal("Invalid migrations path", zap.Error(err))
		}
	}
	log.Info("Migration CLI started", zap.String("command", name), zap.String("migrations_path", env.dir))

	if cmd.offline {
		if env.dir == "" {
			env.dir = defaultMigrationsDir
		}
	} else {
		db, closeFn := openDatabase(log)
		defer closeFn()
		m, err := migration.New(db, env.dir, log)
		if err != nil {
			log.Fatal("Failed to create migrator", zap.Error(err))
		}
		env.migrator = m
	}

	if err := cmd.run(env, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			log.Fatal("Invalid arguments", zap.String("usage", "migrate "+name+" "+cmd.args))
		}
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

// openDatabase connects to the configured postgres. The migrator shares the
// handle, so it is closed here rather than through the migrator.
func openDatabase(log *zap.Logger) (*sql.DB, func()) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatal("Versioned migrations only run against postgres; sqlite is migrated by the server at startup",
			zap.String("driver", cfg.Database.Driver))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		log.Fatal("Failed to ping database", zap.Error(err))
	}
	return db, func() { _ = db.Close() }
}

func intArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, errUsage
	}
	return n, nil
}

func printUsage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "Fulfillment database migration tool\n\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:")
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(os.Stderr, "  %-22s %s\n", name+" "+c.args, c.help)
	}
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, `
Database commands read FULFILLMENT_DATABASE_HOST, _PORT, _USER, _PASSWORD,
_DBNAME and _SSLMODE.

Examples:
  migrate up
  migrate step -1
  migrate create add_carrier_index "Index fulfillments by carrier"`)
}

package main

import (
	"flag"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/driveprep/exam-platform/internal/storage"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

// Manual control over the embedded migration set. The app applies pending
// migrations on startup by itself; this tool exists for status checks and
// rollbacks.
func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, or status")
		driver  = flag.String("driver", getEnv("STORAGE_DRIVER", "sqlite"), "Storage driver: sqlite or postgres")
		dsn     = flag.String("dsn", os.Getenv("STORAGE_DSN"), "Database DSN (defaults to the app's sqlite file)")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	var drvName string
	switch storage.Driver(*driver) {
	case storage.DriverSQLite:
		drvName = "sqlite"
		if *dsn == "" {
			*dsn = storage.DefaultSQLiteDSN
		}
	case storage.DriverPostgres:
		drvName = "pgx"
		if *dsn == "" {
			log.Fatal().Msg("postgres driver requires -dsn or STORAGE_DSN")
		}
	default:
		log.Fatal().Str("driver", *driver).Msg("unknown driver. Use: sqlite or postgres")
	}

	db, err := sqlx.Connect(drvName, *dsn)
	if err != nil {
		log.Fatal().Err(err).Str("driver", *driver).Msg("failed to open database connection")
	}
	defer db.Close()

	log.Info().Str("driver", *driver).Msg("connected to database")

	switch *command {
	case "up":
		if err := storage.Migrate(db.DB, storage.Driver(*driver)); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations up")
		}
		log.Info().Msg("migrations applied successfully")

	case "down":
		if err := storage.MigrateDown(db.DB, storage.Driver(*driver)); err != nil {
			log.Fatal().Err(err).Msg("failed to roll back migration")
		}
		log.Info().Msg("migration rolled back successfully")

	case "status":
		if err := storage.MigrationStatus(db.DB, storage.Driver(*driver)); err != nil {
			log.Fatal().Err(err).Msg("failed to get migration status")
		}

	default:
		log.Fatal().Str("command", *command).Msg("unknown command. Use: up, down, or status")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

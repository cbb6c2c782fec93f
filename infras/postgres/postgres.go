package postgres

//nolint:revive
import (
	"fmt"
	"net"
	"net/url"
	"slotwise/config"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	postgresMaxIdleConnection = 10
	postgresMaxOpenConnection = 10
)

type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

type endpoint struct {
	name     string
	username string
	password string
	host     string
	port     string
	dbName   string
	sslMode  string
	timezone string
}

func New(config *config.Config) *Connection {
	return &Connection{
		Read:  CreatePostgresReadConn(*config),
		Write: CreatePostgresWriteConn(*config),
	}
}

// getDBName returns the database name with prefix if configured
func getDBName(config config.Config, baseName string) string {
	if config.DB.Postgres.Prefix != "" {
		return config.DB.Postgres.Prefix + baseName
	}

	return baseName
}

// sessionTimezone falls back to the application timezone so DATE columns
// round-trip the calendar day the service parsed.
func sessionTimezone(config config.Config, timezone string) string {
	if timezone != "" {
		return timezone
	}

	return config.App.Timezone
}

// CreatePostgresWriteConn creates a database connection for write access.
func CreatePostgresWriteConn(config config.Config) *sqlx.DB {
	write := config.DB.Postgres.Write

	return connect(endpoint{
		name:     "write",
		username: write.Username,
		password: write.Password,
		host:     write.Host,
		port:     write.Port,
		dbName:   getDBName(config, write.Name),
		sslMode:  write.SSLMode,
		timezone: sessionTimezone(config, write.Timezone),
	}, config.DB.Postgres.MaxRetry, config.DB.Postgres.RetryWaitTime)
}

// CreatePostgresReadConn creates a database connection for read access.
func CreatePostgresReadConn(config config.Config) *sqlx.DB {
	read := config.DB.Postgres.Read

	return connect(endpoint{
		name:     "read",
		username: read.Username,
		password: read.Password,
		host:     read.Host,
		port:     read.Port,
		dbName:   getDBName(config, read.Name),
		sslMode:  read.SSLMode,
		timezone: sessionTimezone(config, read.Timezone),
	}, config.DB.Postgres.MaxRetry, config.DB.Postgres.RetryWaitTime)
}

// Descriptor renders the lib/pq connection URL for an endpoint.
func (e endpoint) Descriptor() string {
	query := url.Values{}
	query.Set("sslmode", e.sslMode)

	if e.timezone != "" {
		query.Set("timezone", e.timezone)
	}

	return fmt.Sprintf(
		"postgres://%s@%s/%s?%s",
		url.UserPassword(e.username, e.password).String(),
		net.JoinHostPort(e.host, e.port),
		e.dbName,
		query.Encode(),
	)
}

func connect(e endpoint, maxRetry, waitTime int) *sqlx.DB {
	for retry := range maxRetry {
		sqlDB, err := sqlx.Connect("postgres", e.Descriptor())
		if err == nil {
			log.
				Info().
				Str("name", e.name).
				Str("host", e.host).
				Str("port", e.port).
				Str("dbName", e.dbName).
				Str("timezone", e.timezone).
				Msg("Connected to database")
			sqlDB.SetMaxIdleConns(postgresMaxIdleConnection)
			sqlDB.SetMaxOpenConns(postgresMaxOpenConnection)

			return sqlDB
		}

		log.
			Error().
			Err(err).
			Str("name", e.name).
			Str("host", e.host).
			Str("port", e.port).
			Str("dbName", e.dbName).
			Int("attempt", retry+1).
			Msg("Failed connecting to database, retrying")

		time.Sleep(time.Duration(waitTime) * time.Second)
	}

	log.Error().Str("name", e.name).Msg("Giving up connecting to database")

	return nil
}

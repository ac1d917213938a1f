package databases

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 10
	connMaxLifetime = 5 * time.Minute
)

type postgresConnection struct {
	dsn string
	db  *sql.DB
}

func NewPostgres(dsn string) PostgresConnection {
	return &postgresConnection{
		dsn: dsn,
	}
}

func (c *postgresConnection) GetSQL() *sql.DB {
	return c.db
}

func (c *postgresConnection) IsConnected() bool {
	if c.db == nil {
		return false
	}

	return c.db.Ping() == nil
}

func (c *postgresConnection) Run() error {
	db, err := sql.Open("postgres", c.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	c.db = db
	log.Info().Msg("Connected to Postgres")
	return nil
}

func (c *postgresConnection) Shutdown() {
	if c.db == nil {
		return
	}

	log.Info().Msg("Shutdown the connection to Postgres")
	if err := c.db.Close(); err != nil {
		log.Error().Err(err).Msgf("Failed to shutdown database connection")
	}
}

package databases

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Writers wait up to five seconds for the file lock.
var sqlitePragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
}

type sqliteConnection struct {
	dsn string
	db  *gorm.DB
}

// New opens the article store at path, a file name or a sqlite URI.
func New(path string) SqlConnection {
	return &sqliteConnection{
		dsn: withPragmas(path),
	}
}

func withPragmas(path string) string {
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return path + separator + strings.Join(sqlitePragmas, "&")
}

func (c *sqliteConnection) GetDB() *gorm.DB {
	return c.db
}

func (c *sqliteConnection) IsConnected() bool {
	if c.db == nil {
		return false
	}

	sqlDB, err := c.db.DB()
	return err == nil && sqlDB.Ping() == nil
}

func (c *sqliteConnection) Run() error {
	db, err := gorm.Open(sqlite.Open(c.dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return fmt.Errorf("failed to open sqlite store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to reach sqlite pool: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to ping sqlite store: %w", err)
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	c.db = db
	log.Info().Str("dsn", c.dsn).Msg("Connected to Sqlite")
	return nil
}

func (c *sqliteConnection) Shutdown() {
	if c.db == nil {
		return
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		log.Error().Err(err).Msg("Failed to shutdown sqlite store")
		return
	}

	log.Info().Msg("Shutdown the connection to Sqlite")
	if err := sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown sqlite store")
	}
	c.db = nil
}

package databases

import (
	"database/sql"

	"gorm.io/gorm"
)

type Connection interface {
	IsConnected() bool
	Run() error
	Shutdown()
}

type SqlConnection interface {
	Connection
	GetDB() *gorm.DB
}

type PostgresConnection interface {
	Connection
	GetSQL() *sql.DB
}

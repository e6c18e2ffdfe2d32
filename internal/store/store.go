package store

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/veltacrm/whatsapp-bridge/pkg/env"
)

// Store bundles the three repositories over one Postgres pool. All
// cross-invocation coordination goes through these tables; handlers hold no
// state of their own.
type Store struct {
	db *sql.DB

	Connections *ConnectionStore
	Messages    *MessageStore
	Contacts    *ContactStore
}

func Open() (*Store, error) {
	dsn := env.MustGetEnvString("DATABASE_URL")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(env.GetEnvIntOrDefault("DATABASE_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(env.GetEnvIntOrDefault("DATABASE_MAX_IDLE_CONNS", 5))
	db.SetConnMaxLifetime(env.GetEnvDurationOrDefault("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute))

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return NewWithDB(db), nil
}

func NewWithDB(db *sql.DB) *Store {
	return &Store{
		db:          db,
		Connections: &ConnectionStore{db: db},
		Messages:    &MessageStore{db: db},
		Contacts:    &ContactStore{db: db},
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

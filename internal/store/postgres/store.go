package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	conf "github.com/jarabaplatform/tenant-exporter/config"
	"github.com/jarabaplatform/tenant-exporter/internal/errors"
	"github.com/jarabaplatform/tenant-exporter/internal/store"
)

// Store is the struct implementing the Store interface.
type Store struct {
	recordStore  store.ExportRecordStore
	sectionStore store.SectionStore
	config       *conf.DatabaseConfig
	conn         *pgxpool.Pool
}

// New creates a new Store instance.
func New(config *conf.DatabaseConfig) *Store {
	return &Store{config: config}
}

func (s *Store) ExportRecords() store.ExportRecordStore {
	if s.recordStore == nil {
		s.recordStore = &ExportRecordStore{storage: s}
	}
	return s.recordStore
}

func (s *Store) Sections() store.SectionStore {
	if s.sectionStore == nil {
		s.sectionStore = &SectionStore{storage: s}
	}
	return s.sectionStore
}

// Database returns the database connection or a custom error if it is not opened.
func (s *Store) Database() (*pgxpool.Pool, error) {
	if s.conn == nil {
		return nil, errors.New("database connection is not opened")
	}
	return s.conn, nil
}

// Open establishes a connection to the database and returns a custom error if it fails.
func (s *Store) Open() error {
	config, err := pgxpool.ParseConfig(s.config.Url)
	if err != nil {
		return errors.New("invalid data source", errors.WithCause(err))
	}

	conn, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return errors.New("unable to open database pool", errors.WithCause(err))
	}
	s.conn = conn
	slog.Debug("tenant_exporter.store.connection_opened", slog.String("message", "postgres: connection opened"))
	return nil
}

// Close closes the database connection and returns a custom error if it fails.
func (s *Store) Close() error {
	if s.conn != nil {
		s.conn.Close()
		slog.Debug("tenant_exporter.store.connection_closed", slog.String("message", "postgres: connection closed"))
		s.conn = nil
	}
	return nil
}

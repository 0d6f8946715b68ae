package database

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type DB struct {
	conn   *sql.DB
	dbType string
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

func NewDB(config Config) (*DB, error) {
	var conn *sql.DB
	var err error

	switch config.Type {
	case "sqlite":
		conn, err = sql.Open("sqlite3", config.SQLitePath)
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Password, config.Name)
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, dbType: config.Type}

	// SQLite schemas are created directly, postgres goes through migrations.
	if config.Type == "sqlite" {
		if err := db.createTables(); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return db, nil
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS videos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content_hash TEXT NOT NULL,
		origin_file_id TEXT,
		user_id INTEGER NOT NULL DEFAULT 0,
		blob_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		upload_time DATETIME NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_videos_content_hash ON videos (content_hash);

	CREATE TABLE IF NOT EXISTS label_aggregates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id INTEGER NOT NULL REFERENCES videos(id),
		label TEXT NOT NULL,
		total_count INTEGER NOT NULL,
		avg_confidence REAL NOT NULL,
		best_confidence REAL NOT NULL,
		best_second REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_label_aggregates_label ON label_aggregates (label);
	CREATE INDEX IF NOT EXISTS idx_label_aggregates_video_id ON label_aggregates (video_id);
	`

	_, err := db.conn.Exec(query)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

// RunMigrations applies pending SQL migrations (postgres only).
func (db *DB) RunMigrations(migrationsPath string, log *zap.Logger) error {
	return NewMigrator(db.conn, db.dbType, log).Run(migrationsPath)
}

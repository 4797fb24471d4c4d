package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

// Export is one generated report file
type Export struct {
	ID           int64
	CustomerID   int
	CustomerName string
	Format       string
	Path         string
	Bytes        int64
	TotalKWh     float64
	TotalCost    float64
	CreatedAt    time.Time
}

// Snapshot is a customer's day/month/year cost as of one date
type Snapshot struct {
	ID           int64
	CustomerID   int
	CustomerName string
	Date         time.Time
	DayCost      float64
	MonthCost    float64
	YearCost     float64
	Published    bool
}

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL,
		customer_name TEXT NOT NULL,
		format TEXT NOT NULL,
		path TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		total_kwh REAL NOT NULL,
		total_cost REAL NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exports_customer ON exports(customer_id);

	CREATE TABLE IF NOT EXISTS cost_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL,
		customer_name TEXT NOT NULL,
		date TEXT NOT NULL,
		day_cost REAL NOT NULL,
		month_cost REAL NOT NULL,
		year_cost REAL NOT NULL,
		created_at TEXT NOT NULL,
		published INTEGER DEFAULT 0,
		UNIQUE(customer_id, date)
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_date ON cost_snapshots(date);
	CREATE INDEX IF NOT EXISTS idx_snapshots_published ON cost_snapshots(published);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// RecordExport stores a generated report
func (db *DB) RecordExport(ctx context.Context, e Export) error {
	query := `
	INSERT INTO exports (customer_id, customer_name, format, path, bytes, total_kwh, total_cost, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx, query, e.CustomerID, e.CustomerName, e.Format, e.Path, e.Bytes,
		e.TotalKWh, e.TotalCost, createdAt.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("inserting export: %w", err)
	}
	return nil
}

// ListExports returns exports newest first. customerID 0 means every customer,
// limit 0 means no limit.
func (db *DB) ListExports(ctx context.Context, customerID, limit int) ([]Export, error) {
	query := `
	SELECT id, customer_id, customer_name, format, path, bytes, total_kwh, total_cost, created_at
	FROM exports
	WHERE (? = 0 OR customer_id = ?)
	ORDER BY created_at DESC, id DESC
	`
	args := []any{customerID, customerID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exports: %w", err)
	}
	defer rows.Close()

	var results []Export
	for rows.Next() {
		var e Export
		var createdAt string
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.CustomerName, &e.Format, &e.Path, &e.Bytes,
			&e.TotalKWh, &e.TotalCost, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.CreatedAt, err = time.Parse(timestampLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// SaveSnapshot stores a snapshot. A newer snapshot for the same customer and
// date replaces the old one and must be published again.
func (db *DB) SaveSnapshot(ctx context.Context, s Snapshot) error {
	query := `
	INSERT INTO cost_snapshots (customer_id, customer_name, date, day_cost, month_cost, year_cost, created_at, published)
	VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	ON CONFLICT(customer_id, date) DO UPDATE SET
		customer_name = excluded.customer_name,
		day_cost = excluded.day_cost,
		month_cost = excluded.month_cost,
		year_cost = excluded.year_cost,
		created_at = excluded.created_at,
		published = 0
	`

	_, err := db.conn.ExecContext(ctx, query, s.CustomerID, s.CustomerName, s.Date.Format(dateLayout),
		s.DayCost, s.MonthCost, s.YearCost, time.Now().UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns snapshots newest first. With unpublishedOnly, only
// snapshots not yet published are returned.
func (db *DB) ListSnapshots(ctx context.Context, unpublishedOnly bool) ([]Snapshot, error) {
	query := `
	SELECT id, customer_id, customer_name, date, day_cost, month_cost, year_cost, published
	FROM cost_snapshots
	WHERE (? = 0 OR published = 0)
	ORDER BY date DESC, customer_id ASC
	`

	flag := 0
	if unpublishedOnly {
		flag = 1
	}

	rows, err := db.conn.QueryContext(ctx, query, flag)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var results []Snapshot
	for rows.Next() {
		var s Snapshot
		var dateStr string
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.CustomerName, &dateStr, &s.DayCost, &s.MonthCost,
			&s.YearCost, &s.Published); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		s.Date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing date: %w", err)
		}
		results = append(results, s)
	}

	return results, rows.Err()
}

// MarkPublished marks a snapshot as published
func (db *DB) MarkPublished(ctx context.Context, id int64) error {
	query := `UPDATE cost_snapshots SET published = 1 WHERE id = ?`
	_, err := db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("marking snapshot as published: %w", err)
	}
	return nil
}

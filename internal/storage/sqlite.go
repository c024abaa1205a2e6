package storage

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Close() error
}

// Store records which commands were used. Backtest results are never stored.
type Store struct{ db DB }

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS command_usage(
		request_id TEXT PRIMARY KEY,
		chat_id INTEGER,
		user_id INTEGER,
		category TEXT NOT NULL,
		command TEXT NOT NULL,
		symbol TEXT,
		ok INTEGER NOT NULL DEFAULT 1,
		ts INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_command_usage_ts ON command_usage(ts)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

// UsageEntry is one handled command.
type UsageEntry struct {
	RequestID string
	ChatID    int64
	UserID    int64
	Category  string
	Command   string
	Symbol    string
	OK        bool
	Timestamp int64
}

// UsageStats aggregates one category.
type UsageStats struct {
	Category string
	Count    int
	Failed   int
	Commands map[string]int
}

// TimeSeriesPoint is the number of commands in one time bucket.
type TimeSeriesPoint struct {
	Timestamp int64
	Count     int
}

// LogCommand inserts one entry. An empty RequestID gets a fresh one.
func (s *Store) LogCommand(e UsageEntry) error {
	if e.RequestID == "" {
		e.RequestID = uuid.NewString()
	}
	ok := 0
	if e.OK {
		ok = 1
	}
	_, err := s.db.Exec(`INSERT INTO command_usage(request_id,chat_id,user_id,category,command,symbol,ok,ts) VALUES(?,?,?,?,?,?,?,?)`,
		e.RequestID, e.ChatID, e.UserID, e.Category, e.Command, e.Symbol, ok, e.Timestamp)
	if err != nil {
		return fmt.Errorf("log command: %w", err)
	}
	return nil
}

// UsageStats groups commands since the given unix time by category.
func (s *Store) UsageStats(since int64) (map[string]*UsageStats, error) {
	rows, err := s.db.Query(`SELECT category, command, COUNT(*), SUM(CASE WHEN ok=0 THEN 1 ELSE 0 END)
		FROM command_usage WHERE ts>=? GROUP BY category, command`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]*UsageStats{}
	for rows.Next() {
		var category, command string
		var count, failed int
		if err := rows.Scan(&category, &command, &count, &failed); err != nil {
			return nil, err
		}
		st, ok := out[category]
		if !ok {
			st = &UsageStats{Category: category, Commands: map[string]int{}}
			out[category] = st
		}
		st.Count += count
		st.Failed += failed
		st.Commands[command] += count
	}
	return out, rows.Err()
}

// UsageTimeSeries counts commands per category in buckets of bucketSeconds.
func (s *Store) UsageTimeSeries(since, bucketSeconds int64) (map[string][]TimeSeriesPoint, error) {
	if bucketSeconds <= 0 {
		return nil, fmt.Errorf("bucket must be positive, got %d", bucketSeconds)
	}
	rows, err := s.db.Query(`SELECT category, (ts / ?) * ? AS bucket, COUNT(*)
		FROM command_usage WHERE ts>=? GROUP BY category, bucket ORDER BY bucket ASC`,
		bucketSeconds, bucketSeconds, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string][]TimeSeriesPoint{}
	for rows.Next() {
		var category string
		var p TimeSeriesPoint
		if err := rows.Scan(&category, &p.Timestamp, &p.Count); err != nil {
			return nil, err
		}
		out[category] = append(out[category], p)
	}
	return out, rows.Err()
}

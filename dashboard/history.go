package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/stratusdeck/stratusdeck/weatherapi"
)

// HistoryRecorder persists fetched forecasts.
type HistoryRecorder interface {
	SaveSnapshot(ctx context.Context, label string, snapshot *weatherapi.Snapshot) error
}

// HistoryEntry is one recorded fetch.
type HistoryEntry struct {
	Label         string    `json:"label"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	ObservedAt    string    `json:"observed_at"`
	FetchedAt     time.Time `json:"fetched_at"`
	Temperature   float64   `json:"temperature"`
	Humidity      int       `json:"humidity"`
	WeatherCode   int       `json:"weather_code"`
	WindSpeed     float64   `json:"wind_speed"`
	WindDirection float64   `json:"wind_direction"`
}

// History records fetched forecasts in PostgreSQL.
type History struct {
	db     *sql.DB
	logger *log.Logger
}

// NewHistory connects to PostgreSQL and makes sure the forecast_history
// table exists.
func NewHistory(connString string, logger *log.Logger) (*History, error) {
	if logger == nil {
		logger = log.New(os.Stdout, "[HISTORY] ", log.LstdFlags)
	}

	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	history := &History{db: db, logger: logger}
	if err := history.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return history, nil
}

func (h *History) ensureSchema(ctx context.Context) error {
	_, err := h.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS forecast_history (
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			observed_at TEXT NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL,
			place_label TEXT NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			humidity INTEGER NOT NULL,
			weather_code INTEGER NOT NULL,
			wind_speed DOUBLE PRECISION NOT NULL,
			wind_direction DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (latitude, longitude, observed_at)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create forecast_history table: %w", err)
	}
	return nil
}

// SaveSnapshot records the current conditions of a fetched snapshot.
// Refetching the same observation updates the existing row.
func (h *History) SaveSnapshot(ctx context.Context, label string, snapshot *weatherapi.Snapshot) error {
	if h == nil || h.db == nil {
		return fmt.Errorf("database connection not available")
	}
	if snapshot == nil {
		return nil
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO forecast_history (
			latitude,
			longitude,
			observed_at,
			fetched_at,
			place_label,
			temperature,
			humidity,
			weather_code,
			wind_speed,
			wind_direction
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (latitude, longitude, observed_at) DO UPDATE SET
			fetched_at = EXCLUDED.fetched_at,
			place_label = EXCLUDED.place_label,
			temperature = EXCLUDED.temperature,
			humidity = EXCLUDED.humidity,
			weather_code = EXCLUDED.weather_code,
			wind_speed = EXCLUDED.wind_speed,
			wind_direction = EXCLUDED.wind_direction
	`,
		snapshot.Latitude,
		snapshot.Longitude,
		snapshot.Current.Time,
		time.Now(),
		label,
		snapshot.Current.Temperature,
		snapshot.Current.Humidity,
		snapshot.Current.WeatherCode,
		snapshot.Current.WindSpeed,
		snapshot.Current.WindDirection,
	)
	if err != nil {
		return fmt.Errorf("failed to insert forecast record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	h.logger.Printf("Recorded forecast for %s at %s", label, snapshot.Current.Time)
	return nil
}

// RecentEntries returns the most recently recorded fetches, newest
// first.
func (h *History) RecentEntries(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if h == nil || h.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT
			latitude,
			longitude,
			observed_at,
			fetched_at,
			place_label,
			temperature,
			humidity,
			weather_code,
			wind_speed,
			wind_direction
		FROM forecast_history
		ORDER BY fetched_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		err := rows.Scan(
			&entry.Latitude,
			&entry.Longitude,
			&entry.ObservedAt,
			&entry.FetchedAt,
			&entry.Label,
			&entry.Temperature,
			&entry.Humidity,
			&entry.WeatherCode,
			&entry.WindSpeed,
			&entry.WindDirection,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forecast record: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forecast history: %w", err)
	}

	return entries, nil
}

// Close releases the database connection.
func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/harborops/berthd/core/model"
)

// SQLiteStore persists completed calls to a SQLite database so berth
// performance survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS berth_calls (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        closed_at INTEGER,
        vessel_id TEXT,
        vessel_class TEXT,
        berth_id TEXT,
        score REAL
    );
    CREATE INDEX IF NOT EXISTS idx_berth_calls_class ON berth_calls (vessel_class, berth_id);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// RecordCall writes the call and its performance score.
func (s *SQLiteStore) RecordCall(ctx context.Context, rec CallRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO berth_calls (closed_at, vessel_id, vessel_class, berth_id, score) VALUES (?, ?, ?, ?, ?)`,
		rec.ClosedAt.Unix(), rec.VesselID, rec.VesselClass.String(), rec.BerthID, rec.PerformanceScore())
	return err
}

// BerthScore returns the mean performance of the class at the berth.
func (s *SQLiteStore) BerthScore(class model.VesselType, berthID string) (float64, bool) {
	row := s.db.QueryRow(
		`SELECT AVG(score), COUNT(*) FROM berth_calls WHERE vessel_class = ? AND berth_id = ?`,
		class.String(), berthID)
	var avg sql.NullFloat64
	var n int
	if err := row.Scan(&avg, &n); err != nil || n == 0 || !avg.Valid {
		return 0, false
	}
	return avg.Float64, true
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/siepic/ebeam-cdc/internal/cmt"
	"github.com/siepic/ebeam-cdc/internal/grating"
	"github.com/siepic/ebeam-cdc/internal/sweep"
)

// Run is the stored summary of one simulation.
type Run struct {
	ID        string      `json:"run_id"`
	Name      string      `json:"name"`
	SweepID   string      `json:"sweep_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	Case      sweep.Case  `json:"case"`
	Metrics   cmt.Metrics `json:"metrics"`
	Points    int         `json:"points"`
	Failed    int         `json:"failed"`
	Segments  int         `json:"segments"`
}

// Spectrum holds the stored power spectra of a run. Failed wavelengths
// read back as NaN.
type Spectrum struct {
	Wavelengths  []float64 `json:"wavelengths"`
	ThroughPower []float64 `json:"through_power"`
	DropPower    []float64 `json:"drop_power"`
}

// nullFloat maps non-finite values to NULL.
func nullFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// RecordRun stores c and its result and returns the new run ID. It
// satisfies sweep.Recorder.
func (db *DB) RecordRun(ctx context.Context, c sweep.Case, res *cmt.Result, m cmt.Metrics) (string, error) {
	return db.recordRun(ctx, "", c, res, m)
}

// RecordSweepRun stores a run tagged with the sweep that produced it.
func (db *DB) RecordSweepRun(ctx context.Context, sweepID string, c sweep.Case, res *cmt.Result, m cmt.Metrics) (string, error) {
	return db.recordRun(ctx, sweepID, c, res, m)
}

func (db *DB) recordRun(ctx context.Context, sweepID string, c sweep.Case, res *cmt.Result, m cmt.Metrics) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	caseJSON, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding case: %w", err)
	}
	metricsJSON, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding metrics: %w", err)
	}

	id := uuid.NewString()
	through, drop := res.ThroughPower(), res.DropPower()
	err = retryOnBusy(func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO runs (
				run_id, name, sweep_id, created_at, case_json, metrics_json,
				points, failed, segments, peak_wavelength_nm, peak_drop_db, bandwidth_3db_nm
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, grating.DisplayName(c.Spec), nullStr(sweepID),
			time.Now().UTC().Format(timeLayout),
			string(caseJSON), string(metricsJSON),
			len(res.Wavelengths), res.Failed, res.Segments,
			nullFloat(m.PeakWavelength*1e9), nullFloat(m.PeakDropDB), nullFloat(m.Bandwidth3dB*1e9),
		)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO spectra (run_id, idx, wavelength, through_power, drop_power)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, lam := range res.Wavelengths {
			if _, err := stmt.ExecContext(ctx, id, i, lam, nullFloat(through[i]), nullFloat(drop[i])); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `run_id, name, sweep_id, created_at, case_json, metrics_json, points, failed, segments`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r                 Run
		sweepID, metrics  sql.NullString
		created, caseJSON string
	)
	if err := row.Scan(&r.ID, &r.Name, &sweepID, &created, &caseJSON, &metrics, &r.Points, &r.Failed, &r.Segments); err != nil {
		return nil, err
	}
	r.SweepID = sweepID.String
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at for run %s: %w", r.ID, err)
	}
	r.CreatedAt = t
	if err := json.Unmarshal([]byte(caseJSON), &r.Case); err != nil {
		return nil, fmt.Errorf("decoding case for run %s: %w", r.ID, err)
	}
	if metrics.Valid {
		if err := json.Unmarshal([]byte(metrics.String), &r.Metrics); err != nil {
			return nil, fmt.Errorf("decoding metrics for run %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

// GetRun returns the run with the given ID or ErrNotFound.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first. A limit <= 0
// defaults to 100.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetSpectrum returns the stored spectra of a run in wavelength order.
func (db *DB) GetSpectrum(ctx context.Context, id string) (*Spectrum, error) {
	if _, err := db.GetRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT wavelength, through_power, drop_power
		FROM spectra WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("querying spectrum %s: %w", id, err)
	}
	defer rows.Close()

	s := &Spectrum{}
	for rows.Next() {
		var (
			lam         float64
			through, dr sql.NullFloat64
		)
		if err := rows.Scan(&lam, &through, &dr); err != nil {
			return nil, err
		}
		s.Wavelengths = append(s.Wavelengths, lam)
		s.ThroughPower = append(s.ThroughPower, fromNull(through))
		s.DropPower = append(s.DropPower, fromNull(dr))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// DeleteRun removes a run and its spectra.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	var n int64
	err := retryOnBusy(func() error {
		res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

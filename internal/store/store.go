// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package store keeps a local archive of computed canopy cover
// measurements in a sqlite database, so values survive when the
// hosting pipeline throws the per-run CSV outputs away.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"fieldscan.xyz/canopycover"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	working_dir TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS measurements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	site TEXT NOT NULL,
	species TEXT NOT NULL,
	source TEXT NOT NULL,
	value REAL NOT NULL,
	local_datetime TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_measurements_run ON measurements(run_id);
`

// Store is a handle on the measurement archive.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening measurement archive: %w", err)
	}

	// WAL keeps concurrent transformer runs from blocking each other
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring measurement archive: %w", err)
	}
	if _, err = db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring measurement archive: %w", err)
	}

	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating measurement archive tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the archive.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddRun records a transformer run and returns its id for attaching
// measurements to.
func (s *Store) AddRun(timestamp string, workingDir string) (int64, error) {
	res, err := s.db.Exec("INSERT INTO runs (timestamp, working_dir) VALUES (?, ?)",
		timestamp, workingDir)
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	return res.LastInsertId()
}

// AddMeasurement attaches a computed measurement to a run.
func (s *Store) AddMeasurement(runID int64, m canopycover.Measurement) error {
	_, err := s.db.Exec(
		"INSERT INTO measurements (run_id, site, species, source, value, local_datetime) VALUES (?, ?, ?, ?, ?, ?)",
		runID, m.Plot, m.Species, m.Source, m.Value, m.Time)
	if err != nil {
		return fmt.Errorf("recording measurement for %s: %w", m.Plot, err)
	}
	return nil
}

// Measurements returns all the measurements recorded for a run.
func (s *Store) Measurements(runID int64) ([]canopycover.Measurement, error) {
	rows, err := s.db.Query(
		"SELECT site, species, source, value, local_datetime FROM measurements WHERE run_id = ? ORDER BY id",
		runID)
	if err != nil {
		return nil, fmt.Errorf("reading measurements: %w", err)
	}
	defer rows.Close()

	var ms []canopycover.Measurement
	for rows.Next() {
		var m canopycover.Measurement
		if err := rows.Scan(&m.Plot, &m.Species, &m.Source, &m.Value, &m.Time); err != nil {
			return nil, fmt.Errorf("reading measurements: %w", err)
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

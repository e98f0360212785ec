// Package recorder persists queue summary snapshots to a local sqlite
// database, so qstat can replay the last recorded state when the
// scheduler is slow or unreachable.
package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	slurmaddons "github.com/patirot/ud-slurm-addons"
)

type Recorder struct {
	db *sql.DB
}

// Snapshot is one recorded summary run.
type Snapshot struct {
	TakenAt time.Time
	Groups  []slurmaddons.QueueSummary
}

// DefaultPath is the per user database location used when no path is
// configured.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".slurm-addons", "qstat.db"), nil
}

func New(filename string) (*Recorder, error) {
	var r Recorder
	var err error

	dirName := path.Dir(filename)
	err = os.MkdirAll(dirName, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory %v: %w", dirName, err)
	}

	r.db, err = sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open db filename %v: %w", filename, err)
	}
	err = r.migrate()
	if err != nil {
		return nil, fmt.Errorf("failed to migrate db filename %v: %w", filename, err)
	}

	return &r, nil
}

func (r *Recorder) migrate() error {
	var err error
	_, err = r.db.Exec(`
	CREATE TABLE IF NOT EXISTS summary_snapshot (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at DATETIME NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create summary_snapshot table: %w", err)
	}

	_, err = r.db.Exec(`
	CREATE TABLE IF NOT EXISTS queue_summary (
		snapshot_id INTEGER NOT NULL,
		account TEXT NOT NULL,
		partition TEXT NOT NULL,
		job_count INTEGER NOT NULL,
		running_jobs INTEGER NOT NULL,
		pending_jobs INTEGER NOT NULL,
		node_count INTEGER NOT NULL,
		task_count INTEGER NOT NULL,
		cpu_count INTEGER NOT NULL,
		memory_mb INTEGER NOT NULL,
		PRIMARY KEY (snapshot_id, account, partition)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create queue_summary table: %w", err)
	}

	return nil
}

// RecordSnapshot stores one summary run. The grand total is not
// stored; LatestSnapshot recomputes it from the groups.
func (r *Recorder) RecordSnapshot(takenAt time.Time, groups []slurmaddons.QueueSummary) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to create transaction to record snapshot: %v", err)
	}
	defer tx.Rollback() // nolint: errcheck

	res, err := tx.Exec(`
	INSERT INTO summary_snapshot (taken_at) VALUES (?)
	`, takenAt)
	if err != nil {
		return fmt.Errorf("failed to add snapshot: %v", err)
	}
	snapshotID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get snapshot id: %v", err)
	}

	if len(groups) > 0 {
		var params []any
		var placeholders []string
		for _, g := range groups {
			params = append(params, snapshotID,
				g.Account, g.Partition, g.JobCount,
				g.RunningJobs, g.PendingJobs,
				g.NodeCount, g.TaskCount, g.CPUCount, g.MemoryMB)
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		}
		_, err = tx.Exec(`
		INSERT INTO queue_summary (
			snapshot_id,
			account,
			partition,
			job_count,
			running_jobs,
			pending_jobs,
			node_count,
			task_count,
			cpu_count,
			memory_mb
		) VALUES `+strings.Join(placeholders, ","), params...)
		if err != nil {
			return fmt.Errorf("failed to add summary groups: %v", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit snapshot: %v", err)
	}
	return nil
}

// LatestSnapshot returns the most recently recorded snapshot and its
// recomputed grand total.
func (r *Recorder) LatestSnapshot() (*Snapshot, slurmaddons.QueueSummary, error) {
	var snap Snapshot
	var total slurmaddons.QueueSummary
	var snapshotID int64

	err := r.db.QueryRow(`
		SELECT id, taken_at
		FROM summary_snapshot
		ORDER BY id DESC LIMIT 1
		`).Scan(&snapshotID, &snap.TakenAt)
	if err == sql.ErrNoRows {
		return nil, total, fmt.Errorf("no snapshots recorded yet")
	}
	if err != nil {
		return nil, total, err
	}

	rows, err := r.db.Query(`
		SELECT
			account, partition, job_count,
			running_jobs, pending_jobs,
			node_count, task_count, cpu_count, memory_mb
		FROM queue_summary
		WHERE snapshot_id = ?
		ORDER BY account, partition
		`, snapshotID)
	if err != nil {
		return nil, total, err
	}
	defer rows.Close()

	for rows.Next() {
		var g slurmaddons.QueueSummary
		err = rows.Scan(&g.Account, &g.Partition, &g.JobCount,
			&g.RunningJobs, &g.PendingJobs,
			&g.NodeCount, &g.TaskCount, &g.CPUCount, &g.MemoryMB)
		if err != nil {
			return nil, total, err
		}
		snap.Groups = append(snap.Groups, g)

		total.JobCount += g.JobCount
		total.RunningJobs += g.RunningJobs
		total.PendingJobs += g.PendingJobs
		total.NodeCount += g.NodeCount
		total.TaskCount += g.TaskCount
		total.CPUCount += g.CPUCount
		total.MemoryMB += g.MemoryMB
	}
	if err := rows.Err(); err != nil {
		return nil, total, err
	}

	return &snap, total, nil
}

func (r *Recorder) Close() error {
	return r.db.Close()
}

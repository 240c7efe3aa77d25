package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
)

// ErrRunNotFound is returned by DeleteRun for an unknown run ID.
var ErrRunNotFound = errors.New("import run not found")

// PurgeResult reports what DeleteRun removed.
type PurgeResult struct {
	RunID          string `json:"runId"`
	RecordsDeleted int64  `json:"recordsDeleted"`
	MediaDeleted   int    `json:"mediaDeleted"`
}

// RecordRun writes a finished run to import_runs.
func (s *Store) RecordRun(ctx context.Context, report *core.Report) error {
	runID := ToPgUUID(report.RunID)
	if !runID.Valid {
		return fmt.Errorf("invalid run ID %q", report.RunID)
	}

	errs := report.Errors
	if errs == nil {
		errs = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_runs (run_id, source, principal, started_at, finished_at, total_rows, created, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO NOTHING`,
		runID, report.Source, report.Principal, report.StartedAt, report.FinishedAt,
		report.TotalRows, report.Created, errs)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]core.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT run_id, source, principal, started_at, finished_at, total_rows, created, cardinality(errors)
		FROM import_runs
		WHERE purged_at IS NULL
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []core.RunSummary
	for rows.Next() {
		var (
			r     core.RunSummary
			runID pgtype.UUID
		)
		if err := rows.Scan(&runID, &r.Source, &r.Principal, &r.StartedAt, &r.FinishedAt,
			&r.TotalRows, &r.Created, &r.ErrorCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.RunID = PgUUIDToString(runID)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes every post a run created, with its metadata, terms and
// media files, and marks the run purged. Records updated in place by a run
// keep existing; only inserted posts are stamped.
func (s *Store) DeleteRun(ctx context.Context, runID string) (PurgeResult, error) {
	result := PurgeResult{RunID: runID}

	pgID := ToPgUUID(runID)
	if !pgID.Valid {
		return result, fmt.Errorf("invalid run ID %q", runID)
	}

	var mediaKeys []string
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var known bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM import_runs WHERE run_id = $1) OR EXISTS (SELECT 1 FROM posts WHERE import_run_id = $1)",
			pgID).Scan(&known); err != nil {
			return fmt.Errorf("find run: %w", err)
		}
		if !known {
			return ErrRunNotFound
		}

		rows, err := tx.Query(ctx, `
			SELECT pm.meta_value
			FROM postmeta pm
			JOIN posts p ON p.id = pm.post_id
			WHERE p.import_run_id = $1 AND pm.meta_key = $2`,
			pgID, attachedFileMetaKey)
		if err != nil {
			return fmt.Errorf("list run media: %w", err)
		}
		mediaKeys, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("list run media: %w", err)
		}

		tag, err := tx.Exec(ctx, "DELETE FROM posts WHERE import_run_id = $1", pgID)
		if err != nil {
			return fmt.Errorf("delete run posts: %w", err)
		}
		result.RecordsDeleted = tag.RowsAffected()

		_, err = tx.Exec(ctx, "UPDATE import_runs SET purged_at = $2 WHERE run_id = $1", pgID, time.Now())
		if err != nil {
			return fmt.Errorf("mark run purged: %w", err)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if s.media != nil {
		for _, key := range mediaKeys {
			if err := s.media.Delete(ctx, key); err != nil {
				return result, err
			}
			result.MediaDeleted++
		}
	}
	return result, nil
}

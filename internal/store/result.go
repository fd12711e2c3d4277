package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type resultRepo struct {
	db *sql.DB
}

func (r *resultRepo) SaveResults(ctx context.Context, recs []CounselRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO counsel_results (
		batch_id, item_index, member_code, exam_test_code, status, case_code,
		catalog_version, supporting_score, confidence_tier, payload,
		error_message, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, rec := range recs {
		created := now
		if !rec.CreatedAt.IsZero() {
			created = rec.CreatedAt.UnixMilli()
		}
		_, err := stmt.ExecContext(ctx, rec.BatchID, rec.ItemIndex, rec.MemberCode,
			rec.ExamTestCode, rec.Status, rec.CaseCode, rec.CatalogVersion,
			rec.SupportingScore, rec.ConfidenceTier, rec.Payload,
			rec.ErrorMessage, rec.DurationMs, created)
		if err != nil {
			return fmt.Errorf("save result %s/%d: %w", rec.BatchID, rec.ItemIndex, err)
		}
	}
	return tx.Commit()
}

const resultColumns = `id, batch_id, item_index, member_code, exam_test_code, status, case_code,
	catalog_version, supporting_score, confidence_tier, payload, error_message, duration_ms, created_at`

func (r *resultRepo) ResultsByBatch(ctx context.Context, batchID string) ([]CounselRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+resultColumns+" FROM counsel_results WHERE batch_id = ? ORDER BY item_index", batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch %s: %w", batchID, err)
	}
	defer rows.Close()

	var out []CounselRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *resultRepo) LatestForMember(ctx context.Context, memberCode, examTestCode string) (*CounselRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+resultColumns+` FROM counsel_results
		WHERE member_code = ? AND exam_test_code = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, memberCode, examTestCode)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func scanRecord(s scanner) (*CounselRecord, error) {
	var (
		rec     CounselRecord
		created int64
	)
	err := s.Scan(&rec.ID, &rec.BatchID, &rec.ItemIndex, &rec.MemberCode, &rec.ExamTestCode,
		&rec.Status, &rec.CaseCode, &rec.CatalogVersion, &rec.SupportingScore,
		&rec.ConfidenceTier, &rec.Payload, &rec.ErrorMessage, &rec.DurationMs, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan counsel result: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return &rec, nil
}

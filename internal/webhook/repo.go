package webhook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Get(ctx context.Context, webhookID string) (*Record, error)
	Insert(ctx context.Context, r *Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
}

type repo struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, webhookID string) (*Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, getRecordSQL, webhookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook record: %w", err)
	}
	return &rec, nil
}

func (r *repo) Insert(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, insertRecordSQL,
		rec.WebhookID,
		rec.EventType,
		rec.Status,
		rec.Payload,
		rec.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook record: %w", err)
	}
	return nil
}

func (r *repo) Recent(ctx context.Context, limit int) ([]Record, error) {
	var out []Record
	err := r.db.SelectContext(ctx, &out, recentRecordsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("recent webhook records: %w", err)
	}
	return out, nil
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/user/protoscribe-go/internal/models"
)

// UsageRepository persists per-call provider usage records.
type UsageRepository struct {
	db *sql.DB
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Insert(ctx context.Context, rec models.UsageRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO usage_records (provider, model, input_tokens, output_tokens, cost, analysis_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Provider), rec.Model, rec.InputTokens, rec.OutputTokens,
		rec.Cost, string(rec.AnalysisType), rec.Timestamp)
	return err
}

// FindSince returns usage records newer than the cutoff, newest first.
func (r *UsageRepository) FindSince(ctx context.Context, cutoff time.Time) ([]models.UsageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT provider, model, input_tokens, output_tokens, cost, analysis_type, created_at
		 FROM usage_records WHERE created_at >= ? ORDER BY created_at DESC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var rec models.UsageRecord
		var provider, analysisType string
		if err := rows.Scan(&provider, &rec.Model, &rec.InputTokens, &rec.OutputTokens,
			&rec.Cost, &analysisType, &rec.Timestamp); err != nil {
			return nil, err
		}
		rec.Provider = models.ProviderIdentity(provider)
		rec.AnalysisType = models.AnalysisType(analysisType)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TotalCostSince sums recorded cost over the window.
func (r *UsageRepository) TotalCostSince(ctx context.Context, cutoff time.Time) (float64, error) {
	var total sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(cost) FROM usage_records WHERE created_at >= ?`, cutoff).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/user/protoscribe-go/internal/models"
)

// AnalysisRepository persists completed analyses and their suggestions.
type AnalysisRepository struct {
	db *sql.DB
}

// NewAnalysisRepository creates a new AnalysisRepository.
func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Insert stores an analysis and its suggestions in a single transaction.
func (r *AnalysisRepository) Insert(ctx context.Context, a *models.StoredAnalysis) error {
	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analyses (id, analysis_type, guideline_ids, provider, model, overall_score, fallback_used, result_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.AnalysisType), strings.Join(a.GuidelineIDs, ","),
		string(a.Provider), a.Result.Metadata.Model, a.Result.OverallScore,
		boolToInt(a.Result.Metadata.FallbackUsed), string(resultJSON), a.CreatedAt)
	if err != nil {
		return err
	}

	for _, s := range a.Result.Suggestions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO suggestions (analysis_id, section, type, content, confidence, priority, guideline_ref, rationale)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, s.Section, string(s.Type), s.Content, s.Confidence,
			string(s.Priority), s.GuidelineRef, s.Rationale)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FindByID returns one stored analysis, reconstructed from its result JSON.
func (r *AnalysisRepository) FindByID(ctx context.Context, id string) (*models.StoredAnalysis, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, analysis_type, guideline_ids, provider, result_json, created_at
		 FROM analyses WHERE id = ?`, id)
	return scanStoredAnalysis(row)
}

// FindRecent returns the most recent analyses, newest first.
func (r *AnalysisRepository) FindRecent(ctx context.Context, limit int) ([]*models.StoredAnalysis, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, analysis_type, guideline_ids, provider, result_json, created_at
		 FROM analyses ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*models.StoredAnalysis
	for rows.Next() {
		a, err := scanStoredAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// Delete removes an analysis; suggestions cascade.
func (r *AnalysisRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	return err
}

func scanStoredAnalysis(row rowScanner) (*models.StoredAnalysis, error) {
	var a models.StoredAnalysis
	var analysisType, guidelineIDs, provider, resultJSON string

	err := row.Scan(&a.ID, &analysisType, &guidelineIDs, &provider, &resultJSON, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	a.AnalysisType = models.AnalysisType(analysisType)
	a.Provider = models.ProviderIdentity(provider)
	if guidelineIDs != "" {
		a.GuidelineIDs = strings.Split(guidelineIDs, ",")
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, err
	}
	a.Result = &result
	return &a, nil
}

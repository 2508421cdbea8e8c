//go:build !integration && !e2e
// +build !integration,!e2e

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/tests/testutil"
)

func storedAnalysisFixture(id string) *models.StoredAnalysis {
	return &models.StoredAnalysis{
		ID:           id,
		AnalysisType: models.AnalysisComprehensive,
		GuidelineIDs: []string{"consort", "spirit"},
		Provider:     models.ProviderAnthropic,
		Result: &models.AnalysisResult{
			OverallScore:    78.5,
			GuidelineScores: map[string]float64{"consort": 80, "spirit": 77},
			Categories: map[string]models.CategoryResult{
				"completeness": {Score: 75, Status: models.StatusGood},
			},
			Suggestions: []models.Suggestion{
				{
					Section:    "Methods",
					Type:       models.SuggestionCritical,
					Content:    "Specify the allocation concealment mechanism.",
					Confidence: 0.95,
					Priority:   models.PriorityHigh,
				},
				{
					Section:    "Statistical methods",
					Type:       models.SuggestionImprovement,
					Content:    "State the planned handling of missing outcome data.",
					Confidence: 0.8,
					Priority:   models.PriorityMedium,
				},
			},
			Strengths:      []string{"Well-defined primary endpoint."},
			CriticalIssues: []string{"No sample size justification."},
			Metadata: models.ResultMetadata{
				Provider:          models.ProviderAnthropic,
				RequestedProvider: models.ProviderOpenAI,
				FallbackUsed:      true,
				Model:             "claude-sonnet-4-20250514",
				Timestamp:         time.Now().UTC(),
			},
		},
	}
}

func TestAnalysisRepository_InsertAndFind(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalysisRepository(db)
	ctx := context.Background()

	stored := storedAnalysisFixture("a-1")
	require.NoError(t, repo.Insert(ctx, stored))

	found, err := repo.FindByID(ctx, "a-1")
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisComprehensive, found.AnalysisType)
	assert.Equal(t, []string{"consort", "spirit"}, found.GuidelineIDs)
	assert.Equal(t, models.ProviderAnthropic, found.Provider)
	assert.Equal(t, 78.5, found.Result.OverallScore)
	assert.True(t, found.Result.Metadata.FallbackUsed)
	assert.Len(t, found.Result.Suggestions, 2)
}

func TestAnalysisRepository_SuggestionsPersisted(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalysisRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, storedAnalysisFixture("a-2")))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM suggestions WHERE analysis_id = ?`, "a-2").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestAnalysisRepository_FindMissing(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalysisRepository(db)

	_, err := repo.FindByID(context.Background(), "nope")
	assert.Error(t, err)
}

func TestAnalysisRepository_FindRecent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalysisRepository(db)
	ctx := context.Background()

	older := storedAnalysisFixture("a-old")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Insert(ctx, older))

	newer := storedAnalysisFixture("a-new")
	newer.CreatedAt = time.Now().UTC()
	require.NoError(t, repo.Insert(ctx, newer))

	recent, err := repo.FindRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "a-new", recent[0].ID, "newest first")

	limited, err := repo.FindRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAnalysisRepository_Delete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalysisRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, storedAnalysisFixture("a-del")))
	require.NoError(t, repo.Delete(ctx, "a-del"))

	_, err := repo.FindByID(ctx, "a-del")
	assert.Error(t, err)
}

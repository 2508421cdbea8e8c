package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/user/protoscribe-go/internal/models"
)

// APIKeyRepository provides access to stored API keys.
type APIKeyRepository struct {
	db *sql.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository.
func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) FindByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, key_hash, key_prefix, name, is_active, created_at, last_used_at
		 FROM api_keys WHERE key_hash = ?`, keyHash)
	return scanAPIKey(row)
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id int64) (*models.APIKey, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, key_hash, key_prefix, name, is_active, created_at, last_used_at
		 FROM api_keys WHERE id = ?`, id)
	return scanAPIKey(row)
}

func (r *APIKeyRepository) FindAll(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, key_hash, key_prefix, name, is_active, created_at, last_used_at
		 FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *APIKeyRepository) Insert(ctx context.Context, keyHash, keyPrefix, name string) (*models.APIKey, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, key_prefix, name, is_active, created_at)
		 VALUES (?, ?, ?, 1, ?)`,
		keyHash, keyPrefix, name, now)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.APIKey{
		ID:        id,
		KeyHash:   keyHash,
		KeyPrefix: keyPrefix,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
	}, nil
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	return err
}

func (r *APIKeyRepository) Revoke(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET is_active = 0 WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAPIKey(row rowScanner) (*models.APIKey, error) {
	var k models.APIKey
	var isActive int
	var lastUsed sql.NullTime

	err := row.Scan(&k.ID, &k.KeyHash, &k.KeyPrefix, &k.Name, &isActive, &k.CreatedAt, &lastUsed)
	if err != nil {
		return nil, err
	}

	k.IsActive = isActive == 1
	if lastUsed.Valid {
		k.LastUsedAt = &lastUsed.Time
	}
	return &k, nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
)

// CreateModel registers a model, assigning its ID and creation time.
func (s *Store) CreateModel(model *Model) error {
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	model.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(`
		INSERT INTO models (id, provider, model_name, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, model.ID, model.Provider, model.ModelName, model.DisplayName, model.CreatedAt)
	if err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to create model", err)
	}
	return nil
}

// GetModel retrieves a model by ID.
func (s *Store) GetModel(id string) (*Model, error) {
	var model Model
	err := s.db.QueryRow(`
		SELECT id, provider, model_name, display_name, created_at
		FROM models WHERE id = ?
	`, id).Scan(&model.ID, &model.Provider, &model.ModelName, &model.DisplayName, &model.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, attuneErrors.New(attuneErrors.CodeNotFound, fmt.Sprintf("model not found: %s", id))
	}
	if err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to get model", err)
	}
	return &model, nil
}

// ListModels returns all registered models ordered by creation time.
func (s *Store) ListModels() ([]*Model, error) {
	rows, err := s.db.Query(`
		SELECT id, provider, model_name, display_name, created_at
		FROM models ORDER BY created_at, id
	`)
	if err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to list models", err)
	}
	defer rows.Close()

	var models []*Model
	for rows.Next() {
		var model Model
		if err := rows.Scan(&model.ID, &model.Provider, &model.ModelName, &model.DisplayName, &model.CreatedAt); err != nil {
			return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to scan model", err)
		}
		models = append(models, &model)
	}
	return models, rows.Err()
}

// DeleteModel removes a model by ID.
func (s *Store) DeleteModel(id string) error {
	res, err := s.db.Exec(`DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to delete model", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attuneErrors.New(attuneErrors.CodeNotFound, fmt.Sprintf("model not found: %s", id))
	}
	return nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
)

// CreateAgent inserts a new agent, assigning its ID and creation time.
func (s *Store) CreateAgent(agent *Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	agent.CreatedAt = time.Now().UTC()

	var modelID interface{}
	if agent.ModelID != "" {
		modelID = agent.ModelID
	}

	_, err := s.db.Exec(`
		INSERT INTO agents (id, name, description, persona, model_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, agent.ID, agent.Name, agent.Description, agent.Persona, modelID, agent.CreatedAt)
	if err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to create agent", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID.
func (s *Store) GetAgent(id string) (*Agent, error) {
	var agent Agent
	var modelID sql.NullString
	err := s.db.QueryRow(`
		SELECT id, name, description, persona, model_id, created_at
		FROM agents WHERE id = ?
	`, id).Scan(&agent.ID, &agent.Name, &agent.Description, &agent.Persona, &modelID, &agent.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, attuneErrors.New(attuneErrors.CodeNotFound, fmt.Sprintf("agent not found: %s", id))
	}
	if err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to get agent", err)
	}
	agent.ModelID = modelID.String
	return &agent, nil
}

// ListAgents returns all agents ordered by creation time.
func (s *Store) ListAgents() ([]*Agent, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, persona, model_id, created_at
		FROM agents ORDER BY created_at, id
	`)
	if err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to list agents", err)
	}
	defer rows.Close()

	var agents []*Agent
	for rows.Next() {
		var agent Agent
		var modelID sql.NullString
		if err := rows.Scan(&agent.ID, &agent.Name, &agent.Description, &agent.Persona, &modelID, &agent.CreatedAt); err != nil {
			return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to scan agent", err)
		}
		agent.ModelID = modelID.String
		agents = append(agents, &agent)
	}
	return agents, rows.Err()
}

// DeleteAgent removes an agent by ID.
func (s *Store) DeleteAgent(id string) error {
	res, err := s.db.Exec(`DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to delete agent", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attuneErrors.New(attuneErrors.CodeNotFound, fmt.Sprintf("agent not found: %s", id))
	}
	return nil
}

package memory

import (
	"context"
	"math"
	"time"
)

// Category classifies what kind of fact a memory record holds.
type Category string

const (
	CategoryIdentity            Category = "identity"
	CategoryPreference          Category = "preference"
	CategoryCommunication       Category = "communication"
	CategoryMoodPatterns        Category = "moodPatterns"
	CategoryBoundaries          Category = "boundaries"
	CategoryRelationshipHistory Category = "relationshipHistory"
	CategoryPersonalSymbols     Category = "personalSymbols"
	CategoryAspirations         Category = "aspirations"
	CategoryOther               Category = "other"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryIdentity,
	CategoryPreference,
	CategoryCommunication,
	CategoryMoodPatterns,
	CategoryBoundaries,
	CategoryRelationshipHistory,
	CategoryPersonalSymbols,
	CategoryAspirations,
	CategoryOther,
}

// ValidCategory reports whether s names a known category.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Trigger classifies why a message earned a memory write.
type Trigger string

const (
	TriggerExplicit             Trigger = "explicit"
	TriggerRepetition           Trigger = "repetition"
	TriggerAspirations          Trigger = "aspirations"
	TriggerCorrection           Trigger = "correction"
	TriggerEmotionalSalience    Trigger = "emotionalSalience"
	TriggerContextualContinuity Trigger = "contextualContinuity"
	TriggerNone                 Trigger = "none"
)

// Triggers lists every valid trigger.
var Triggers = []Trigger{
	TriggerExplicit,
	TriggerRepetition,
	TriggerAspirations,
	TriggerCorrection,
	TriggerEmotionalSalience,
	TriggerContextualContinuity,
	TriggerNone,
}

// ValidTrigger reports whether s names a known trigger.
func ValidTrigger(s string) bool {
	for _, t := range Triggers {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Record is a single remembered fact about a user. Records are write-once.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Category  Category  `json:"category"`
	Fact      string    `json:"fact"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchResult pairs a record with its cosine distance from a query vector.
// Smaller distance means more similar.
type SearchResult struct {
	Record   *Record `json:"record"`
	Distance float64 `json:"distance"`
}

// Store persists memory records and answers similarity queries.
type Store interface {
	// Add inserts a record. The caller supplies ID, embedding, and timestamps.
	Add(ctx context.Context, rec *Record) error

	// List returns a user's records, optionally filtered to the given
	// categories (nil or empty = all), in (created_at, id) order.
	List(ctx context.Context, userID string, categories []Category) ([]*Record, error)

	// Search returns up to limit records nearest to the embedding, ordered by
	// ascending cosine distance with record ID as tie-break.
	Search(ctx context.Context, userID string, embedding []float32, limit int) ([]SearchResult, error)

	// Delete removes a record owned by the user.
	Delete(ctx context.Context, userID, id string) error

	// Close releases resources.
	Close() error
}

// cosineDistance computes 1 - cosine similarity. Vectors with zero magnitude
// are treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

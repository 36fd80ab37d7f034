package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrEvaluationNotFound is returned for lookups of unknown record ids or keys.
var ErrEvaluationNotFound = errors.New("evaluation not found")

// EvaluationStore persists and retrieves evaluation records.
type EvaluationStore struct {
	db *gorm.DB
}

// NewEvaluationStore wraps the GORM handle.
func NewEvaluationStore(db *gorm.DB) *EvaluationStore {
	return &EvaluationStore{db: db}
}

// EvaluationFilter narrows List results. Zero values mean "no constraint".
type EvaluationFilter struct {
	PartnerID string
	Country   string
	MinScore  int
	MaxScore  int
}

// Save assigns a fresh record id and inserts the evaluation.
func (s *EvaluationStore) Save(ctx context.Context, rec *Evaluation) (string, error) {
	if rec.ID == "" {
		rec.ID = newEvaluationID()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return "", fmt.Errorf("insert evaluation: %w", err)
	}
	return rec.ID, nil
}

// GetByID fetches one evaluation record.
func (s *EvaluationStore) GetByID(ctx context.Context, id string) (*Evaluation, error) {
	var rec Evaluation
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("query evaluation %q: %w", id, err)
	}
	return &rec, nil
}

// GetByAPIKey fetches the evaluation bound to a per-record retrieval key.
func (s *EvaluationStore) GetByAPIKey(ctx context.Context, apiKey string) (*Evaluation, error) {
	var rec Evaluation
	if err := s.db.WithContext(ctx).First(&rec, "api_key = ?", apiKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("query evaluation by key: %w", err)
	}
	return &rec, nil
}

// SetAPIKey stores the retrieval key on a record.
func (s *EvaluationStore) SetAPIKey(ctx context.Context, id, apiKey string) error {
	res := s.db.WithContext(ctx).Model(&Evaluation{}).Where("id = ?", id).Update("api_key", apiKey)
	if res.Error != nil {
		return fmt.Errorf("update evaluation api key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEvaluationNotFound
	}
	return nil
}

// MarkEmailSent flips the email delivery flag.
func (s *EvaluationStore) MarkEmailSent(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Model(&Evaluation{}).Where("id = ?", id).Update("email_sent", true).Error; err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	return nil
}

// UpdateObjectKeys records where the archived documents and rendered report
// live in object storage.
func (s *EvaluationStore) UpdateObjectKeys(ctx context.Context, id string, documentKeys []byte, reportKey string) error {
	updates := map[string]any{}
	if len(documentKeys) > 0 {
		updates["document_keys"] = documentKeys
	}
	if reportKey != "" {
		updates["report_object_key"] = reportKey
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&Evaluation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("update evaluation object keys: %w", err)
	}
	return nil
}

// List returns evaluations matching the filter, newest first. Records with no
// partner binding are visible to every partner, matching the upstream API.
func (s *EvaluationStore) List(ctx context.Context, filter EvaluationFilter) ([]Evaluation, error) {
	q := s.db.WithContext(ctx).Model(&Evaluation{}).Order("created_at DESC")
	if filter.PartnerID != "" {
		q = q.Where("partner_id = ? OR partner_id = ''", filter.PartnerID)
	}
	if filter.Country != "" {
		q = q.Where("country = ?", filter.Country)
	}
	if filter.MinScore > 0 {
		q = q.Where("score >= ?", filter.MinScore)
	}
	if filter.MaxScore > 0 {
		q = q.Where("score <= ?", filter.MaxScore)
	}

	var recs []Evaluation
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return recs, nil
}

func newEvaluationID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("eval_%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("eval_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(b[:]))
}

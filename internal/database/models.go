package database

import (
	"time"

	"gorm.io/datatypes"
)

// Evaluation is one persisted visa-eligibility result. The string primary key
// (eval_<millis>_<suffix>) doubles as the public record identifier used in
// report filenames, email subjects and result URLs.
type Evaluation struct {
	ID        string `gorm:"primaryKey;size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name     string `gorm:"size:255"`
	Email    string `gorm:"size:255;index"`
	Country  string `gorm:"size:128;index"`
	VisaType string `gorm:"size:128"`

	Score          int
	Summary        string         `gorm:"type:text"`
	Strengths      datatypes.JSON `gorm:"type:jsonb"`
	Improvements   datatypes.JSON `gorm:"type:jsonb"`
	Recommendation string         `gorm:"type:text"`

	// Declared document metadata and the object-store keys of the archived
	// uploads and the rendered report.
	Documents       datatypes.JSON `gorm:"type:jsonb"`
	DocumentKeys    datatypes.JSON `gorm:"type:jsonb"`
	ReportObjectKey string         `gorm:"size:512"`

	EmailSent bool

	// Per-evaluation retrieval key for the partner surface; empty until
	// one is generated.
	APIKey    string `gorm:"size:128;index"`
	PartnerID string `gorm:"size:128;index"`
}

// PartnerKey is a provisioned partner credential. Only the SHA-256 digest of
// the raw key is stored; the raw key is printed once at creation.
type PartnerKey struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	KeyDigest   string `gorm:"uniqueIndex;size:64"`
	PartnerID   string `gorm:"uniqueIndex;size:128"`
	PartnerName string `gorm:"size:255"`
	RateLimit   int
	Active      bool `gorm:"default:true"`
}

// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TrialStatusPending   = "pending"
	TrialStatusCompleted = "completed"
	TrialStatusFailed    = "failed"
)

// DefaultTrialUploadsLimit is the per-user ceiling on completed trials.
const DefaultTrialUploadsLimit = 10

type User struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email             string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash      string     `gorm:"not null" json:"-"`
	Name              string     `json:"name"`
	EmailVerified     bool       `gorm:"default:false" json:"-"`
	TrialUploadsCount int        `gorm:"not null;default:0" json:"trialUploadsCount"`
	TrialUploadsLimit int        `gorm:"not null;default:10" json:"trialUploadsLimit"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
	CreatedAt         time.Time  `json:"joinedAt"`
	UpdatedAt         time.Time  `json:"-"`

	Trials []Trial `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.TrialUploadsLimit == 0 {
		u.TrialUploadsLimit = DefaultTrialUploadsLimit
	}
	return nil
}

// Trial is one upload-and-enhance transaction: the ledger row tracking
// the original and processed archive objects, the image count, and the
// download expiry window.
type Trial struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	OriginalFilename  string         `json:"originalFilename"`
	OriginalObject    string         `json:"-"`
	ProcessedObject   string         `json:"-"`
	FileSize          int64          `json:"fileSize"`
	ImagesCount       int            `gorm:"default:0" json:"imagesCount"`
	Status            string         `gorm:"type:varchar(50);not null;index;default:'pending'" json:"status"`
	ProcessingError   string         `gorm:"type:text" json:"processingError,omitempty"`
	UploadedAt        time.Time      `gorm:"autoCreateTime" json:"uploadedAt"`
	ProcessedAt       *time.Time     `json:"processedAt,omitempty"`
	DownloadExpiresAt *time.Time     `json:"downloadExpiresAt,omitempty"`
	Metadata          datatypes.JSON `gorm:"type:jsonb" json:"-"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (t *Trial) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Feedback is a free-standing survey response. Rows are never updated
// after creation.
type Feedback struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          *uuid.UUID `gorm:"type:uuid;index" json:"userId,omitempty"`
	UserType        string     `gorm:"type:text;index" json:"userType"`
	WhatMatters     string     `gorm:"type:text" json:"whatMatters,omitempty"`
	WhichBetter     string     `gorm:"type:text" json:"whichBetter,omitempty"`
	UseOverPhone    string     `gorm:"type:text" json:"useOverPhone,omitempty"`
	CurrentBehavior string     `gorm:"type:text" json:"currentBehavior,omitempty"`
	Thoughts        string     `gorm:"type:text" json:"thoughts,omitempty"`
	IPAddress       string     `json:"-"`
	UserAgent       string     `gorm:"type:text" json:"-"`
	SessionID       string     `json:"-"`
	SubmittedAt     time.Time  `gorm:"autoCreateTime;index" json:"submittedAt"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

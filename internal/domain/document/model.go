package document

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Well-known failure reasons stored in ErrorMessage. Anything else
// is free text from the parsing layer.
const (
	ReasonNoReadings = "no_readings"
	ReasonDuplicate  = "duplicate"
	ReasonTimeout    = "timeout"
)

// ContinuationName is the sentinel patient name recorded on
// auxiliary documents created for extra pages of a multi-page
// report.
const ContinuationName = "Additional page"

// Document is one uploaded report file together with the metadata
// extracted from it.
type Document struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	AccountID    uuid.UUID  `json:"account_id" db:"account_id"`
	ProfileID    *uuid.UUID `json:"profile_id,omitempty" db:"profile_id"`
	StoragePath  string     `json:"storage_path" db:"storage_path"`
	FileType     string     `json:"file_type" db:"file_type"`
	FileSize     int64      `json:"file_size" db:"file_size"`
	Status       Status     `json:"status" db:"status"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	ParsedName   *string    `json:"parsed_name,omitempty" db:"parsed_name"`
	ParsedDOB    *string    `json:"parsed_dob,omitempty" db:"parsed_dob"`
	ParsedSex    *string    `json:"parsed_sex,omitempty" db:"parsed_sex"`
	TestDate     *string    `json:"test_date,omitempty" db:"test_date"`
	LabName      *string    `json:"lab_name,omitempty" db:"lab_name"`
	DocumentType *string    `json:"document_type,omitempty" db:"document_type"`
	Language     *string    `json:"language,omitempty" db:"language"`
	IsPartial    bool       `json:"is_partial" db:"is_partial"`
	// ParsedPayload keeps the raw structured parse result for audit.
	ParsedPayload    json.RawMessage `json:"-" db:"parsed_payload"`
	AIModel          *string         `json:"ai_model,omitempty" db:"ai_model"`
	AITokensIn       int             `json:"ai_tokens_in" db:"ai_tokens_in"`
	AITokensOut      int             `json:"ai_tokens_out" db:"ai_tokens_out"`
	ProcessingTimeMs int64           `json:"processing_time_ms" db:"processing_time_ms"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Reading is one extracted measurement attached to a profile.
// Numeric readings carry Value; qualitative results ("negative",
// "trace") carry ValueText instead.
type Reading struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	DocumentID   uuid.UUID  `json:"document_id" db:"document_id"`
	ProfileID    uuid.UUID  `json:"profile_id" db:"profile_id"`
	BiomarkerID  *uuid.UUID `json:"biomarker_id,omitempty" db:"biomarker_id"`
	OriginalName string     `json:"original_name" db:"original_name"`
	Value        *float64   `json:"value,omitempty" db:"value"`
	ValueText    *string    `json:"value_text,omitempty" db:"value_text"`
	Unit         *string    `json:"unit,omitempty" db:"unit"`
	RefMin       *float64   `json:"ref_min,omitempty" db:"ref_min"`
	RefMax       *float64   `json:"ref_max,omitempty" db:"ref_max"`
	Flag         string     `json:"flag" db:"flag"`
	TestedAt     string     `json:"tested_at" db:"tested_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Reading flags as reported by the lab.
const (
	FlagNormal   = "normal"
	FlagHigh     = "high"
	FlagLow      = "low"
	FlagCritical = "critical"
)

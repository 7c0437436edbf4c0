package types

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DocType is the closed set of supported document templates. Unknown inputs
// map to DocTypeCustom, which the question bank serves with a fallback set.
type DocType string

const (
	DocTypeRFP            DocType = "Request for Proposal (RFP)"
	DocTypeBRD            DocType = "Business Requirement Document (BRD)"
	DocTypeSRS            DocType = "Software Requirements Specification (SRS)"
	DocTypeRACI           DocType = "RACI Matrix"
	DocTypeUserStories    DocType = "User Stories & Acceptance Criteria"
	DocTypeImpactAnalysis DocType = "Impact Analysis"
	DocTypeCustom         DocType = "Custom Document"
)

// KnownDocTypes lists the curated templates in presentation order.
var KnownDocTypes = []DocType{
	DocTypeRFP,
	DocTypeBRD,
	DocTypeSRS,
	DocTypeRACI,
	DocTypeUserStories,
	DocTypeImpactAnalysis,
}

// ParseDocType maps a raw string onto the closed enumeration.
func ParseDocType(raw string) DocType {
	s := strings.TrimSpace(raw)
	for _, dt := range KnownDocTypes {
		if strings.EqualFold(s, string(dt)) {
			return dt
		}
	}
	return DocTypeCustom
}

// Known reports whether the doc type has a curated question set.
func (d DocType) Known() bool {
	for _, dt := range KnownDocTypes {
		if d == dt {
			return true
		}
	}
	return false
}

func (d DocType) String() string { return string(d) }

// Template describes a selectable document template.
type Template struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Type        DocType `json:"type"`
}

// TemplateFor builds the minimal template used when a flow starts from a bare
// doc type (opening an existing artifact, or create-project-with-template).
func TemplateFor(dt DocType) Template {
	return Template{ID: string(dt), Name: string(dt), Type: dt}
}

// Question is one interview prompt. The ID is assigned once when the set is
// produced and carried immutably in answers; it is never recomputed from the
// slice position afterwards.
type Question struct {
	ID          int    `json:"id"`
	Text        string `json:"text"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required"`
}

// Answer pairs a question with the user's (or auto-extracted) response. The
// question text is snapshotted so stored artifacts stay readable even if the
// question set changes between generations.
type Answer struct {
	QuestionID   int    `json:"questionId"`
	QuestionText string `json:"questionText"`
	Text         string `json:"text"`
}

// AnswersEqual reports exact field-by-field equality of two answer sets.
// Order matters; this backs the skip-regeneration check and must never be
// fuzzy.
func AnswersEqual(a, b []Answer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ReferenceFile is an uploaded reference document after encoding. Payload
// holds the zlib-compressed bytes; OriginalSize is kept for display only and
// plays no part in the size ceiling check. Immutable once attached.
type ReferenceFile struct {
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	OriginalSize int64     `json:"originalSize"`
	Payload      []byte    `json:"payload,omitempty"`
	IsCompressed bool      `json:"isCompressed"`
	AddedAt      time.Time `json:"addedAt,omitempty"`
}

// Validate checks the fields a caller must supply before encoding.
func (f ReferenceFile) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.MimeType, validation.Required),
	)
}

// DocumentArtifact is one saved, versioned document within a project. Saves
// against an existing ID bump Version by exactly one and overwrite Content,
// Answers and LastUpdated; prior versions are not retained.
type DocumentArtifact struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        DocType   `json:"type"`
	Content     string    `json:"content"`
	Answers     []Answer  `json:"answers"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Project owns its reference files and artifacts exclusively.
type Project struct {
	ID          string             `json:"id"`
	OwnerID     string             `json:"ownerId"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Files       []ReferenceFile    `json:"files"`
	Artifacts   []DocumentArtifact `json:"artifacts"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// Validate enforces the minimum shape for a create/update.
func (p Project) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.OwnerID, validation.Required),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
	)
}

// GeneratedDocument is the transient preview of a generation in flight or
// awaiting save.
type GeneratedDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

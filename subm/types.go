package subm

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paper-guides/backend/fingerprint"
)

type Kind string

const (
	KindQuestion     Kind = "question"
	KindYearlyPaper  Kind = "paper-yearly"
	KindTopicalPaper Kind = "paper-topical"
)

// Kinds lists every submission kind in listing order.
var Kinds = []Kind{KindQuestion, KindYearlyPaper, KindTopicalPaper}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindQuestion, KindYearlyPaper, KindTopicalPaper:
		return k, nil
	default:
		return "", fmt.Errorf("unknown submission kind %q", s)
	}
}

func (k Kind) IsPaper() bool {
	return k == KindYearlyPaper || k == KindTopicalPaper
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeleted  Status = "deleted"
)

// CanTransitionTo reports whether next is a legal successor of s.
// Deleted is terminal and nothing moves back to pending.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusDeleted
	case StatusApproved:
		return next == StatusDeleted
	default:
		return false
	}
}

type Metadata struct {
	Board     string `json:"board" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	Level     string `json:"level" validate:"required"`
	Component string `json:"component" validate:"required"`

	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`

	// Year is the display year; for A Levels papers it includes the session label.
	Year    string `json:"year"`
	Session string `json:"session"`
}

// Subm is a submitted question or paper. Blob slices are owned by the store
// and must not be modified by readers.
type Subm struct {
	ID   int64
	UUID uuid.UUID
	Kind Kind
	Metadata

	QuestionBlob []byte
	SolutionBlob []byte
	QuestionMime string
	SolutionMime string

	// Digests of the blobs recorded at ingestion. Listings may leave the
	// blobs out of entities that carry them.
	QuestionFingerprint string
	SolutionFingerprint string
	QuestionSize        int
	SolutionSize        int

	SubmittedBy string
	SubmittedOn time.Time
	SubmitterIP string

	Status      Status
	ModeratedBy string
	ModeratedOn *time.Time

	// ParentUUID links a question split out of a topical paper to that paper.
	ParentUUID *uuid.UUID
}

func (s *Subm) IsChild() bool {
	return s.ParentUUID != nil
}

func (s *Subm) recordDigests() {
	s.QuestionFingerprint = fingerprint.Of(s.QuestionBlob)
	s.QuestionSize = len(s.QuestionBlob)
	s.SolutionFingerprint = ""
	s.SolutionSize = len(s.SolutionBlob)
	if len(s.SolutionBlob) > 0 {
		s.SolutionFingerprint = fingerprint.Of(s.SolutionBlob)
	}
}

// PreviewItem is what administrators see of a submission before approval.
// It never carries blob bytes.
type PreviewItem struct {
	ID                  int64      `json:"id"`
	UUID                uuid.UUID  `json:"uuid"`
	Kind                Kind       `json:"kind"`
	Status              Status     `json:"status"`
	QuestionFingerprint string     `json:"question_fingerprint"`
	SolutionFingerprint string     `json:"solution_fingerprint,omitempty"`
	QuestionMime        string     `json:"question_mime,omitempty"`
	SolutionMime        string     `json:"solution_mime,omitempty"`
	QuestionBytes       int        `json:"question_bytes"`
	SolutionBytes       int        `json:"solution_bytes"`
	Board               string     `json:"board"`
	Subject             string     `json:"subject"`
	Level               string     `json:"level"`
	Component           string     `json:"component"`
	Topic               string     `json:"topic,omitempty"`
	Difficulty          string     `json:"difficulty,omitempty"`
	Year                string     `json:"year,omitempty"`
	SubmittedBy         string     `json:"submitted_by"`
	SubmittedOn         time.Time  `json:"submitted_on"`
	ParentUUID          *uuid.UUID `json:"parent_uuid,omitempty"`
	Children            int        `json:"children"`
}

type PreviewDetail struct {
	PreviewItem
	ModeratedBy string        `json:"moderated_by,omitempty"`
	ModeratedOn *time.Time    `json:"moderated_on,omitempty"`
	ChildItems  []PreviewItem `json:"child_items,omitempty"`
}

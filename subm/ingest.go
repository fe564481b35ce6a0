package subm

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/paper-guides/backend/auth"
	"github.com/paper-guides/backend/logger"
	"github.com/wailsapp/mimetype"
)

const DefaultMaxBlobBytes = 16 << 20

// TopicPart is one per-topic question carved out of a topical paper.
type TopicPart struct {
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	QuestionBlob []byte `json:"question_file" validate:"required,min=1"`
	SolutionBlob []byte `json:"solution_file"`
}

type IngestParams struct {
	Kind         Kind        `json:"kind" validate:"required,oneof=question paper-yearly paper-topical"`
	Metadata     Metadata    `json:"metadata"`
	QuestionBlob []byte      `json:"question_file" validate:"required,min=1"`
	SolutionBlob []byte      `json:"solution_file"`
	Parts        []TopicPart `json:"parts" validate:"dive"`

	Submitter auth.Actor `json:"-" validate:"-"`
	ClientIP  string     `json:"-"`
}

type autoApprover interface {
	Approve(ctx context.Context, actor auth.Actor, id uuid.UUID) error
}

type Ingester struct {
	store        ContentStore
	approver     autoApprover
	validate     *validator.Validate
	maxBlobBytes int64
	now          func() time.Time
}

// NewIngester wires an ingester; approver may be nil to disable auto-approval
// of administrator submissions.
func NewIngester(store ContentStore, approver *Moderator, maxBlobBytes int64) *Ingester {
	if maxBlobBytes <= 0 {
		maxBlobBytes = DefaultMaxBlobBytes
	}
	i := &Ingester{
		store:        store,
		validate:     newValidator(),
		maxBlobBytes: maxBlobBytes,
		now:          time.Now,
	}
	if approver != nil {
		i.approver = approver
	}
	return i
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		p := sl.Current().Interface().(IngestParams)
		if p.Kind == KindYearlyPaper && strings.TrimSpace(p.Metadata.Year) == "" {
			sl.ReportError(p.Metadata.Year, "year", "Year", "required_for_yearly", "")
		}
	}, IngestParams{})
	return v
}

// Ingest validates and stores a new submission and returns its uuid. For a
// topical paper the paper and its per-topic questions are stored together.
// Storage errors are returned as they came from the store.
func (i *Ingester) Ingest(ctx context.Context, p IngestParams) (uuid.UUID, error) {
	log := logger.FromContext(ctx)

	if err := auth.RequireLogin(p.Submitter); err != nil {
		return uuid.Nil, err
	}
	p.Metadata = trimMetadata(p.Metadata)
	if err := i.validateParams(p); err != nil {
		return uuid.Nil, err
	}

	now := i.now().UTC()
	entity := i.newEntity(p.Kind, p.Metadata, p.QuestionBlob, p.SolutionBlob, p.Submitter, p.ClientIP, now)
	if p.Kind == KindYearlyPaper {
		entity.Year = DisplayYear(p.Metadata.Board, p.Metadata.Year, p.Metadata.Session)
	}

	var children []Subm
	if p.Kind == KindTopicalPaper {
		children = i.splitTopical(entity, p, now)
	}

	id, err := i.store.Insert(ctx, entity, children...)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to store submission: %w", err)
	}
	log.Info("submission created",
		"uuid", id,
		"kind", p.Kind,
		"children", len(children),
		"submitted_by", p.Submitter.Username,
		"ip", p.ClientIP)

	if p.Submitter.IsAdmin() && i.approver != nil {
		if err := i.approver.Approve(ctx, p.Submitter, id); err != nil {
			log.Warn("auto-approval of admin submission failed, left pending",
				"uuid", id, "error", err)
		} else {
			log.Info("admin submission auto-approved", "uuid", id)
		}
	}

	return id, nil
}

func (i *Ingester) validateParams(p IngestParams) error {
	err := i.validate.Struct(p)
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return newErrMissingFields([]string{err.Error()}).SetDebug(err)
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldPath(fe.Namespace()))
		}
		return newErrMissingFields(fields).SetDebug(err)
	}

	if len(p.Parts) > 0 && p.Kind != KindTopicalPaper {
		return newErrPartsNotAllowed(p.Kind)
	}

	if int64(len(p.QuestionBlob)) > i.maxBlobBytes {
		return newErrBlobTooLarge("question_file", i.maxBlobBytes)
	}
	if int64(len(p.SolutionBlob)) > i.maxBlobBytes {
		return newErrBlobTooLarge("solution_file", i.maxBlobBytes)
	}
	for _, part := range p.Parts {
		if int64(len(part.QuestionBlob)) > i.maxBlobBytes || int64(len(part.SolutionBlob)) > i.maxBlobBytes {
			return newErrBlobTooLarge("parts", i.maxBlobBytes)
		}
	}
	return nil
}

// fieldPath strips the root struct name: "IngestParams.metadata.board" -> "metadata.board".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func (i *Ingester) newEntity(kind Kind, meta Metadata, question, solution []byte, submitter auth.Actor, ip string, at time.Time) Subm {
	s := Subm{
		UUID:         uuid.New(),
		Kind:         kind,
		Metadata:     meta,
		QuestionBlob: question,
		SolutionBlob: solution,
		QuestionMime: detectMime(question),
		SolutionMime: detectMime(solution),
		SubmittedBy:  submitter.Username,
		SubmittedOn:  at,
		SubmitterIP:  ip,
		Status:       StatusPending,
	}
	s.recordDigests()
	return s
}

// splitTopical turns a topical paper into its question children. Without
// explicit parts the whole paper becomes a single question.
func (i *Ingester) splitTopical(parent Subm, p IngestParams, at time.Time) []Subm {
	parts := p.Parts
	if len(parts) == 0 {
		parts = []TopicPart{{
			Topic:        p.Metadata.Topic,
			Difficulty:   p.Metadata.Difficulty,
			QuestionBlob: p.QuestionBlob,
			SolutionBlob: p.SolutionBlob,
		}}
	}

	parentUUID := parent.UUID
	children := make([]Subm, 0, len(parts))
	for _, part := range parts {
		meta := Metadata{
			Board:      parent.Board,
			Subject:    parent.Subject,
			Level:      parent.Level,
			Component:  parent.Component,
			Topic:      strings.TrimSpace(part.Topic),
			Difficulty: strings.TrimSpace(part.Difficulty),
		}
		child := i.newEntity(KindQuestion, meta, part.QuestionBlob, part.SolutionBlob, p.Submitter, p.ClientIP, at)
		child.ParentUUID = &parentUUID
		children = append(children, child)
	}
	return children
}

func trimMetadata(m Metadata) Metadata {
	return Metadata{
		Board:      strings.TrimSpace(m.Board),
		Subject:    strings.TrimSpace(m.Subject),
		Level:      strings.TrimSpace(m.Level),
		Component:  strings.TrimSpace(m.Component),
		Topic:      strings.TrimSpace(m.Topic),
		Difficulty: strings.TrimSpace(m.Difficulty),
		Year:       strings.TrimSpace(m.Year),
		Session:    strings.TrimSpace(m.Session),
	}
}

func detectMime(blob []byte) string {
	if len(blob) == 0 {
		return ""
	}
	return mimetype.Detect(blob).String()
}

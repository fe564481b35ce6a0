package subm_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paper-guides/backend/auth"
	"github.com/paper-guides/backend/subm"
	"github.com/stretchr/testify/require"
)

var (
	admin = auth.Actor{Username: "admin", Role: auth.RoleAdmin}
	alice = auth.Actor{Username: "alice", Role: auth.RoleUser}
)

var pdfBlob = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")

// storeMock wraps a real store; non-nil func fields replace the wrapped method.
type storeMock struct {
	subm.ContentStore

	insertFunc func(ctx context.Context, s subm.Subm, children ...subm.Subm) (uuid.UUID, error)

	casWins  atomic.Int32
	casCalls atomic.Int32
}

func (m *storeMock) Insert(ctx context.Context, s subm.Subm, children ...subm.Subm) (uuid.UUID, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, s, children...)
	}
	return m.ContentStore.Insert(ctx, s, children...)
}

func (m *storeMock) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next subm.Status, actor string) (bool, error) {
	m.casCalls.Add(1)
	ok, err := m.ContentStore.UpdateStatus(ctx, id, expected, next, actor)
	if ok {
		m.casWins.Add(1)
	}
	return ok, err
}

func question(submittedOn time.Time) subm.Subm {
	return subm.Subm{
		UUID: uuid.New(),
		Kind: subm.KindQuestion,
		Metadata: subm.Metadata{
			Board:     "IGCSE",
			Subject:   "Physics",
			Level:     "Core",
			Component: "Paper 2",
			Topic:     "Waves",
		},
		QuestionBlob: []byte("question"),
		SolutionBlob: []byte("solution"),
		SubmittedBy:  "alice",
		SubmittedOn:  submittedOn,
		Status:       subm.StatusPending,
	}
}

func questionParams(submitter auth.Actor) subm.IngestParams {
	return subm.IngestParams{
		Kind: subm.KindQuestion,
		Metadata: subm.Metadata{
			Board:      "IGCSE",
			Subject:    "Chemistry",
			Level:      "Extended",
			Component:  "Paper 4",
			Topic:      "Stoichiometry",
			Difficulty: "hard",
		},
		QuestionBlob: pdfBlob,
		SolutionBlob: []byte("answer is 42"),
		Submitter:    submitter,
		ClientIP:     "203.0.113.7",
	}
}

func topicalParams(submitter auth.Actor, parts ...subm.TopicPart) subm.IngestParams {
	return subm.IngestParams{
		Kind: subm.KindTopicalPaper,
		Metadata: subm.Metadata{
			Board:     "A Levels",
			Subject:   "Mathematics",
			Level:     "AS",
			Component: "Pure 1",
		},
		QuestionBlob: pdfBlob,
		SolutionBlob: []byte("mark scheme"),
		Parts:        parts,
		Submitter:    submitter,
		ClientIP:     "203.0.113.8",
	}
}

func mustGet(t *testing.T, store subm.ContentStore, id uuid.UUID) *subm.Subm {
	t.Helper()
	s, err := store.GetByUUID(context.Background(), id)
	require.NoError(t, err)
	return s
}

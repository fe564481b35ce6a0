package subm_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paper-guides/backend/auth"
	"github.com/paper-guides/backend/fingerprint"
	"github.com/paper-guides/backend/srvcerror"
	"github.com/paper-guides/backend/subm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestModeratorRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	store := subm.NewInMemStore()
	mod := subm.NewModerator(store)

	id, err := newIngester(store).Ingest(ctx, questionParams(alice))
	require.NoError(t, err)

	for _, actor := range []auth.Actor{alice, auth.Guest, {Username: "", Role: auth.RoleAdmin}} {
		err := mod.Approve(ctx, actor, id)
		require.Error(t, err)
		assert.True(t, srvcerror.HasCode(err, auth.ErrCodeAdminRoleRequired))

		err = mod.Delete(ctx, actor, id)
		assert.True(t, srvcerror.HasCode(err, auth.ErrCodeAdminRoleRequired))

		_, err = mod.ListPending(ctx, actor, subm.KindQuestion)
		assert.True(t, srvcerror.HasCode(err, auth.ErrCodeAdminRoleRequired))

		_, err = mod.Preview(ctx, actor, id)
		assert.True(t, srvcerror.HasCode(err, auth.ErrCodeAdminRoleRequired))
	}

	assert.Equal(t, subm.StatusPending, mustGet(t, store, id).Status)
}

func TestModeratorUnknownSubmission(t *testing.T) {
	ctx := context.Background()
	mod := subm.NewModerator(subm.NewInMemStore())
	id := uuid.New()

	err := mod.Approve(ctx, admin, id)
	assert.ErrorIs(t, err, subm.ErrNotFound)

	err = mod.Delete(ctx, admin, id)
	assert.ErrorIs(t, err, subm.ErrNotFound)

	_, err = mod.Preview(ctx, admin, id)
	assert.ErrorIs(t, err, subm.ErrNotFound)
}

func TestModeratorApproveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := subm.NewInMemStore()
	mod := subm.NewModerator(store)

	id, err := newIngester(store).Ingest(ctx, questionParams(alice))
	require.NoError(t, err)

	require.NoError(t, mod.Approve(ctx, admin, id))
	require.NoError(t, mod.Approve(ctx, admin, id))
	assert.Equal(t, subm.StatusApproved, mustGet(t, store, id).Status)
}

func TestModeratorDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := subm.NewInMemStore()
	mod := subm.NewModerator(store)

	id, err := newIngester(store).Ingest(ctx, questionParams(alice))
	require.NoError(t, err)

	require.NoError(t, mod.Delete(ctx, admin, id))
	require.NoError(t, mod.Delete(ctx, admin, id))

	s := mustGet(t, store, id)
	assert.Equal(t, subm.StatusDeleted, s.Status)
	assert.Equal(t, "admin", s.ModeratedBy)
}

func TestModeratorApproveAfterDeleteIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := subm.NewInMemStore()
	mod := subm.NewModerator(store)

	id, err := newIngester(store).Ingest(ctx, questionParams(alice))
	require.NoError(t, err)
	require.NoError(t, mod.Delete(ctx, admin, id))

	err = mod.Approve(ctx, admin, id)
	assert.ErrorIs(t, err, subm.ErrNotFound)
	assert.Equal(t, subm.StatusDeleted, mustGet(t, store, id).Status)
}

func TestModeratorDeleteApproved(t *testing.T) {
	ctx := context.Background()
	store := subm.NewInMemStore()
	mod := subm.NewModerator(store)

	id, err := newIngester(store).Ingest(ctx, questionParams(alice))
	require.NoError(t, err)
	require.NoError(t, mod.Approve(ctx, admin, id))
	require.NoError(t, mod.Delete(ctx, admin, id))
	assert.Equal(t, subm.StatusDeleted, mustGet(t, store, id).Status)
}

func TestModeratorCascades(t *testing.T) {
	ctx := context.Background()
	store := subm.NewInMemStore()
	mod := subm.NewModerator(store)

	id, err := newIngester(store).Ingest(ctx, topicalParams(alice,
		subm.TopicPart{Topic: "Algebra", QuestionBlob: []byte("q1")},
		subm.TopicPart{Topic: "Geometry", QuestionBlob: []byte("q2")},
	))
	require.NoError(t, err)
	children, err := store.ListChildren(ctx, id)
	require.NoError(t, err)
	require.Len(t, children, 2)

	// a child deleted on its own stays deleted when the paper is approved
	require.NoError(t, mod.Delete(ctx, admin, children[0].UUID))
	require.NoError(t, mod.Approve(ctx, admin, id))

	assert.Equal(t, subm.StatusApproved, mustGet(t, store, id).Status)
	assert.Equal(t, subm.StatusDeleted, mustGet(t, store, children[0].UUID).Status)
	assert.Equal(t, subm.StatusApproved, mustGet(t, store, children[1].UUID).Status)

	require.NoError(t, mod.Delete(ctx, admin, id))
	assert.Equal(t, subm.StatusDeleted, mustGet(t, store, children[1].UUID).Status)
}

func TestModeratorConcurrentApprove(t *testing.T) {
	ctx := context.Background()
	inner := subm.NewInMemStore()
	store := &storeMock{ContentStore: inner}
	mod := subm.NewModerator(store)

	id, err := newIngester(inner).Ingest(ctx, topicalParams(alice,
		subm.TopicPart{Topic: "Algebra", QuestionBlob: []byte("q1")},
		subm.TopicPart{Topic: "Geometry", QuestionBlob: []byte("q2")},
	))
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			return mod.Approve(ctx, admin, id)
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(16), store.casCalls.Load())
	assert.Equal(t, int32(1), store.casWins.Load())

	children, err := inner.ListChildren(ctx, id)
	require.NoError(t, err)
	for _, c := range children {
		assert.Equal(t, subm.StatusApproved, c.Status)
	}
}

func TestModeratorListPending(t *testing.T) {
	ctx := context.Background()
	store := subm.NewInMemStore()
	mod := subm.NewModerator(store)

	base := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	second := question(base.Add(time.Minute))
	first := question(base)
	approved := question(base.Add(-time.Hour))
	for _, s := range []subm.Subm{second, first, approved} {
		_, err := store.Insert(ctx, s)
		require.NoError(t, err)
	}
	require.NoError(t, mod.Approve(ctx, admin, approved.UUID))

	paperID, err := newIngester(store).Ingest(ctx, topicalParams(alice,
		subm.TopicPart{Topic: "Algebra", QuestionBlob: []byte("q1")},
		subm.TopicPart{Topic: "Geometry", QuestionBlob: []byte("q2")},
	))
	require.NoError(t, err)

	items, err := mod.ListPending(ctx, admin, subm.KindQuestion)
	require.NoError(t, err)
	require.Len(t, items, 2, "approved and child questions are not listed")
	assert.Equal(t, first.UUID, items[0].UUID)
	assert.Equal(t, second.UUID, items[1].UUID)
	assert.Equal(t, fingerprint.Of(first.QuestionBlob), items[0].QuestionFingerprint)
	assert.Equal(t, fingerprint.Of(first.SolutionBlob), items[0].SolutionFingerprint)
	assert.Equal(t, len(first.QuestionBlob), items[0].QuestionBytes)

	papers, err := mod.ListPending(ctx, admin, subm.KindTopicalPaper)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, paperID, papers[0].UUID)
	assert.Equal(t, 2, papers[0].Children)

	_, err = mod.ListPending(ctx, admin, subm.Kind("essay"))
	assert.ErrorIs(t, err, subm.ErrValidation)
}

// bloblessStore lists entities without their blobs, like the database store
// does for rows with recorded digests.
type bloblessStore struct {
	subm.ContentStore
}

func (b bloblessStore) ListByStatus(ctx context.Context, status subm.Status, kind subm.Kind) ([]subm.Subm, error) {
	list, err := b.ContentStore.ListByStatus(ctx, status, kind)
	for i := range list {
		list[i].QuestionBlob = nil
		list[i].SolutionBlob = nil
	}
	return list, err
}

func TestModeratorListPendingUsesRecordedDigests(t *testing.T) {
	ctx := context.Background()
	store := subm.NewInMemStore()

	id, err := newIngester(store).Ingest(ctx, questionParams(alice))
	require.NoError(t, err)

	items, err := subm.NewModerator(bloblessStore{store}).ListPending(ctx, admin, subm.KindQuestion)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].UUID)
	assert.Equal(t, fingerprint.Of(pdfBlob), items[0].QuestionFingerprint)
	assert.Equal(t, fingerprint.Of([]byte("answer is 42")), items[0].SolutionFingerprint)
	assert.Equal(t, len(pdfBlob), items[0].QuestionBytes)
	assert.Equal(t, len("answer is 42"), items[0].SolutionBytes)
}

func TestModeratorPreview(t *testing.T) {
	ctx := context.Background()
	store := subm.NewInMemStore()
	mod := subm.NewModerator(store)

	id, err := newIngester(store).Ingest(ctx, topicalParams(alice,
		subm.TopicPart{Topic: "Algebra", QuestionBlob: []byte("q1"), SolutionBlob: []byte("s1")},
		subm.TopicPart{Topic: "Geometry", QuestionBlob: []byte("q2")},
	))
	require.NoError(t, err)

	detail, err := mod.Preview(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, id, detail.UUID)
	assert.Equal(t, fingerprint.Of(pdfBlob), detail.QuestionFingerprint)
	assert.Equal(t, "application/pdf", detail.QuestionMime)
	assert.Equal(t, 2, detail.Children)
	require.Len(t, detail.ChildItems, 2)

	byTopic := map[string]subm.PreviewItem{}
	for _, c := range detail.ChildItems {
		byTopic[c.Topic] = c
	}
	assert.Equal(t, fingerprint.Of([]byte("q1")), byTopic["Algebra"].QuestionFingerprint)
	assert.Equal(t, fingerprint.Of([]byte("s1")), byTopic["Algebra"].SolutionFingerprint)
	assert.Empty(t, byTopic["Geometry"].SolutionFingerprint)

	// memoized fingerprints stay stable across calls
	again, err := mod.Preview(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, detail.QuestionFingerprint, again.QuestionFingerprint)

	require.NoError(t, mod.Delete(ctx, admin, id))
	deleted, err := mod.Preview(ctx, admin, id)
	require.NoError(t, err, "tombstones stay viewable")
	assert.Equal(t, subm.StatusDeleted, deleted.Status)
	assert.Equal(t, "admin", deleted.ModeratedBy)
}

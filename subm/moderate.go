package subm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/paper-guides/backend/auth"
	"github.com/paper-guides/backend/logger"
)

// Moderator decides the fate of pending submissions. Every method is
// restricted to administrators.
type Moderator struct {
	store   ContentStore
	preview *previewBuilder
}

func NewModerator(store ContentStore) *Moderator {
	return &Moderator{
		store:   store,
		preview: newPreviewBuilder(),
	}
}

// ListPending returns previews of pending top-level submissions of the given
// kind, oldest first.
func (m *Moderator) ListPending(ctx context.Context, actor auth.Actor, kind Kind) ([]PreviewItem, error) {
	if err := m.authorize(ctx, actor, "list_pending", uuid.Nil); err != nil {
		return nil, err
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, newErrMissingFields([]string{"kind"}).SetDebug(err)
	}

	subms, err := m.store.ListByStatus(ctx, StatusPending, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending submissions: %w", err)
	}

	res := make([]PreviewItem, 0, len(subms))
	for i := range subms {
		s := &subms[i]
		if s.IsChild() {
			continue
		}
		children := 0
		if s.Kind == KindTopicalPaper {
			cs, err := m.store.ListChildren(ctx, s.UUID)
			if err != nil {
				return nil, fmt.Errorf("failed to list children of %s: %w", s.UUID, err)
			}
			children = len(cs)
		}
		res = append(res, m.preview.item(s, children))
	}
	return res, nil
}

// Preview returns one submission together with its child questions.
func (m *Moderator) Preview(ctx context.Context, actor auth.Actor, id uuid.UUID) (PreviewDetail, error) {
	if err := m.authorize(ctx, actor, "preview", id); err != nil {
		return PreviewDetail{}, err
	}

	s, err := m.get(ctx, id)
	if err != nil {
		return PreviewDetail{}, err
	}
	children, err := m.store.ListChildren(ctx, id)
	if err != nil {
		return PreviewDetail{}, fmt.Errorf("failed to list children of %s: %w", id, err)
	}
	return m.preview.detail(s, children), nil
}

// Approve publishes a pending submission and its pending children.
// Approving an approved submission is a no-op; a deleted one is not found.
func (m *Moderator) Approve(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	log := logger.FromContext(ctx)
	if err := m.authorize(ctx, actor, "approve", id); err != nil {
		return err
	}

	ok, err := m.store.UpdateStatus(ctx, id, StatusPending, StatusApproved, actor.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return newErrSubmNotFound(id).SetDebug(err)
		}
		return fmt.Errorf("failed to approve submission %s: %w", id, err)
	}
	if ok {
		log.Info("submission approved", "uuid", id, "actor", actor.Username)
		return nil
	}

	// lost the compare-and-set, look at what won
	s, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	switch s.Status {
	case StatusApproved:
		log.Debug("submission already approved", "uuid", id, "actor", actor.Username)
		return nil
	case StatusDeleted:
		return newErrSubmNotFound(id).SetDebug(fmt.Errorf("submission %s is deleted", id))
	default:
		return fmt.Errorf("submission %s stayed %s after approval", id, s.Status)
	}
}

// Delete tombstones a submission and its live children. Deleting twice is
// a no-op.
func (m *Moderator) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	log := logger.FromContext(ctx)
	if err := m.authorize(ctx, actor, "delete", id); err != nil {
		return err
	}

	ok, err := m.store.Delete(ctx, id, actor.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return newErrSubmNotFound(id).SetDebug(err)
		}
		return fmt.Errorf("failed to delete submission %s: %w", id, err)
	}
	if ok {
		log.Info("submission deleted", "uuid", id, "actor", actor.Username)
	} else {
		log.Debug("submission already deleted", "uuid", id, "actor", actor.Username)
	}
	return nil
}

func (m *Moderator) authorize(ctx context.Context, actor auth.Actor, op string, id uuid.UUID) error {
	err := auth.RequireAdmin(actor)
	if err != nil {
		attrs := []any{"op", op, "actor", actor.String()}
		if id != uuid.Nil {
			attrs = append(attrs, "uuid", id)
		}
		logger.FromContext(ctx).Warn("unauthorized moderation attempt", attrs...)
	}
	return err
}

func (m *Moderator) get(ctx context.Context, id uuid.UUID) (*Subm, error) {
	s, err := m.store.GetByUUID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newErrSubmNotFound(id).SetDebug(err)
		}
		return nil, fmt.Errorf("failed to get submission %s: %w", id, err)
	}
	return s, nil
}

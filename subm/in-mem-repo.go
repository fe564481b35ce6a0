package subm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemStore is a ContentStore backed by a map. A single mutex makes every
// operation, cascades included, atomic.
type InMemStore struct {
	mu     sync.RWMutex
	subms  map[uuid.UUID]*Subm
	nextID int64
	now    func() time.Time
}

func NewInMemStore() *InMemStore {
	return &InMemStore{
		subms: make(map[uuid.UUID]*Subm),
		now:   time.Now,
	}
}

// Insert implements ContentStore
func (r *InMemStore) Insert(ctx context.Context, subm Subm, children ...Subm) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group := append([]Subm{subm}, children...)
	seen := make(map[uuid.UUID]bool, len(group))
	for _, s := range group {
		if s.UUID == uuid.Nil {
			return uuid.Nil, fmt.Errorf("submission uuid is not set")
		}
		if _, exists := r.subms[s.UUID]; exists || seen[s.UUID] {
			return uuid.Nil, fmt.Errorf("uuid %s is already taken", s.UUID)
		}
		seen[s.UUID] = true
	}
	for _, c := range children {
		if c.ParentUUID == nil || *c.ParentUUID != subm.UUID {
			return uuid.Nil, fmt.Errorf("child %s does not reference parent %s", c.UUID, subm.UUID)
		}
	}

	for _, s := range group {
		r.nextID++
		stored := s
		stored.ID = r.nextID
		stored.QuestionBlob = append([]byte(nil), s.QuestionBlob...)
		stored.SolutionBlob = append([]byte(nil), s.SolutionBlob...)
		r.subms[s.UUID] = &stored
	}
	return subm.UUID, nil
}

// GetByUUID implements ContentStore
func (r *InMemStore) GetByUUID(ctx context.Context, id uuid.UUID) (*Subm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subms[id]
	if !ok {
		return nil, ErrNotFound
	}
	res := *s
	return &res, nil
}

// ListByStatus implements ContentStore
func (r *InMemStore) ListByStatus(ctx context.Context, status Status, kind Kind) ([]Subm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Subm, 0)
	for _, s := range r.subms {
		if s.Status == status && s.Kind == kind {
			res = append(res, *s)
		}
	}
	sortBySubmission(res)
	return res, nil
}

// ListChildren implements ContentStore
func (r *InMemStore) ListChildren(ctx context.Context, parent uuid.UUID) ([]Subm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Subm, 0)
	for _, s := range r.subms {
		if s.ParentUUID != nil && *s.ParentUUID == parent {
			res = append(res, *s)
		}
	}
	sortBySubmission(res)
	return res, nil
}

// UpdateStatus implements ContentStore
func (r *InMemStore) UpdateStatus(ctx context.Context, id uuid.UUID, expected Status, next Status, actor string) (bool, error) {
	if !expected.CanTransitionTo(next) {
		return false, fmt.Errorf("illegal status transition %s -> %s", expected, next)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subms[id]
	if !ok {
		return false, ErrNotFound
	}
	if s.Status != expected {
		return false, nil
	}
	now := r.now()
	r.moderate(s, next, actor, now)
	for _, c := range r.childrenLocked(id) {
		if c.Status == expected {
			r.moderate(c, next, actor, now)
		}
	}
	return true, nil
}

// Delete implements ContentStore
func (r *InMemStore) Delete(ctx context.Context, id uuid.UUID, actor string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subms[id]
	if !ok {
		return false, ErrNotFound
	}
	if s.Status == StatusDeleted {
		return false, nil
	}
	now := r.now()
	r.moderate(s, StatusDeleted, actor, now)
	for _, c := range r.childrenLocked(id) {
		if c.Status != StatusDeleted {
			r.moderate(c, StatusDeleted, actor, now)
		}
	}
	return true, nil
}

func (r *InMemStore) moderate(s *Subm, next Status, actor string, at time.Time) {
	s.Status = next
	s.ModeratedBy = actor
	s.ModeratedOn = &at
}

func (r *InMemStore) childrenLocked(parent uuid.UUID) []*Subm {
	var res []*Subm
	for _, s := range r.subms {
		if s.ParentUUID != nil && *s.ParentUUID == parent {
			res = append(res, s)
		}
	}
	return res
}

func sortBySubmission(subms []Subm) {
	sort.Slice(subms, func(i, j int) bool {
		if !subms[i].SubmittedOn.Equal(subms[j].SubmittedOn) {
			return subms[i].SubmittedOn.Before(subms[j].SubmittedOn)
		}
		return subms[i].ID < subms[j].ID
	})
}

package subm

import (
	"fmt"
	"time"

	"github.com/paper-guides/backend/fingerprint"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

type blobPart string

const (
	partQuestion blobPart = "question"
	partSolution blobPart = "solution"
)

// previewBuilder memoizes blob fingerprints. Stored content never changes,
// so a (uuid, part) key stays valid for the life of the entry.
type previewBuilder struct {
	cache   *cache.Cache
	sfGroup singleflight.Group
}

func newPreviewBuilder() *previewBuilder {
	return &previewBuilder{
		cache: cache.New(30*time.Minute, 10*time.Minute),
	}
}

// fingerprint prefers the digest recorded at ingestion and hashes the blob
// only for entities stored without one.
func (b *previewBuilder) fingerprint(s *Subm, part blobPart) string {
	recorded, blob := s.QuestionFingerprint, s.QuestionBlob
	if part == partSolution {
		recorded, blob = s.SolutionFingerprint, s.SolutionBlob
		if recorded == "" && len(blob) == 0 {
			return ""
		}
	}
	if recorded != "" {
		return recorded
	}

	key := fmt.Sprintf("%s/%s", s.UUID, part)
	if fp, found := b.cache.Get(key); found {
		return fp.(string)
	}

	res, _, _ := b.sfGroup.Do(key, func() (interface{}, error) {
		if fp, found := b.cache.Get(key); found {
			return fp, nil
		}
		fp := fingerprint.Of(blob)
		b.cache.SetDefault(key, fp)
		return fp, nil
	})
	return res.(string)
}

func (b *previewBuilder) item(s *Subm, children int) PreviewItem {
	return PreviewItem{
		ID:                  s.ID,
		UUID:                s.UUID,
		Kind:                s.Kind,
		Status:              s.Status,
		QuestionFingerprint: b.fingerprint(s, partQuestion),
		SolutionFingerprint: b.fingerprint(s, partSolution),
		QuestionMime:        s.QuestionMime,
		SolutionMime:        s.SolutionMime,
		QuestionBytes:       blobSize(s.QuestionBlob, s.QuestionSize),
		SolutionBytes:       blobSize(s.SolutionBlob, s.SolutionSize),
		Board:               s.Board,
		Subject:             s.Subject,
		Level:               s.Level,
		Component:           s.Component,
		Topic:               s.Topic,
		Difficulty:          s.Difficulty,
		Year:                s.Year,
		SubmittedBy:         s.SubmittedBy,
		SubmittedOn:         s.SubmittedOn,
		ParentUUID:          s.ParentUUID,
		Children:            children,
	}
}

func (b *previewBuilder) detail(s *Subm, children []Subm) PreviewDetail {
	d := PreviewDetail{
		PreviewItem: b.item(s, len(children)),
		ModeratedBy: s.ModeratedBy,
		ModeratedOn: s.ModeratedOn,
	}
	for i := range children {
		d.ChildItems = append(d.ChildItems, b.item(&children[i], 0))
	}
	return d
}

func blobSize(blob []byte, recorded int) int {
	if len(blob) > 0 {
		return len(blob)
	}
	return recorded
}

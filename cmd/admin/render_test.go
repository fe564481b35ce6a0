package main

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paper-guides/backend/fingerprint"
	"github.com/paper-guides/backend/subm"
	"github.com/stretchr/testify/assert"
)

func TestRenderPreviewTable(t *testing.T) {
	assert.Contains(t, renderPreviewTable(nil), "nothing pending")

	item := subm.PreviewItem{
		ID:                  7,
		UUID:                uuid.New(),
		Kind:                subm.KindYearlyPaper,
		QuestionFingerprint: fingerprint.Of([]byte("paper")),
		Board:               "A Levels",
		Subject:             "Physics",
		Year:                "2023 (May / June)",
		SubmittedBy:         "alice",
		SubmittedOn:         time.Now(),
	}
	out := renderPreviewTable([]subm.PreviewItem{item})
	assert.Contains(t, out, item.UUID.String())
	assert.Contains(t, out, "2023 (May / June)")
	assert.Contains(t, out, fingerprint.Short(item.QuestionFingerprint))
	assert.NotContains(t, out, item.QuestionFingerprint, "listings show the short form")
}

func TestRenderDetail(t *testing.T) {
	moderated := time.Now()
	d := subm.PreviewDetail{
		PreviewItem: subm.PreviewItem{
			UUID:                uuid.New(),
			Kind:                subm.KindTopicalPaper,
			Status:              subm.StatusApproved,
			QuestionFingerprint: fingerprint.Of([]byte("q")),
			Subject:             "Maths",
		},
		ModeratedBy: "root",
		ModeratedOn: &moderated,
		ChildItems: []subm.PreviewItem{
			{UUID: uuid.New(), Kind: subm.KindQuestion, Topic: "Algebra"},
		},
	}
	out := renderDetail(d)
	assert.Contains(t, out, d.QuestionFingerprint)
	assert.Contains(t, out, "by root")
	assert.Contains(t, out, d.ChildItems[0].UUID.String())
	assert.NotContains(t, out, "Solution")
}

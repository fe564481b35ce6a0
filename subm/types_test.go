package subm_test

import (
	"testing"

	"github.com/paper-guides/backend/subm"
	"github.com/stretchr/testify/assert"
)

func TestKindIsPaper(t *testing.T) {
	papers := 0
	for _, k := range subm.Kinds {
		parsed, err := subm.ParseKind(string(k))
		assert.NoError(t, err)
		assert.Equal(t, k, parsed)
		if k.IsPaper() {
			papers++
		}
	}
	assert.Equal(t, 2, papers)
	assert.False(t, subm.KindQuestion.IsPaper())
	assert.True(t, subm.KindYearlyPaper.IsPaper())
	assert.True(t, subm.KindTopicalPaper.IsPaper())
}

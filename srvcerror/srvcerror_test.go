package srvcerror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/paper-guides/backend/srvcerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorDefaultsToInternalStatus(t *testing.T) {
	err := srvcerror.New("some_code", "something happened")
	assert.Equal(t, http.StatusInternalServerError, err.HttpStatusCode())
	assert.Equal(t, "something happened", err.Error())
	assert.Equal(t, "some_code", err.ErrorCode())
}

func TestErrorMatchesByCode(t *testing.T) {
	sentinel := srvcerror.New("not_found", "missing")
	fresh := srvcerror.New("not_found", "missing, with more words").
		SetHttpStatusCode(http.StatusNotFound).
		SetDebug(errors.New("row absent"))

	wrapped := fmt.Errorf("loading: %w", fresh)
	require.ErrorIs(t, wrapped, sentinel)
	assert.True(t, srvcerror.HasCode(wrapped, "not_found"))
	assert.False(t, srvcerror.HasCode(wrapped, "other"))
	assert.NotErrorIs(t, wrapped, srvcerror.New("other", "missing"))
	assert.EqualError(t, fresh.DebugInfo(), "row absent")
}

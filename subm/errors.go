package subm

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/paper-guides/backend/srvcerror"
)

const ErrCodeValidationFailed = "validation_failed"

// ErrValidation matches every validation error via errors.Is.
var ErrValidation = srvcerror.New(ErrCodeValidationFailed, "invalid submission")

func newErrMissingFields(fields []string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeValidationFailed,
		fmt.Sprintf("missing or invalid fields: %s", strings.Join(fields, ", ")),
	).SetHttpStatusCode(http.StatusBadRequest)
}

func newErrBlobTooLarge(field string, maxBytes int64) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeValidationFailed,
		fmt.Sprintf("%s is too large, the maximum size is %d bytes", field, maxBytes),
	).SetHttpStatusCode(http.StatusBadRequest)
}

func newErrPartsNotAllowed(kind Kind) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeValidationFailed,
		fmt.Sprintf("topic parts are only accepted for topical papers, not %s", kind),
	).SetHttpStatusCode(http.StatusBadRequest)
}

const ErrCodeSubmissionNotFound = "submission_not_found"

// ErrNotFound is returned by content stores for unknown uuids.
var ErrNotFound = srvcerror.New(ErrCodeSubmissionNotFound, "submission not found").
	SetHttpStatusCode(http.StatusNotFound)

func newErrSubmNotFound(id uuid.UUID) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeSubmissionNotFound,
		fmt.Sprintf("submission %s was not found", id),
	).SetHttpStatusCode(http.StatusNotFound)
}

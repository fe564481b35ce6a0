package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/paper-guides/backend/captcha"
	"github.com/paper-guides/backend/srvcerror"
)

const (
	ErrCodeCaptchaInvalidInput = "captcha_invalid_input"
	ErrCodeCaptchaFailed       = "captcha_failed"
	ErrCodeCaptchaUnreachable  = "captcha_unreachable"
	ErrCodeMalformedRequest    = "malformed_request"
	ErrCodeRequestTooLarge     = "request_too_large"
)

func newErrCaptchaMissing() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeCaptchaInvalidInput,
		"did you forget the captcha? please complete it and try again",
	).SetHttpStatusCode(http.StatusBadRequest)
}

// newErrCaptcha maps an unsuccessful verification to a service error.
func newErrCaptcha(res captcha.Result) *srvcerror.Error {
	debug := fmt.Errorf("captcha verification failed after %d attempts: %s",
		res.Attempts, strings.Join(res.ErrorCodes, ","))
	switch {
	case res.InvalidInput():
		return srvcerror.New(
			ErrCodeCaptchaInvalidInput,
			"the captcha token is malformed, please try again",
		).SetHttpStatusCode(http.StatusBadRequest).SetDebug(debug)
	case res.Unreachable():
		return srvcerror.New(
			ErrCodeCaptchaUnreachable,
			"captcha verification is temporarily unavailable, please try again later",
		).SetHttpStatusCode(http.StatusServiceUnavailable).SetDebug(debug)
	default:
		return srvcerror.New(
			ErrCodeCaptchaFailed,
			"failed to verify captcha, please try again",
		).SetHttpStatusCode(http.StatusForbidden).SetDebug(debug)
	}
}

func newErrMalformedRequest(err error) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeMalformedRequest,
		"the request could not be parsed",
	).SetHttpStatusCode(http.StatusBadRequest).SetDebug(err)
}

func newErrRequestTooLarge(limit int64) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeRequestTooLarge,
		fmt.Sprintf("the request is larger than %d bytes", limit),
	).SetHttpStatusCode(http.StatusRequestEntityTooLarge)
}

func newErrInvalidUUID(raw string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeMalformedRequest,
		fmt.Sprintf("%q is not a valid submission id", raw),
	).SetHttpStatusCode(http.StatusBadRequest)
}

package http

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/paper-guides/backend/auth"
	"github.com/paper-guides/backend/captcha"
	"github.com/paper-guides/backend/subm"
)

const DefaultMaxRequestBytes = 64 << 20

// CaptchaVerifier is satisfied by *captcha.Verifier.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string, remoteIP string) captcha.Result
}

type SubmHttpHandler struct {
	ingester  *subm.Ingester
	moderator *subm.Moderator
	captcha   CaptchaVerifier

	maxRequestBytes int64
}

func NewSubmHttpHandler(
	ingester *subm.Ingester,
	moderator *subm.Moderator,
	verifier CaptchaVerifier,
	maxRequestBytes int64,
) *SubmHttpHandler {
	if maxRequestBytes <= 0 {
		maxRequestBytes = DefaultMaxRequestBytes
	}
	return &SubmHttpHandler{
		ingester:        ingester,
		moderator:       moderator,
		captcha:         verifier,
		maxRequestBytes: maxRequestBytes,
	}
}

func (h *SubmHttpHandler) RegisterRoutes(r *chi.Mux, jwtKey []byte) {
	r.Group(func(r chi.Router) {
		r.Use(auth.GetJwtAuthMiddleware(jwtKey))

		r.Post("/submissions/questions", h.PostQuestion)
		r.Post("/submissions/papers", h.PostPaper)

		r.Get("/admin/submissions", h.ListPending)
		r.Get("/admin/submissions/{subm-uuid}", h.GetPreview)
		r.Post("/admin/submissions/{subm-uuid}/approve", h.Approve)
		r.Post("/admin/submissions/{subm-uuid}/delete", h.Delete)
	})
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paper-guides/backend/auth"
	"github.com/paper-guides/backend/httpjson"
	"github.com/paper-guides/backend/logger"
	"github.com/paper-guides/backend/subm"
)

type pendingResponse struct {
	Questions []subm.PreviewItem `json:"questions"`
	Papers    []subm.PreviewItem `json:"papers"`
}

type moderationResponse struct {
	UUID    uuid.UUID `json:"uuid"`
	Message string    `json:"message"`
}

// ListPending lists pending submissions. Without ?kind= it returns questions
// and papers of both kinds.
func (h *SubmHttpHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	actor := auth.ActorFromContext(r.Context())

	if kind := r.URL.Query().Get("kind"); kind != "" {
		items, err := h.moderator.ListPending(r.Context(), actor, subm.Kind(kind))
		if err != nil {
			h.handleModerationError(w, r, err)
			return
		}
		httpjson.WriteSuccessJson(w, items)
		return
	}

	resp := pendingResponse{
		Questions: []subm.PreviewItem{},
		Papers:    []subm.PreviewItem{},
	}
	for _, kind := range subm.Kinds {
		items, err := h.moderator.ListPending(r.Context(), actor, kind)
		if err != nil {
			h.handleModerationError(w, r, err)
			return
		}
		if kind.IsPaper() {
			resp.Papers = append(resp.Papers, items...)
		} else {
			resp.Questions = append(resp.Questions, items...)
		}
	}

	log.Info("listed pending submissions", "questions", len(resp.Questions), "papers", len(resp.Papers))
	httpjson.WriteSuccessJson(w, resp)
}

func (h *SubmHttpHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSubmUUID(w, r)
	if !ok {
		return
	}
	detail, err := h.moderator.Preview(r.Context(), auth.ActorFromContext(r.Context()), id)
	if err != nil {
		h.handleModerationError(w, r, err)
		return
	}
	httpjson.WriteSuccessJson(w, detail)
}

func (h *SubmHttpHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSubmUUID(w, r)
	if !ok {
		return
	}
	actor := auth.ActorFromContext(r.Context())
	if err := h.moderator.Approve(r.Context(), actor, id); err != nil {
		h.handleModerationError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("approve request processed",
		"uuid", id, "actor", actor.Username, "ip", clientIP(r))
	httpjson.WriteSuccessJson(w, moderationResponse{
		UUID:    id,
		Message: "submission " + id.String() + " was approved by " + actor.Username,
	})
}

func (h *SubmHttpHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSubmUUID(w, r)
	if !ok {
		return
	}
	actor := auth.ActorFromContext(r.Context())
	if err := h.moderator.Delete(r.Context(), actor, id); err != nil {
		h.handleModerationError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("delete request processed",
		"uuid", id, "actor", actor.Username, "ip", clientIP(r))
	httpjson.WriteSuccessJson(w, moderationResponse{
		UUID:    id,
		Message: "submission " + id.String() + " was deleted by " + actor.Username,
	})
}

func (h *SubmHttpHandler) handleModerationError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context()).With("ip", clientIP(r), "path", r.URL.Path)
	httpjson.HandleError(log, w, err)
}

func parseSubmUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "subm-uuid")
	id, err := uuid.Parse(raw)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Warn("invalid submission UUID", "subm_uuid", raw, "error", err)
		httpjson.HandleError(log, w, newErrInvalidUUID(raw))
		return uuid.Nil, false
	}
	return id, true
}

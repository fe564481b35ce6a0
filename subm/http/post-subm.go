package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/paper-guides/backend/auth"
	"github.com/paper-guides/backend/httpjson"
	"github.com/paper-guides/backend/logger"
	"github.com/paper-guides/backend/subm"
)

const captchaField = "cf-turnstile-response"

type submCreatedResponse struct {
	UUID   uuid.UUID   `json:"uuid"`
	Kind   subm.Kind   `json:"kind"`
	Status subm.Status `json:"status"`
}

func (h *SubmHttpHandler) PostQuestion(w http.ResponseWriter, r *http.Request) {
	params, ok := h.readSubmission(w, r)
	if !ok {
		return
	}
	params.Kind = subm.KindQuestion
	params.Metadata.Topic = r.FormValue("topic")
	params.Metadata.Difficulty = r.FormValue("difficulty")

	h.ingest(w, r, params)
}

func (h *SubmHttpHandler) PostPaper(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	params, ok := h.readSubmission(w, r)
	if !ok {
		return
	}
	switch paperType := r.FormValue("paper_type"); paperType {
	case "yearly":
		params.Kind = subm.KindYearlyPaper
	case "topical":
		params.Kind = subm.KindTopicalPaper
	default:
		params.Kind = subm.Kind(paperType)
	}
	params.Metadata.Year = r.FormValue("year")
	params.Metadata.Session = r.FormValue("session")
	params.Metadata.Topic = r.FormValue("topic")
	params.Metadata.Difficulty = r.FormValue("difficulty")

	parts, err := readParts(r.MultipartForm)
	if err != nil {
		log.Warn("failed to read paper parts", "error", err)
		httpjson.HandleError(log, w, newErrMalformedRequest(err))
		return
	}
	params.Parts = parts

	h.ingest(w, r, params)
}

// readSubmission checks the caller and the captcha and reads the fields
// shared by every submission form. It writes the error response itself.
func (h *SubmHttpHandler) readSubmission(w http.ResponseWriter, r *http.Request) (subm.IngestParams, bool) {
	log := logger.FromContext(r.Context())
	ip := clientIP(r)

	actor := auth.ActorFromContext(r.Context())
	if err := auth.RequireLogin(actor); err != nil {
		log.Warn("anonymous submission attempt", "ip", ip)
		httpjson.HandleError(log, w, err)
		return subm.IngestParams{}, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpjson.HandleError(log, w, newErrRequestTooLarge(h.maxRequestBytes))
			return subm.IngestParams{}, false
		}
		httpjson.HandleError(log, w, newErrMalformedRequest(err))
		return subm.IngestParams{}, false
	}

	token := r.FormValue(captchaField)
	if token == "" {
		log.Warn("captcha token missing", "ip", ip)
		httpjson.HandleError(log, w, newErrCaptchaMissing())
		return subm.IngestParams{}, false
	}
	res := h.captcha.Verify(r.Context(), token, ip)
	if !res.Success {
		log.Warn("failed captcha verification",
			"error_codes", res.ErrorCodes,
			"attempts", res.Attempts,
			"ip", ip)
		httpjson.HandleError(log, w, newErrCaptcha(res))
		return subm.IngestParams{}, false
	}

	question, err := readFormFile(r, "questionFile")
	if err != nil {
		httpjson.HandleError(log, w, newErrMalformedRequest(err))
		return subm.IngestParams{}, false
	}
	solution, err := readFormFile(r, "solutionFile")
	if err != nil {
		httpjson.HandleError(log, w, newErrMalformedRequest(err))
		return subm.IngestParams{}, false
	}

	return subm.IngestParams{
		Metadata: subm.Metadata{
			Board:     r.FormValue("board"),
			Subject:   r.FormValue("subject"),
			Level:     r.FormValue("level"),
			Component: r.FormValue("component"),
		},
		QuestionBlob: question,
		SolutionBlob: solution,
		Submitter:    actor,
		ClientIP:     ip,
	}, true
}

func (h *SubmHttpHandler) ingest(w http.ResponseWriter, r *http.Request, params subm.IngestParams) {
	log := logger.FromContext(r.Context())
	log.Info("submission initiated", "kind", params.Kind, "username", params.Submitter.Username, "ip", params.ClientIP)

	id, err := h.ingester.Ingest(r.Context(), params)
	if err != nil {
		httpjson.HandleError(log, w, err)
		return
	}

	status := subm.StatusPending
	if params.Submitter.IsAdmin() {
		// admin submissions are approved on ingest unless that failed
		if detail, err := h.moderator.Preview(r.Context(), params.Submitter, id); err == nil {
			status = detail.Status
		}
	}
	httpjson.WriteSuccessJson(w, submCreatedResponse{UUID: id, Kind: params.Kind, Status: status})
}

// readFormFile returns nil when the file field is absent.
func readFormFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", field, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// readParts collects the per-topic questions of a topical paper. Parts are
// matched by position across the partTopic, partDifficulty, partQuestionFile
// and partSolutionFile fields.
func readParts(form *multipart.Form) ([]subm.TopicPart, error) {
	if form == nil {
		return nil, nil
	}
	questions := form.File["partQuestionFile"]
	solutions := form.File["partSolutionFile"]
	topics := form.Value["partTopic"]
	difficulties := form.Value["partDifficulty"]

	if len(solutions) > len(questions) || len(topics) > len(questions) {
		return nil, fmt.Errorf("got %d part questions for %d topics and %d solutions",
			len(questions), len(topics), len(solutions))
	}

	parts := make([]subm.TopicPart, 0, len(questions))
	for i, fh := range questions {
		part := subm.TopicPart{}
		var err error
		if part.QuestionBlob, err = readFileHeader(fh); err != nil {
			return nil, err
		}
		if i < len(solutions) {
			if part.SolutionBlob, err = readFileHeader(solutions[i]); err != nil {
				return nil, err
			}
		}
		if i < len(topics) {
			part.Topic = topics[i]
		}
		if i < len(difficulties) {
			part.Difficulty = difficulties[i]
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	class, err := queryInt(r, "class")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	questions, err := h.service.ListQuestions(r.Context(), app.QuestionFilter{
		Subject:    q.Get("subject"),
		Class:      class,
		Topic:      q.Get("topic"),
		Difficulty: domain.Difficulty(q.Get("difficulty")),
		Type:       domain.QuestionType(q.Get("type")),
		Source:     domain.Source(q.Get("source")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var in app.QuestionInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.service.CreateQuestion(r.Context(), callerFrom(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

type bulkImportRequest struct {
	Questions []app.QuestionInput `json:"questions"`
}

func (h *Handler) BulkImportQuestions(w http.ResponseWriter, r *http.Request) {
	var req bulkImportRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	questions, err := h.service.BulkImportQuestions(r.Context(), callerFrom(r), req.Questions)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, questions)
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var in app.QuestionInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.service.UpdateQuestion(r.Context(), callerFrom(r), chi.URLParam(r, "questionID"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuestion(r.Context(), callerFrom(r), chi.URLParam(r, "questionID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportQuestions handles POST /api/tests/add-questions?amount=&difficulty=&category=&subject=&class=&topic=.
func (h *Handler) ImportQuestions(w http.ResponseWriter, r *http.Request) {
	amount, err := queryInt(r, "amount")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	class, err := queryInt(r, "class")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	questions, err := h.service.ImportExternalQuestions(r.Context(), callerFrom(r), app.ImportQuery{
		Amount:     amount,
		Difficulty: domain.Difficulty(q.Get("difficulty")),
		Category:   q.Get("category"),
		Subject:    q.Get("subject"),
		Class:      class,
		Topic:      q.Get("topic"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, questions)
}

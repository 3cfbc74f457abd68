package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

func (h *Handler) ListTests(w http.ResponseWriter, r *http.Request) {
	class, err := queryInt(r, "class")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	tests, err := h.service.ListTests(r.Context(), callerFrom(r), app.TestFilter{
		Subject: q.Get("subject"),
		Class:   class,
		Status:  domain.TestStatus(q.Get("status")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

func (h *Handler) GetTest(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTest(r.Context(), callerFrom(r), chi.URLParam(r, "testID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) CreateTest(w http.ResponseWriter, r *http.Request) {
	var in app.TestInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.service.CreateTest(r.Context(), callerFrom(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateTest(w http.ResponseWriter, r *http.Request) {
	var in app.TestInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.service.UpdateTest(r.Context(), callerFrom(r), chi.URLParam(r, "testID"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTest(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTest(r.Context(), callerFrom(r), chi.URLParam(r, "testID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

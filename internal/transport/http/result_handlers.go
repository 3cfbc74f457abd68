package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

type submitRequest struct {
	TestID    string            `json:"testId"`
	Responses []domain.Response `json:"responses"`
}

// SubmitTest handles POST /api/results/submit.
func (h *Handler) SubmitTest(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.TestID == "" {
		verr := &domain.ValidationError{}
		verr.Add("testId", "Test id is required")
		h.writeError(w, r, verr)
		return
	}
	res, err := h.service.SubmitTest(r.Context(), callerFrom(r), req.TestID, req.Responses)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) ListMyResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.ListMyResults(r.Context(), callerFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetResult(r.Context(), callerFrom(r), chi.URLParam(r, "resultID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ClassAnalytics handles GET /api/results/analytics?class=&subject=&fromDate=&toDate=.
func (h *Handler) ClassAnalytics(w http.ResponseWriter, r *http.Request) {
	class, err := queryInt(r, "class")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	from, err := queryTime(r, "fromDate")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := queryTime(r, "toDate")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	got, err := h.service.ClassAnalytics(r.Context(), callerFrom(r), app.AnalyticsQuery{
		Class:   class,
		Subject: r.URL.Query().Get("subject"),
		From:    from,
		To:      to,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}

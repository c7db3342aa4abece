package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/core/common/pagination"
	"github.com/frahmantamala/school-admin/internal/transport"
)

type ServiceAPI interface {
	Query(ctx context.Context, filter Filter, page, limit int) (*QueryResult, error)
	Get(ctx context.Context, id int64) (*Entry, error)
	Stats(ctx context.Context) (*Stats, error)
	Export(ctx context.Context, format string, filter Filter) (*ExportResult, error)
	Cleanup(ctx context.Context, olderThanDays int) (*CleanupResult, error)
}

type Handler struct {
	*transport.BaseHandler
	Service              ServiceAPI
	DefaultRetentionDays int
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, defaultRetentionDays int) *Handler {
	return &Handler{
		BaseHandler:          baseHandler,
		Service:              svc,
		DefaultRetentionDays: defaultRetentionDays,
	}
}

// FilterFromRequest reads user_id, action, resource_type, resource_id, start_date, end_date and search.
func FilterFromRequest(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Search:       q.Get("search"),
	}

	var fieldErrs []internal.ValidationError
	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fieldErrs = append(fieldErrs, internal.ValidationError{Field: "user_id", Message: "user_id must be an integer", Code: string(internal.ErrCodeInvalidFormat)})
		} else {
			f.UserID = &id
		}
	}
	if raw := q.Get("start_date"); raw != "" {
		t, err := ParseDate(raw, false)
		if err != nil {
			fieldErrs = append(fieldErrs, internal.ValidationError{Field: "start_date", Message: "start_date must be RFC3339 or YYYY-MM-DD", Code: string(internal.ErrCodeInvalidFormat)})
		} else {
			f.StartDate = &t
		}
	}
	if raw := q.Get("end_date"); raw != "" {
		t, err := ParseDate(raw, true)
		if err != nil {
			fieldErrs = append(fieldErrs, internal.ValidationError{Field: "end_date", Message: "end_date must be RFC3339 or YYYY-MM-DD", Code: string(internal.ErrCodeInvalidFormat)})
		} else {
			f.EndDate = &t
		}
	}

	if len(fieldErrs) > 0 {
		return f, internal.NewValidationFieldErrors(fieldErrs...)
	}
	return f, nil
}

// ListLogs handles GET /audit-logs
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := FilterFromRequest(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	result, err := h.Service.Query(r.Context(), filter,
		transport.QueryInt(r, "page", 1),
		transport.QueryInt(r, "limit", pagination.DefaultLimit))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// GetStats handles GET /audit-logs/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}

// GetLog handles GET /audit-logs/{id}
func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	id, err := transport.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	entry, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, entry)
}

// Export handles GET /audit-logs/export/{format}
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := FilterFromRequest(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	result, err := h.Service.Export(r.Context(), chi.URLParam(r, "format"), filter)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.Header().Set("X-Total-Count", strconv.Itoa(result.Count))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Body); err != nil {
		h.Logger.ErrorContext(r.Context(), "failed to write audit export", "error", err)
	}
}

// Cleanup handles DELETE /audit-logs/cleanup?olderThan=N
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	days, err := transport.QueryIntStrict(r, "olderThan", h.DefaultRetentionDays)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	result, err := h.Service.Cleanup(r.Context(), days)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

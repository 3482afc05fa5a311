// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/handler/dto"
	"github.com/wisedom/wisedom/internal/middleware"
	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/service"
	"github.com/wisedom/wisedom/internal/validation"
)

// Handler serves the fallback routes.
type Handler struct {
	logger *slog.Logger
}

// New creates a new Handler instance.
func New(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, apperr.NotFound(apperr.CodeNotFound, "Resource not found"))
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, apperr.New(http.StatusMethodNotAllowed, apperr.CodeMethodNotAllowed, "Method not allowed"))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeData wraps v in the {data} envelope.
func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, dto.DataResponse{Data: v})
}

// writeList writes one page of a collection.
func writeList[T any](w http.ResponseWriter, items []T, params model.ListParams, total int) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{
		Data:       items,
		Pagination: model.NewPagination(params, total),
	})
}

// writeError maps err to the error envelope. Causes of 5xx responses are
// logged and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr := apperr.From(err)
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error("request_failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	middleware.WriteError(w, appErr)
}

// decodeJSON decodes the request body into v and validates it.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.New(http.StatusRequestEntityTooLarge, apperr.CodeBadRequest, "Request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperr.BadRequest(apperr.CodeInvalidJSON, "Request body is required")
		}
		return apperr.BadRequest(apperr.CodeInvalidJSON, "Invalid request body")
	}
	return validation.Struct(v)
}

// parseListParams reads page, limit, sort_by and sort_order. Missing values
// take the defaults. Sort fields are checked by the service.
func parseListParams(r *http.Request) (model.ListParams, error) {
	q := r.URL.Query()
	params := model.DefaultListParams()
	var details []apperr.FieldError

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > model.MaxPage {
			details = append(details, apperr.FieldError{
				Field:   "page",
				Message: "must be between 1 and " + strconv.Itoa(model.MaxPage),
			})
		} else {
			params.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > model.MaxLimit {
			details = append(details, apperr.FieldError{
				Field:   "limit",
				Message: "must be between 1 and " + strconv.Itoa(model.MaxLimit),
			})
		} else {
			params.Limit = n
		}
	}
	if v := strings.TrimSpace(q.Get("sort_by")); v != "" {
		params.SortBy = v
	}
	if v := strings.ToLower(strings.TrimSpace(q.Get("sort_order"))); v != "" {
		if v != model.SortOrderAsc && v != model.SortOrderDesc {
			details = append(details, apperr.FieldError{Field: "sort_order", Message: "must be one of: asc, desc"})
		} else {
			params.SortOrder = v
		}
	}

	if len(details) > 0 {
		return params, apperr.Validation("Invalid query parameters", details...)
	}
	return params, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("Invalid query parameters", apperr.FieldError{Field: name, Message: "must be an integer"})
	}
	return n, nil
}

// queryFloat reads an optional decimal query parameter.
func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperr.Validation("Invalid query parameters", apperr.FieldError{Field: name, Message: "must be a number"})
	}
	return f, nil
}

// optionalUUID checks an optional UUID query parameter.
func optionalUUID(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", nil
	}
	if err := validation.Var(name, v, "uuid"); err != nil {
		return "", err
	}
	return v, nil
}

// pathID returns the {id} URL parameter after checking it is a UUID.
func pathID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if err := validation.Var("id", id, "required,uuid"); err != nil {
		return "", err
	}
	return id, nil
}

// requestMeta captures the caller's IP and user agent for audit records.
func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

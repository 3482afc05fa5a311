package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/contactfile"
	"github.com/wisedom/wisedom/internal/handler/dto"
	"github.com/wisedom/wisedom/internal/scoring"
	"github.com/wisedom/wisedom/internal/service"
)

// ContactHandler handles HTTP requests for contacts.
type ContactHandler struct {
	svc    *service.ContactService
	logger *slog.Logger
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(svc *service.ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/contacts.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	contacts, total, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), service.ContactQuery{
		Search: q.Get("search"),
		Tag:    q.Get("tag"),
	}, params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, contacts, params, total)
}

// Get handles GET /api/v1/contacts/{id}.
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	c, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

// Create handles POST /api/v1/contacts.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateContactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	c, err := h.svc.Create(r.Context(), auth.UserIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}

// Update handles PATCH /api/v1/contacts/{id}.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req dto.UpdateContactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	c, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), id, patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

// Delete handles DELETE /api/v1/contacts/{id}.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Strength handles GET /api/v1/contacts/{id}/strength.
func (h *ContactHandler) Strength(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	s, err := h.svc.Strength(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, s)
}

// Duplicates handles GET /api/v1/contacts/duplicates.
func (h *ContactHandler) Duplicates(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryFloat(r, "threshold", scoring.DefaultDuplicateThreshold)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	report, err := h.svc.Duplicates(r.Context(), auth.UserIDFromContext(r.Context()), threshold)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

// Import handles POST /api/v1/contacts/import. The body is the raw file; the
// format comes from the format query parameter or the Content-Type.
func (h *ContactHandler) Import(w http.ResponseWriter, r *http.Request) {
	format, err := contactfile.DetectFormat(r.URL.Query().Get("format"), r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, h.logger, apperr.New(http.StatusUnsupportedMediaType, service.CodeUnsupportedFormat,
			"Supported formats are csv, vcard and json"))
		return
	}

	records, err := contactfile.Parse(format, r.Body)
	if err != nil {
		writeError(w, r, h.logger, importFileError(err))
		return
	}

	res, err := h.svc.Import(r.Context(), auth.UserIDFromContext(r.Context()), dto.ImportRows(records))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	status := http.StatusCreated
	if len(res.Imported) == 0 {
		status = http.StatusOK
	}
	writeData(w, status, res)
}

func importFileError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return apperr.New(http.StatusRequestEntityTooLarge, apperr.CodeBadRequest, "Request body too large")
	case errors.Is(err, contactfile.ErrEmpty):
		return apperr.BadRequest(service.CodeInvalidFile, "File contains no contacts")
	case errors.Is(err, contactfile.ErrMissingNameColumn):
		return apperr.BadRequest(service.CodeInvalidFile, "CSV header needs a name or first_name column")
	case errors.Is(err, contactfile.ErrTooManyRecords):
		return apperr.BadRequest(service.CodeInvalidFile, "File has more than "+strconv.Itoa(contactfile.MaxRecords)+" contacts")
	default:
		return apperr.BadRequest(service.CodeInvalidFile, "File could not be parsed")
	}
}

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"procurement-docs/internal/app"
	"procurement-docs/internal/core"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Route("/api/documents/{type}", func(r chi.Router) {
		r.Use(NoStore)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/", h.listDocuments)
		r.Post("/", h.createDocument)
		r.Get("/duplicate-check", h.duplicateCheck)
		r.Post("/next-number", h.nextNumber)
		r.Get("/{id}", h.getDocument)
		r.Put("/{id}", h.saveDocument)
		r.Get("/{id}/pdf", h.documentPDF)
	})

	h.router = r
	return r
}

// health handles GET /api/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listDocuments handles GET /api/documents/{type}.
func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListDocuments(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// getDocument handles GET /api/documents/{type}/{id}.
func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetDocument(r.Context(), chi.URLParam(r, "type"), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// createDocument handles POST /api/documents/{type}.
func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	result, err := h.svc.SaveDocument(r.Context(), app.SaveDocumentRequest{
		Type:     chi.URLParam(r, "type"),
		Document: doc,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/documents/%s/%d", result.Document.Type, result.Document.ID))
	writeJSON(w, http.StatusCreated, result)
}

// saveDocument handles PUT /api/documents/{type}/{id}. The body is the full
// snapshot including the version it was loaded at.
func (h *Handler) saveDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	if doc.ID != 0 && doc.ID != id {
		writeError(w, r, fmt.Sprintf("body id %d does not match path id %d", doc.ID, id), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.SaveDocument(r.Context(), app.SaveDocumentRequest{
		Type:     chi.URLParam(r, "type"),
		ID:       id,
		Document: doc,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// duplicateCheck handles GET /api/documents/{type}/duplicate-check?number=&date=&exclude_id=.
func (h *Handler) duplicateCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := app.DuplicateCheckRequest{
		Type:   chi.URLParam(r, "type"),
		Number: q.Get("number"),
		Date:   q.Get("date"),
	}
	if s := q.Get("exclude_id"); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, r, "exclude_id must be an integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		req.ExcludeID = id
	}
	result, err := h.svc.CheckDuplicate(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// nextNumber handles POST /api/documents/{type}/next-number?date=.
func (h *Handler) nextNumber(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.NextDocumentNumber(r.Context(), chi.URLParam(r, "type"), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// documentPDF handles GET /api/documents/{type}/{id}/pdf.
func (h *Handler) documentPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.RenderDocumentPDF(r.Context(), chi.URLParam(r, "type"), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	_, _ = w.Write(result.Data)
}

func documentID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "document id must be a positive integer", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decodeDocument(w http.ResponseWriter, r *http.Request) (core.Document, bool) {
	var doc core.Document
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, "document too large", "TOO_LARGE", http.StatusRequestEntityTooLarge)
			return core.Document{}, false
		}
		writeError(w, r, "invalid JSON: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return core.Document{}, false
	}
	return doc, true
}

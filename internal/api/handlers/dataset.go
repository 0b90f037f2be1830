package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/csvio"
	"github.com/wonny/openscreen/internal/headers"
	"github.com/wonny/openscreen/internal/report"
	"github.com/wonny/openscreen/internal/screening"
	"github.com/wonny/openscreen/internal/selection"
	"github.com/wonny/openscreen/pkg/logger"
)

// DatasetHandler handles upload, screening and export endpoints
// ⭐ SSOT: dataset API handlers live in this struct only
type DatasetHandler struct {
	registry  *screening.Registry
	loader    contracts.DatasetLoader
	defaults  contracts.ScreenRequest
	maxUpload int64
	logger    *logger.Logger
}

// NewDatasetHandler creates a new dataset handler.
// defaults fills mode/min_gain_pct when a screen request omits them.
func NewDatasetHandler(
	registry *screening.Registry,
	loader contracts.DatasetLoader,
	defaults contracts.ScreenRequest,
	maxUpload int64,
	log *logger.Logger,
) *DatasetHandler {
	return &DatasetHandler{
		registry:  registry,
		loader:    loader,
		defaults:  defaults,
		maxUpload: maxUpload,
		logger:    log,
	}
}

// DatasetResponse describes a loaded upload and its current view
type DatasetResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Rows           int               `json:"rows"`
	Headers        []string          `json:"headers"`
	DisplayHeaders []string          `json:"display_headers"`
	Roles          map[string]string `json:"roles"`
	Missing        []string          `json:"missing,omitempty"`
	LoadedAt       time.Time         `json:"loaded_at"`
	Summary        string            `json:"summary,omitempty"`
}

// ViewRow is one row of the current view as shown in the table
type ViewRow struct {
	Index    int               `json:"index"`
	Cells    map[string]string `json:"cells"`
	Label    contracts.Label   `json:"label,omitempty"`
	ChartURL string            `json:"chart_url,omitempty"`
}

// ViewResponse is a page of the current view
type ViewResponse struct {
	DatasetResponse
	Total  int       `json:"total"`
	Offset int       `json:"offset"`
	Items  []ViewRow `json:"items"`
}

// ScreenRequestBody is the JSON body of a screen call
type ScreenRequestBody struct {
	Mode       string   `json:"mode"`
	MinGainPct *float64 `json:"min_gain_pct"`
}

// ScreenResponse wraps a run with its summary line
type ScreenResponse struct {
	Summary string                  `json:"summary"`
	Result  *contracts.ScreenResult `json:"result"`
}

// Upload loads a CSV upload into a new session
// POST /api/datasets  (multipart field "file", or a raw text/csv body with ?name=)
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	body, name, err := uploadBody(r)
	if err != nil {
		h.respondUploadError(w, err)
		return
	}
	defer body.Close()

	ds, err := h.loader.Load(r.Context(), body, name)
	if err != nil {
		h.respondUploadError(w, err)
		return
	}

	s := h.registry.Add(ds)
	respondJSON(w, http.StatusCreated, describe(s))
}

// List returns every open session, oldest first
// GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.registry.List()
	result := make([]DatasetResponse, len(sessions))
	for i, s := range sessions {
		result[i] = describe(s)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": result,
		"count": len(result),
	})
}

// Get returns a page of the current view
// GET /api/datasets/{id}?offset=0&limit=100
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 100)

	view := s.View()
	total := len(view)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && limit < total-offset {
		end = offset + limit
	}

	cols := s.DisplayHeaders()
	symbolHeader, _ := s.Roles().Header(headers.RoleSymbol)

	items := make([]ViewRow, 0, end-offset)
	for _, row := range view[offset:end] {
		cells := make(map[string]string, len(cols))
		for _, c := range cols {
			if c == contracts.LabelHeader {
				continue
			}
			cells[c] = row.Get(c)
		}
		items = append(items, ViewRow{
			Index:    row.Index,
			Cells:    cells,
			Label:    row.Label,
			ChartURL: contracts.ChartURL(row.Get(symbolHeader)),
		})
	}

	respondJSON(w, http.StatusOK, ViewResponse{
		DatasetResponse: describe(s),
		Total:           total,
		Offset:          offset,
		Items:           items,
	})
}

// Delete closes a session
// DELETE /api/datasets/{id}
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.registry.Delete(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Screen runs a screening mode over the dataset and replaces the view
// POST /api/datasets/{id}/screen  {"mode": "full", "min_gain_pct": 1.5}
func (h *DatasetHandler) Screen(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	req, err := h.screenRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.Screen(r.Context(), req)
	if err != nil {
		if selection.IsPrecondition(err) {
			respondError(w, http.StatusUnprocessableEntity, preconditionMessage(err))
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"dataset_id": s.Dataset().ID,
			"mode":       req.Mode,
		}).Error("Failed to screen dataset")
		respondError(w, http.StatusInternalServerError, "Failed to screen dataset")
		return
	}

	respondJSON(w, http.StatusOK, ScreenResponse{Summary: res.Summary(), Result: res})
}

// Clear restores the full unlabeled view
// POST /api/datasets/{id}/clear
func (h *DatasetHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.Clear()
	respondJSON(w, http.StatusOK, describe(s))
}

// Export downloads the current view as CSV
// GET /api/datasets/{id}/export.csv
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	view := s.View()
	if len(view) == 0 {
		respondError(w, http.StatusUnprocessableEntity, csvio.ErrNothingToExport.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": csvio.DefaultExportName,
	}))
	w.WriteHeader(http.StatusOK)

	cols := csvio.ExportHeaders(s.Roles(), s.Dataset().Headers)
	if err := csvio.Write(w, cols, view); err != nil {
		h.logger.WithError(err).WithField("dataset_id", s.Dataset().ID).Error("Failed to write export")
	}
}

// ExportPDF downloads the current view as a PDF table
// GET /api/datasets/{id}/export.pdf
func (h *DatasetHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	view := s.View()
	if len(view) == 0 {
		respondError(w, http.StatusUnprocessableEntity, csvio.ErrNothingToExport.Error())
		return
	}

	var buf bytes.Buffer
	cols := csvio.ExportHeaders(s.Roles(), s.Dataset().Headers)
	if err := report.WritePDF(&buf, report.DefaultTitle, cols, view); err != nil {
		h.logger.WithError(err).WithField("dataset_id", s.Dataset().ID).Error("Failed to render pdf")
		respondError(w, http.StatusInternalServerError, "Failed to render pdf")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": report.DefaultPDFName,
	}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// === Helpers ===

func (h *DatasetHandler) session(w http.ResponseWriter, r *http.Request) (*screening.Session, bool) {
	id := mux.Vars(r)["id"]
	s, err := h.registry.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return s, true
}

func (h *DatasetHandler) screenRequest(r *http.Request) (contracts.ScreenRequest, error) {
	req := h.defaults

	var body ScreenRequestBody
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return req, errors.New("invalid JSON body")
		}
	}

	if body.Mode != "" {
		req.Mode = contracts.Mode(body.Mode)
	}
	if !req.Mode.IsValid() {
		return req, errors.New("mode must be one of openHigh, openLow, openHighLow, full")
	}

	if body.MinGainPct != nil {
		req.MinGainPct = *body.MinGainPct
	}
	if req.MinGainPct < 0 || math.IsNaN(req.MinGainPct) || math.IsInf(req.MinGainPct, 0) {
		return req, errors.New("min_gain_pct must be a number >= 0")
	}
	return req, nil
}

func (h *DatasetHandler) respondUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
	case errors.Is(err, http.ErrMissingFile):
		respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
	default:
		h.logger.WithError(err).Warn("Rejected upload")
		respondError(w, http.StatusBadRequest, err.Error())
	}
}

// uploadBody returns the CSV stream and its display name
func uploadBody(r *http.Request) (io.ReadCloser, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, fh, err := r.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		return file, fh.Filename, nil
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "upload.csv"
	}
	return r.Body, name, nil
}

func describe(s *screening.Session) DatasetResponse {
	ds := s.Dataset()
	roles := s.Roles()

	var missing []string
	for _, role := range roles.Missing(headers.RoleOpen, headers.RoleHigh, headers.RoleLow) {
		missing = append(missing, role.DisplayName())
	}

	resp := DatasetResponse{
		ID:             ds.ID,
		Name:           ds.Name,
		Rows:           ds.Len(),
		Headers:        ds.Headers,
		DisplayHeaders: s.DisplayHeaders(),
		Roles:          roles.Map(),
		Missing:        missing,
		LoadedAt:       ds.LoadedAt,
	}
	if last := s.Last(); last != nil {
		resp.Summary = last.Summary()
	}
	return resp
}

// preconditionMessage strips the "screen <mode>:" prefix added by the engine
func preconditionMessage(err error) string {
	var mc *selection.MissingColumnsError
	if errors.As(err, &mc) {
		return mc.Error()
	}
	if errors.Is(err, selection.ErrEmptyDataset) {
		return selection.ErrEmptyDataset.Error()
	}
	return err.Error()
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tabledesk/tabledesk/internal/logging"
	"github.com/tabledesk/tabledesk/internal/store"
	"github.com/tabledesk/tabledesk/internal/tabular"
	"github.com/tabledesk/tabledesk/internal/transform"
)

// uploadResponse pairs stored upload metadata with its parsed table.
type uploadResponse struct {
	Upload *store.Upload  `json:"upload"`
	Table  *tabular.Table `json:"table"`
}

// runResponse carries a pipeline replay result. Error is set when a step
// failed; Result still covers every step that succeeded.
type runResponse struct {
	Result *transform.ExecutionResult `json:"result"`
	Error  *ErrorResponse             `json:"error,omitempty"`
}

// handlePreview parses an uploaded file and returns the table without
// persisting anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	filename, srcType, opts, data, ok := s.readUploadForm(w, r)
	if !ok {
		return
	}

	table, err := tabular.Parse(data, srcType, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("preview parsed",
		"filename", filename,
		"source_type", string(srcType),
		"rows", table.RowCount,
		"columns", len(table.Columns),
	)
	writeJSON(w, http.StatusOK, map[string]*tabular.Table{"table": table})
}

// handleCreateUpload parses and stores an uploaded file.
func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	filename, srcType, opts, data, ok := s.readUploadForm(w, r)
	if !ok {
		return
	}

	// Parse first so a broken file is rejected before anything is stored.
	table, err := tabular.Parse(data, srcType, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	up, err := s.store.CreateUpload(r.Context(), filename, srcType, opts, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("upload stored",
		"upload_id", up.ID.String(),
		"filename", filename,
		"rows", table.RowCount,
	)
	writeJSON(w, http.StatusCreated, uploadResponse{Upload: up, Table: table})
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 100)
	uploads, err := s.store.ListUploads(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if uploads == nil {
		uploads = []*store.Upload{}
	}
	writeJSON(w, http.StatusOK, map[string][]*store.Upload{"uploads": uploads})
}

// handleGetUpload re-parses the stored file and returns the table. Query
// parameters can override the stored parse options for this request only.
func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	up, ok := s.fetchUpload(w, r)
	if !ok {
		return
	}

	opts := up.Options
	applyOptionOverrides(&opts, r)
	s.capMaxRows(&opts)

	table, err := tabular.Parse(up.Data, up.SourceType, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{Upload: up, Table: table})
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "uploadID")
	if !ok {
		return
	}
	if err := s.store.DeleteUpload(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// castCheckRequest selects a column and a target type to validate against.
type castCheckRequest struct {
	Column     string             `json:"column"`
	TargetType tabular.ColumnType `json:"targetType"`
	Format     string             `json:"format,omitempty"`
}

// handleCastCheck runs a dry-run cast over one column and reports failures
// plus a recommended error-handling mode.
func (s *Server) handleCastCheck(w http.ResponseWriter, r *http.Request) {
	up, ok := s.fetchUpload(w, r)
	if !ok {
		return
	}

	var req castCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if req.Column == "" || req.TargetType == "" {
		respondBadRequest(w, "column and targetType are required")
		return
	}

	opts := up.Options
	s.capMaxRows(&opts)
	table, err := tabular.Parse(up.Data, up.SourceType, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !table.HasColumn(req.Column) {
		respondBadRequest(w, fmt.Sprintf("column %q does not exist", req.Column))
		return
	}

	report := tabular.ValidateCast(
		table.ColumnValues(req.Column),
		req.TargetType,
		req.Format,
		s.cfg.Parse.CastMaxSamples,
		s.cfg.Parse.CastSampleRows,
	)
	writeJSON(w, http.StatusOK, report)
}

// handleExport streams the parsed table as CSV. With pipelineID set, the
// pipeline is replayed first and the transformed table is exported.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	up, ok := s.fetchUpload(w, r)
	if !ok {
		return
	}

	opts := up.Options
	s.capMaxRows(&opts)
	table, err := tabular.Parse(up.Data, up.SourceType, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if pid := r.URL.Query().Get("pipelineID"); pid != "" {
		pipelineID, err := uuid.Parse(pid)
		if err != nil {
			respondBadRequest(w, "invalid pipelineID: "+err.Error())
			return
		}
		p, err := s.store.GetPipeline(r.Context(), pipelineID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		res, err := transform.Run(table, p.Steps)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		table = res.Table
	}

	// Buffer the CSV so a write failure can still produce an error response.
	var buf bytes.Buffer
	if err := tabular.WriteCSV(&buf, table); err != nil {
		s.respondError(w, r, err)
		return
	}

	name := strings.TrimSuffix(up.Filename, filepath.Ext(up.Filename))
	if name == "" {
		name = "export"
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	if _, err := io.Copy(w, &buf); err != nil {
		logging.FromContext(r.Context()).Error("csv export write failed", "error", err)
	}
}

// handleRunPipeline replays a stored pipeline over a stored upload. The
// "until" query parameter limits the replay to steps 0..until inclusive;
// -1 returns the freshly parsed base table.
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	up, ok := s.fetchUpload(w, r)
	if !ok {
		return
	}
	pipelineID, ok := parseUUIDParam(w, r, "pipelineID")
	if !ok {
		return
	}
	p, err := s.store.GetPipeline(r.Context(), pipelineID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	until := len(p.Steps) - 1
	if raw := r.URL.Query().Get("until"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < -1 {
			respondBadRequest(w, "until must be an integer >= -1")
			return
		}
		until = n
	}

	opts := up.Options
	s.capMaxRows(&opts)
	table, err := tabular.Parse(up.Data, up.SourceType, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	start := time.Now()
	res, err := transform.RunUntil(table, p.Steps, until)
	logging.FromContext(r.Context()).Info("pipeline replayed",
		"upload_id", up.ID.String(),
		"pipeline_id", p.ID.String(),
		"steps", len(res.StepResults),
		"rows", res.Table.RowCount,
		"duration_ms", time.Since(start).Milliseconds(),
		"failed", err != nil,
	)

	if err != nil {
		// Step failures still carry the partial result so clients can
		// preview up to the last good step.
		_, resp := mapError(err)
		writeJSON(w, http.StatusUnprocessableEntity, runResponse{Result: res, Error: &resp})
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Result: res})
}

// pipelineRequest is the create/update payload for a pipeline.
type pipelineRequest struct {
	Name  string           `json:"name"`
	Steps []transform.Step `json:"steps"`
}

func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	pipelines, err := s.store.ListPipelines(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if pipelines == nil {
		pipelines = []*store.Pipeline{}
	}
	writeJSON(w, http.StatusOK, map[string][]*store.Pipeline{"pipelines": pipelines})
}

func (s *Server) handleCreatePipeline(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePipelineRequest(w, r)
	if !ok {
		return
	}
	p, err := s.store.CreatePipeline(r.Context(), req.Name, req.Steps)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "pipelineID")
	if !ok {
		return
	}
	p, err := s.store.GetPipeline(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePipeline(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "pipelineID")
	if !ok {
		return
	}
	req, ok := decodePipelineRequest(w, r)
	if !ok {
		return
	}
	p, err := s.store.UpdatePipeline(r.Context(), id, req.Name, req.Steps)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePipeline(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "pipelineID")
	if !ok {
		return
	}
	if err := s.store.DeletePipeline(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readUploadForm extracts the file and parse options from a multipart form.
// On failure it writes the error response and returns ok=false.
func (s *Server) readUploadForm(w http.ResponseWriter, r *http.Request) (filename string, srcType tabular.SourceType, opts tabular.ParseOptions, data []byte, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Parse.MaxFileSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondBadRequest(w, "missing or unreadable file field: "+err.Error())
		return
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		respondBadRequest(w, "failed to read file: "+err.Error())
		return
	}

	if raw := r.FormValue("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			respondBadRequest(w, "invalid options JSON: "+err.Error())
			return
		}
	}
	s.capMaxRows(&opts)

	filename = header.Filename
	srcType = detectSourceType(filename, data)
	ok = true
	return
}

// fetchUpload loads the upload named by the uploadID URL parameter.
func (s *Server) fetchUpload(w http.ResponseWriter, r *http.Request) (*store.Upload, bool) {
	id, ok := parseUUIDParam(w, r, "uploadID")
	if !ok {
		return nil, false
	}
	up, err := s.store.GetUpload(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	return up, true
}

// capMaxRows enforces the server-wide row cap on parse options.
func (s *Server) capMaxRows(opts *tabular.ParseOptions) {
	max := s.cfg.Parse.MaxRows
	if max <= 0 {
		return
	}
	if opts.MaxRows <= 0 || opts.MaxRows > max {
		opts.MaxRows = max
	}
}

// detectSourceType routes a payload to a parser: workbook extensions and the
// zip magic bytes mean xlsx, everything else is delimited text.
func detectSourceType(filename string, data []byte) tabular.SourceType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return tabular.SourceWorkbook
	case ".csv", ".tsv", ".txt":
		return tabular.SourceDelimited
	}
	if len(data) >= 4 && data[0] == 'P' && data[1] == 'K' && data[2] == 3 && data[3] == 4 {
		return tabular.SourceWorkbook
	}
	return tabular.SourceDelimited
}

// applyOptionOverrides lets read requests tweak stored options per call.
func applyOptionOverrides(opts *tabular.ParseOptions, r *http.Request) {
	q := r.URL.Query()
	if v := q.Get("maxRows"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxRows = n
		}
	}
	if v := q.Get("sheet"); v != "" {
		opts.SheetName = v
		opts.SheetIndex = nil
	}
	if v := q.Get("sheetIndex"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.SheetIndex = &n
			opts.SheetName = ""
		}
	}
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseUUIDParam parses a UUID URL parameter, writing a 400 on failure.
func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		respondBadRequest(w, fmt.Sprintf("invalid %s: %q", name, raw))
		return uuid.UUID{}, false
	}
	return id, true
}

func decodePipelineRequest(w http.ResponseWriter, r *http.Request) (pipelineRequest, bool) {
	var req pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid JSON body: "+err.Error())
		return req, false
	}
	if strings.TrimSpace(req.Name) == "" {
		respondBadRequest(w, "name is required")
		return req, false
	}
	return req, true
}

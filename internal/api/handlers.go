package api

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rotisserie/eris"
	"github.com/spf13/cast"

	"github.com/sells-group/dataset-cli/internal/export"
	"github.com/sells-group/dataset-cli/internal/model"
	"github.com/sells-group/dataset-cli/internal/preprocess"
)

type extractRequest struct {
	Query       string         `json:"query"`
	Fields      model.FieldSet `json:"fields"`
	RecordCount any            `json:"record_count"`
}

type extractResponse struct {
	PreviewData  model.Dataset `json:"preview_data"`
	TotalRecords int           `json:"total_records"`
	RunID        string        `json:"run_id,omitempty"`
}

type preprocessRequest struct {
	Data          model.Dataset        `json:"data"`
	Format        string               `json:"format"`
	Preprocessing model.PreprocessSpec `json:"preprocessing"`
}

func (s *Server) extractStructured(w http.ResponseWriter, r *http.Request) {
	var body extractRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		respondError(w, r, eris.Wrapf(model.ErrInput, "api: decode request: %v", err))
		return
	}
	if body.Query == "" {
		respondMessage(w, r, http.StatusBadRequest, "Please provide a search query")
		return
	}

	count := defaultRecordCount
	if body.RecordCount != nil {
		n, err := parseRecordCount(body.RecordCount)
		if err != nil {
			respondError(w, r, eris.Wrapf(model.ErrInput, "api: record_count: %v", err))
			return
		}
		count = n
	}

	fields := make([]model.FieldSpec, len(body.Fields))
	for i, f := range body.Fields {
		if f.Description == "" {
			f.Description = f.Name
		}
		fields[i] = f
	}

	req, err := model.NewExtractionRequest(body.Query, fields, count)
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.extractor.Run(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	preview := make([]model.Record, 0, len(res.Records))
	for _, rec := range res.Records {
		if mostlyEmpty(rec) {
			continue
		}
		preview = append(preview, rec)
	}
	if len(preview) == 0 {
		respondMessage(w, r, http.StatusNotFound, "No valid data extracted. Try adjusting your field specifications.")
		return
	}

	names := make([]string, len(req.Fields))
	for i, f := range req.Fields {
		names[i] = f.Name
	}
	render.JSON(w, r, extractResponse{
		PreviewData:  model.NewDataset(preview, names),
		TotalRecords: len(preview),
		RunID:        res.RunID,
	})
}

// parseRecordCount reads record_count as a JSON number or a base-10 string.
// Leading zeros do not switch the base.
func parseRecordCount(v any) (int, error) {
	if s, ok := v.(string); ok {
		return strconv.Atoi(strings.TrimSpace(s))
	}
	return cast.ToIntE(v)
}

// mostlyEmpty reports whether more than half of the record's values are
// empty or the missing token.
func mostlyEmpty(rec model.Record) bool {
	return rec.EmptyCount()*2 > len(rec)
}

func (s *Server) previewPreprocessed(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeDataset(w, r, "No data to preprocess")
	if !ok {
		return
	}
	render.JSON(w, r, preprocess.Apply(body.Data, body.Preprocessing))
}

func (s *Server) downloadDataset(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeDataset(w, r, "No data to download")
	if !ok {
		return
	}
	format, err := export.ParseFormat(body.Format)
	if err != nil {
		respondMessage(w, r, http.StatusBadRequest, "Unsupported output format")
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, preprocess.Apply(body.Data, body.Preprocessing)); err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.FileName()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func decodeDataset(w http.ResponseWriter, r *http.Request, emptyMsg string) (preprocessRequest, bool) {
	var body preprocessRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		respondError(w, r, eris.Wrapf(model.ErrInput, "api: decode request: %v", err))
		return body, false
	}
	if body.Data.Len() == 0 {
		respondMessage(w, r, http.StatusBadRequest, emptyMsg)
		return body, false
	}
	return body, true
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondMessage(w, r, http.StatusNotFound, "run log is disabled")
		return
	}
	runs, err := s.runs.ListRuns(r.Context(), cast.ToInt(r.URL.Query().Get("limit")))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	render.JSON(w, r, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondMessage(w, r, http.StatusNotFound, "run log is disabled")
		return
	}
	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, run)
}

package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"workorder-invoicer/internal/invoice"
	"workorder-invoicer/internal/report"
	"workorder-invoicer/internal/scrapers/ingenico"
)

// RegisterRoutes mounts the operator API on mux, finished invoices are served under
// /invoices/.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/generate-invoice", s.handleGenerateInvoice)
	mux.HandleFunc("GET /api/generation-status", s.handleGenerationStatus)
	mux.HandleFunc("GET /api/get-latest-invoice", s.handleLatestInvoice)
	mux.HandleFunc("POST /api/update-credentials", s.handleUpdateCredentials)
	mux.HandleFunc("POST /api/parse-request", s.handleParseRequest)
	mux.HandleFunc("GET /api/runs", s.handleRuns)

	mux.HandleFunc("GET /api/ingenico/get-filters", s.handleClosedJobFilters)
	mux.HandleFunc("POST /api/ingenico/search-closed-jobs", s.handleSearchClosedJobs)
	mux.HandleFunc("POST /api/ingenico/update-credentials", s.handleIngenicoCredentials)
	mux.HandleFunc("GET /api/ingenico/list-downloads", s.handleDownloads)

	mux.Handle("GET /invoices/", http.StripPrefix("/invoices/", http.FileServer(http.Dir(s.opts.InvoiceDir))))
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonStatus(w, http.StatusOK, v)
}

func jsonStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonStatus(w, code, map[string]any{"success": false, "error": msg})
}

// decodeBody reads an optional json body, an empty body leaves out untouched.
func decodeBody(r *http.Request, out any) error {
	err := json.NewDecoder(r.Body).Decode(out)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type generateRequest struct {
	DateFrom     string `json:"date_from"`
	DateTo       string `json:"date_to"`
	SearchString string `json:"search_string"`
	RecordLimit  int    `json:"record_limit"`
}

func (s *Service) handleGenerateInvoice(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	err := decodeBody(r, &body)
	if err != nil {
		jsonError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	params := invoice.Params{
		DateFrom:     body.DateFrom,
		DateTo:       body.DateTo,
		SearchString: body.SearchString,
		RecordLimit:  body.RecordLimit,
	}
	if params.RecordLimit <= 0 {
		params.RecordLimit = invoice.DefaultRecordLimit
	}
	_, _, err = invoice.ParseDateRange(params.DateFrom, params.DateTo)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.StartInvoice(params)
	if errors.Is(err, ErrAlreadyRunning) {
		jsonError(w, "Invoice generation is already running", http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"success": true, "message": "Invoice generation started"})
}

func (s *Service) handleGenerationStatus(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, s.Status())
}

func (s *Service) handleLatestInvoice(w http.ResponseWriter, r *http.Request) {
	folder, file, err := s.LatestInvoice()
	if errors.Is(err, report.ErrNoInvoice) {
		jsonError(w, "No invoices found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"success": true, "folder": folder, "file": file})
}

func (s *Service) handleUpdateCredentials(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Credentials map[string]string `json:"credentials"`
	}
	err := decodeBody(r, &body)
	if err != nil {
		jsonError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	update, err := s.UpdateCredentials(r.Context(), body.Credentials)
	if errors.Is(err, ErrNoCredentials) {
		jsonError(w, "No credentials provided", http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, fmt.Sprintf("Error updating credentials: %v", err), http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Updated %d credentials successfully", len(update.Updated)),
		"unknown": update.Unknown,
	})
}

func (s *Service) handleParseRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestText    string `json:"request_text"`
		CredentialType string `json:"credential_type"`
	}
	err := decodeBody(r, &body)
	if err != nil {
		jsonError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(body.RequestText)
	if text == "" {
		jsonError(w, "No request text provided", http.StatusBadRequest)
		return
	}
	updates, err := s.ParseRequest(text, body.CredentialType)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonOK(w, map[string]any{"success": true, "credentials": updates})
}

func (s *Service) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.Runs(r.Context(), limit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	type run struct {
		ID         string `json:"id"`
		Kind       string `json:"kind"`
		StartedAt  string `json:"started_at"`
		FinishedAt string `json:"finished_at,omitempty"`
		Succeeded  int    `json:"succeeded"`
		Failed     int    `json:"failed"`
		Total      int    `json:"total"`
		ResultPath string `json:"result_path,omitempty"`
		Error      string `json:"error,omitempty"`
	}
	out := []run{}
	for _, archived := range runs {
		entry := run{
			ID:         archived.ID,
			Kind:       archived.Kind,
			StartedAt:  archived.StartedAt.Format(time.DateTime),
			Succeeded:  archived.Succeeded,
			Failed:     archived.Failed,
			Total:      archived.Total,
			ResultPath: archived.ResultPath,
			Error:      archived.Error,
		}
		if archived.Finished() {
			entry.FinishedAt = archived.FinishedAt.Format(time.DateTime)
		}
		out = append(out, entry)
	}
	jsonOK(w, map[string]any{"success": true, "runs": out})
}

func (s *Service) handleClosedJobFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := s.ClosedJobFilters(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"success": true, "filters": filters})
}

func (s *Service) handleSearchClosedJobs(w http.ResponseWriter, r *http.Request) {
	var filters ingenico.Filters
	err := decodeBody(r, &filters)
	if err != nil {
		jsonError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	outcome := s.SearchClosedJobs(r.Context(), filters)
	if !outcome.Success {
		jsonStatus(w, http.StatusBadRequest, outcome)
		return
	}
	jsonOK(w, outcome)
}

func (s *Service) handleIngenicoCredentials(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurlCommand string `json:"curl_command"`
	}
	err := decodeBody(r, &body)
	if err != nil {
		jsonError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	command := strings.TrimSpace(body.CurlCommand)
	if command == "" {
		jsonError(w, "No curl command provided", http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(command, "curl") {
		jsonError(w, "The command does not look like a curl command", http.StatusBadRequest)
		return
	}
	updates, err := s.ImportIngenicoCurl(r.Context(), command)
	if err != nil {
		jsonError(w, fmt.Sprintf("Could not update the credentials: %v", err), http.StatusBadRequest)
		return
	}
	jsonOK(w, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Updated %d Ingenico credentials", len(updates)),
	})
}

func (s *Service) handleDownloads(w http.ResponseWriter, r *http.Request) {
	downloads, err := s.ClosedJobDownloads()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"success": true, "downloads": downloads})
}

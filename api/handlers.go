/*
handlers.go - HTTP API handlers for the deduction engine

PURPOSE:
  Exposes the calculator and the record store via REST. Handles HTTP
  request/response and JSON serialization only; all decision logic
  stays in the dtr package.

ENDPOINTS:
  POST   /api/records/compute      Calculate without saving
  GET    /api/records              List records (optional ?from=&to=)
  POST   /api/records              Save a record (?overwrite=true to confirm)
  GET    /api/records/{date}       Get one record
  PUT    /api/records/{date}       Edit actual times (recomputes)
  DELETE /api/records              Batch delete by date list
  GET    /api/export.csv           CSV dump of the full history
  GET    /api/schedule             Describe the active schedule rule

ERROR HANDLING:
  - 400: Validation errors, malformed dates/times
  - 404: No record for date
  - 409: Save conflict; body carries the existing record
  - 500: Persistence errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/attendance-engine/dtr"
	"github.com/warp/attendance-engine/export"
)

const timeLayout = time.RFC3339

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store dtr.Store
	Rule  *dtr.ScheduleRule
}

// NewHandler creates a new handler with the given store and rule.
func NewHandler(store dtr.Store, rule *dtr.ScheduleRule) *Handler {
	return &Handler{Store: store, Rule: rule}
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Compute runs the calculator without touching the store.
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, morning, afternoon, err := parseEntries(req.Date, req.Morning, req.Afternoon)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input", err)
		return
	}

	result, err := dtr.Compute(date, morning, afternoon, h.Rule)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, computedDTO(result))
}

// =============================================================================
// RECORDS
// =============================================================================

// ListRecords returns the history, optionally bounded by ?from=&to=.
// A missing bound leaves that end of the range open.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")

	var (
		records iter.Seq[dtr.DeductionRecord]
		err     error
	)
	if fromStr != "" || toStr != "" {
		from := dtr.NewDate(1, time.January, 1)
		if fromStr != "" {
			var perr error
			if from, perr = dtr.ParseDate(fromStr); perr != nil {
				writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", perr)
				return
			}
		}
		to := dtr.NewDate(9999, time.December, 31)
		if toStr != "" {
			var perr error
			if to, perr = dtr.ParseDate(toStr); perr != nil {
				writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", perr)
				return
			}
		}
		records, err = h.Store.Query(r.Context(), from, to)
	} else {
		records, err = h.Store.All(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list records", err)
		return
	}

	dtos := make([]RecordDTO, 0)
	for rec := range records {
		dtos = append(dtos, recordDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveRecord writes a record. A save against an occupied date returns
// 409 with the existing record unless ?overwrite=true.
func (h *Handler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, morning, afternoon, err := parseEntries(req.Date, req.Morning, req.Afternoon)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input", err)
		return
	}

	overwrite := r.URL.Query().Get("overwrite") == "true"
	rec := dtr.DeductionRecord{Date: date, Morning: morning, Afternoon: afternoon}
	if err := h.Store.Save(r.Context(), rec, overwrite); err != nil {
		var conflict *dtr.ConflictError
		switch {
		case errors.As(err, &conflict):
			writeJSON(w, http.StatusConflict, ConflictResponse{
				Error:    "Record already exists for date",
				Date:     conflict.Date.String(),
				Existing: recordDTO(conflict.Existing),
			})
		case dtr.IsValidation(err):
			writeError(w, http.StatusBadRequest, "Validation failed", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to save record", err)
		}
		return
	}

	saved, err := h.Store.Get(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read back record", err)
		return
	}
	writeJSON(w, http.StatusCreated, recordDTO(saved))
}

// GetRecord returns one record by date.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	date, err := dtr.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	rec, err := h.Store.Get(r.Context(), date)
	if err != nil {
		if dtr.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "No record for date", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get record", err)
		return
	}
	writeJSON(w, http.StatusOK, recordDTO(rec))
}

// EditRecord replaces the actual times of an existing record.
func (h *Handler) EditRecord(w http.ResponseWriter, r *http.Request) {
	date, err := dtr.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	morning, err := entryFromDTO(req.Morning)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid morning entry", err)
		return
	}
	afternoon, err := entryFromDTO(req.Afternoon)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid afternoon entry", err)
		return
	}

	rec, err := h.Store.Edit(r.Context(), date, morning, afternoon)
	if err != nil {
		switch {
		case dtr.IsNotFound(err):
			writeError(w, http.StatusNotFound, "No record for date", nil)
		case dtr.IsValidation(err):
			writeError(w, http.StatusBadRequest, "Validation failed", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to edit record", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, recordDTO(rec))
}

// DeleteRecords removes a batch of dates. Missing dates are ignored.
func (h *Handler) DeleteRecords(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dates := make([]dtr.Date, 0, len(req.Dates))
	for _, s := range req.Dates {
		d, err := dtr.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
		dates = append(dates, d)
	}

	removed, err := h.Store.Delete(r.Context(), dates...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete records", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Removed: removed})
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportCSV streams the full history as CSV, ascending by date.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="dtr_history.csv"`)
	if err := export.WriteCSV(w, records); err != nil {
		// Headers are already sent; nothing left to do but log via middleware.
		return
	}
}

// =============================================================================
// SCHEDULE
// =============================================================================

// GetSchedule describes the active schedule rule.
func (h *Handler) GetSchedule(w http.ResponseWriter, _ *http.Request) {
	days := make(map[string]DayDTO)
	for wd, ds := range h.Rule.WorkingDays() {
		days[strings.ToLower(wd.String())] = DayDTO{
			MorningIn:    ds.MorningIn.String(),
			MorningOut:   ds.MorningOut.String(),
			AfternoonIn:  ds.AfternoonIn.String(),
			AfternoonOut: ds.AfternoonOut.String(),
		}
	}
	writeJSON(w, http.StatusOK, ScheduleDTO{
		Days:                 days,
		GraceMinutes:         int(h.Rule.Grace()),
		FlexiCapMinutes:      int(h.Rule.FlexiCap()),
		HalfDayAbsencePoints: h.Rule.HalfDayAbsence().String(),
		FullDayAbsencePoints: h.Rule.FullDayAbsence().String(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseEntries(dateStr string, m, a TimeEntryDTO) (dtr.Date, dtr.TimeEntry, dtr.TimeEntry, error) {
	date, err := dtr.ParseDate(dateStr)
	if err != nil {
		return dtr.Date{}, dtr.TimeEntry{}, dtr.TimeEntry{}, err
	}
	morning, err := entryFromDTO(m)
	if err != nil {
		return dtr.Date{}, dtr.TimeEntry{}, dtr.TimeEntry{}, err
	}
	afternoon, err := entryFromDTO(a)
	if err != nil {
		return dtr.Date{}, dtr.TimeEntry{}, dtr.TimeEntry{}, err
	}
	return date, morning, afternoon, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

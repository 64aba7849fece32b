// Package handler exposes the engines over HTTP (chi) and over the
// Telegram scanning-station bot.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"mealscan/importer"
	"mealscan/mailer"
	"mealscan/model"
	"mealscan/repo"
	"mealscan/scan"
	"mealscan/stats"
)

// API wires the engines to HTTP routes. Sheets is nil when no Google
// credentials are configured.
type API struct {
	Stores     repo.Stores
	Scanner    *scan.Engine
	Importer   *importer.Engine
	Sheets     *importer.SheetFetcher
	Dispatcher *mailer.Dispatcher
	Aggregator *stats.Aggregator
}

// Router builds the chi router for the API.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan/verify", a.verify)
		r.Post("/events", a.createEvent)
		r.Route("/events/{eventID}", func(r chi.Router) {
			r.Get("/", a.getEvent)
			r.Post("/import", a.importCSV)
			r.Post("/sync", a.syncSheet)
			r.Post("/backfill-rolls", a.backfillRolls)
			r.Get("/stats", a.liveStats)
			r.Post("/dispatch", a.dispatch)
		})
	})
	return r
}

// ------------------- Helper utilities -------------------

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ------------------- Scan -------------------

type verifyRequest struct {
	QRPayload string `json:"qrPayload"`
	DryRun    bool   `json:"dryRun"`
}

// verify handles POST /api/scan/verify.
func (a *API) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := a.Scanner.Verify(r.Context(), req.QRPayload, req.DryRun)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, model.ErrInvalidPayload):
		writeJSON(w, http.StatusBadRequest, result)
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, result)
	default:
		log.Error().Err(err).Msg("scan verification failed")
		writeJSON(w, http.StatusInternalServerError, result)
	}
}

// ------------------- Events (thin wrappers) -------------------

func (a *API) createEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := decodeJSON(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if ev.Name == "" {
		writeError(w, http.StatusBadRequest, "event name is required")
		return
	}
	if _, err := a.Stores.Events.CreateEvent(r.Context(), &ev); err != nil {
		log.Error().Err(err).Msg("event creation failed")
		writeError(w, http.StatusInternalServerError, "could not create event")
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (a *API) getEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := a.Stores.Events.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		if errors.Is(err, model.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not read event")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// ------------------- Import / sync -------------------

type importResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Message string `json:"message"`
	*importer.Report
}

// importCSV handles POST /api/events/{eventID}/import with a CSV body.
func (a *API) importCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := importer.ParseCSV(http.MaxBytesReader(w, r.Body, 10<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not parse roster: "+err.Error())
		return
	}
	a.runImport(w, r, rows)
}

type syncRequest struct {
	SheetID   string `json:"sheetId"`
	SheetName string `json:"sheetName"`
}

// syncSheet handles POST /api/events/{eventID}/sync; the body may
// override the event's stored sheet configuration.
func (a *API) syncSheet(w http.ResponseWriter, r *http.Request) {
	if a.Sheets == nil {
		writeError(w, http.StatusServiceUnavailable, "sheet sync is not configured")
		return
	}
	var req syncRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ev, err := a.Stores.Events.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	sheetID, sheetName := req.SheetID, req.SheetName
	if sheetID == "" {
		sheetID, sheetName = ev.SheetID, ev.SheetName
	}
	if sheetID == "" {
		writeError(w, http.StatusBadRequest, "event has no sheet configured")
		return
	}

	rows, err := a.Sheets.Fetch(r.Context(), sheetID, sheetName)
	if err != nil {
		if errors.Is(err, model.ErrMalformedSheet) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "sheet fetch failed: "+err.Error())
		return
	}
	a.runImport(w, r, rows)
}

func (a *API) runImport(w http.ResponseWriter, r *http.Request, rows *importer.Rows) {
	report, err := a.Importer.Import(r.Context(), chi.URLParam(r, "eventID"), rows)
	if err != nil {
		// Committed batches survive; surface the partial counts.
		resp := importResponse{Success: false, Message: err.Error(), Report: report}
		if report != nil {
			resp.Count = report.Imported
		}
		if errors.Is(err, model.ErrMalformedSheet) {
			writeJSON(w, http.StatusBadRequest, resp)
			return
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{
		Success: true,
		Count:   report.Imported,
		Message: "roster imported",
		Report:  report,
	})
}

// backfillRolls handles POST /api/events/{eventID}/backfill-rolls.
func (a *API) backfillRolls(w http.ResponseWriter, r *http.Request) {
	updated, err := a.Importer.BackfillRollNumbers(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		log.Error().Err(err).Msg("roll number backfill failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"updated": updated,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// ------------------- Stats -------------------

// liveStats handles GET /api/events/{eventID}/stats. With ?recompute=1
// the table is rebuilt from the roster and reconciled into the cache.
func (a *API) liveStats(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	var (
		table model.LiveStats
		err   error
	)
	if r.URL.Query().Get("recompute") != "" {
		table, err = a.Aggregator.Reconcile(r.Context(), eventID)
	} else {
		table, err = a.Aggregator.Cached(r.Context(), eventID)
	}
	if err != nil {
		log.Error().Err(err).Str("eventId", eventID).Msg("live stats read failed")
		writeError(w, http.StatusInternalServerError, "could not read live stats")
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// ------------------- Dispatch -------------------

type dispatchRequest struct {
	TargetRollNo string `json:"targetRollNo"`
}

// dispatch handles POST /api/events/{eventID}/dispatch, streaming one
// NDJSON progress record per delivery and a terminal record with
// hasMore.
func (a *API) dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	_ = decodeJSON(r, &req) // empty body means the whole event

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	_, err := a.Dispatcher.Run(r.Context(), chi.URLParam(r, "eventID"), req.TargetRollNo, func(p mailer.Progress) {
		_ = enc.Encode(p)
		if flusher != nil {
			flusher.Flush()
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("dispatch run failed")
	}
}

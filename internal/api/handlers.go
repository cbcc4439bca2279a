package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/export"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const defaultRecentLimit = 5

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// TodoRequest is the body of POST /api/todos.
type TodoRequest struct {
	Text string `json:"text"`
}

// RestoreResponse reports how many trades a restore wrote.
type RestoreResponse struct {
	Restored int `json:"restored"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) listTradesHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.book.List())
}

func (s *Server) addTradeHandler(w http.ResponseWriter, r *http.Request) {
	var raw journal.RawTradeInput
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	trade, err := s.book.Add(r.Context(), raw)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) recentTradesHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", "limit")
			return
		}
		limit = n
	}
	s.writeJSON(w, http.StatusOK, analytics.RecentTrades(s.book.List(), limit))
}

func (s *Server) restoreTradesHandler(w http.ResponseWriter, r *http.Request) {
	var trades []models.Trade
	if err := json.NewDecoder(r.Body).Decode(&trades); err != nil {
		s.writeError(w, http.StatusBadRequest, "body must be a JSON array of trades", "")
		return
	}
	if err := s.book.Restore(r.Context(), trades); err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RestoreResponse{Restored: len(trades)})
}

func (s *Server) deleteTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	if _, err := s.book.Remove(r.Context(), id); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, analytics.ComputeKPIs(s.book.List()))
}

func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	month := s.now()
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := time.Parse("2006-01", v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "month must be YYYY-MM", "month")
			return
		}
		month = parsed
	}
	s.writeJSON(w, http.StatusOK, analytics.BuildCalendar(s.book.List(), month.Year(), month.Month()))
}

func (s *Server) equityHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, analytics.EquityCurve(s.book.List()))
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	report, ok := s.report(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), "format")
		return
	}
	report, ok := s.report(w, r)
	if !ok {
		return
	}

	doc := export.NewDocument(report, s.now())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename+format.Extension()))
	if err := doc.Write(w, format); err != nil {
		s.logger.Error("Failed to write export", zap.String("filename", doc.Filename), zap.Error(err))
	}
}

// report resolves the period from the query and returns the cached or
// freshly built report. A blank period answers 204 and returns false.
func (s *Server) report(w http.ResponseWriter, r *http.Request) (analytics.ReportResult, bool) {
	q := r.URL.Query()
	period, err := analytics.ParsePeriod(q.Get("kind"), q.Get("value"))
	if errors.Is(err, analytics.ErrEmptyPeriod) {
		w.WriteHeader(http.StatusNoContent)
		return analytics.ReportResult{}, false
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), "value")
		return analytics.ReportResult{}, false
	}

	key := fmt.Sprintf("%d:%s:%s", s.book.Version(), period.Kind, period.Value)
	if cached, found := s.reports.Get(key); found {
		return cached.(analytics.ReportResult), true
	}
	report := analytics.BuildReport(s.book.List(), period)
	s.reports.SetDefault(key, report)
	return report, true
}

func (s *Server) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.book.Todos())
}

func (s *Server) addTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req TodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	todo, err := s.book.AddTodo(r.Context(), req.Text)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, todo)
}

func (s *Server) toggleTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	todo, found, err := s.book.ToggleTodo(r.Context(), id)
	if err != nil {
		s.handleError(w, err)
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, "todo not found", "id")
		return
	}
	s.writeJSON(w, http.StatusOK, todo)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	if _, err := s.book.RemoveTodo(r.Context(), id); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "id must be an integer", "id")
		return 0, false
	}
	return id, true
}

// handleError maps domain errors to status codes.
func (s *Server) handleError(w http.ResponseWriter, err error) {
	var fieldErr *journal.FieldError
	switch {
	case errors.As(err, &fieldErr):
		s.writeError(w, http.StatusUnprocessableEntity, fieldErr.Message, fieldErr.Field)
	case errors.Is(err, journal.ErrInvalidTrade):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error(), "")
	case errors.Is(err, journal.ErrEmptyTodo):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error(), "text")
	default:
		s.logger.Error("Request failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, field string) {
	s.writeJSON(w, status, ErrorResponse{Error: message, Field: field})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

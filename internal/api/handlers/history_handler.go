package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"mt5bridge/internal/models"
	"mt5bridge/internal/service"
)

// HistoryResponse - ответ с записями журнала ордеров
type HistoryResponse struct {
	Total   int                         `json:"total"`
	Records []*models.OrderJournalRecord `json:"records"`
}

// HistoryHandler отвечает за чтение журнала исполненных ордеров
//
// Endpoints:
// - GET /api/v1/history - последние записи журнала
// - GET /api/v1/history/{ticket} - записи по ticket (обе ноги при разбиении)
type HistoryHandler struct {
	journal JournalServiceInterface
}

// NewHistoryHandler создает новый HistoryHandler
func NewHistoryHandler(journal JournalServiceInterface) *HistoryHandler {
	return &HistoryHandler{journal: journal}
}

// GetHistory возвращает последние записи журнала
// GET /api/v1/history?symbol=EURUSD&limit=50
//
// Query параметры:
// - symbol: фильтр по символу (опционально)
// - limit: максимум записей, 1..1000, по умолчанию 100
//
// Ответы:
// - 200 OK: записи журнала
// - 400 Bad Request: некорректный limit
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	records, err := h.journal.History(symbol, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLimit) {
			respondWithError(w, http.StatusBadRequest, "Invalid limit", err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to read history", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, HistoryResponse{
		Total:   len(records),
		Records: records,
	})
}

// GetHistoryByTicket возвращает записи журнала по ticket
// GET /api/v1/history/{ticket}
//
// При разбиении take-profit на две ноги возвращаются обе записи.
//
// Ответы:
// - 200 OK: записи найдены
// - 400 Bad Request: некорректный ticket
// - 404 Not Found: записей нет
func (h *HistoryHandler) GetHistoryByTicket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ticket, err := strconv.ParseInt(vars["ticket"], 10, 64)
	if err != nil || ticket <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid ticket", "ticket must be a positive integer")
		return
	}

	records, err := h.journal.ByTicket(ticket)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to read history", err.Error())
		return
	}
	if len(records) == 0 {
		respondWithError(w, http.StatusNotFound, "No journal records for ticket", "")
		return
	}

	respondWithJSON(w, http.StatusOK, HistoryResponse{
		Total:   len(records),
		Records: records,
	})
}

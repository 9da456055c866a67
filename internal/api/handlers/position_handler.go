package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"mt5bridge/internal/models"
)

// PositionsResponse - ответ со списком позиций
type PositionsResponse struct {
	Count     int                     `json:"count"`
	Positions []models.PositionRecord `json:"positions"`
}

// CountResponse - ответ со счетчиком
type CountResponse struct {
	Count int `json:"count"`
}

// PositionHandler отвечает за чтение и изменение позиций
//
// Endpoints:
// - GET /api/v1/positions - снапшот открытых позиций из кэша
// - GET /api/v1/positions/count - количество открытых позиций
// - GET /api/v1/positions/{ticket} - одна позиция по ticket
// - POST /api/v1/positions/{ticket}/close - закрыть позицию
// - PATCH /api/v1/positions/{ticket} - изменить SL/TP или частично закрыть
type PositionHandler struct {
	bridge      BridgeInterface
	journal     JournalServiceInterface
	broadcaster Broadcaster
}

// NewPositionHandler создает новый PositionHandler
func NewPositionHandler(bridge BridgeInterface, journal JournalServiceInterface, broadcaster Broadcaster) *PositionHandler {
	return &PositionHandler{
		bridge:      bridge,
		journal:     journal,
		broadcaster: broadcaster,
	}
}

// GetPositions возвращает снапшот открытых позиций
// GET /api/v1/positions
//
// Данные берутся из локального кэша реконсиляции, запрос к терминалу
// не выполняется.
func (h *PositionHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.bridge.Positions()
	if positions == nil {
		positions = []models.PositionRecord{}
	}

	respondWithJSON(w, http.StatusOK, PositionsResponse{
		Count:     len(positions),
		Positions: positions,
	})
}

// GetPositionCount возвращает количество открытых позиций
// GET /api/v1/positions/count
func (h *PositionHandler) GetPositionCount(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, CountResponse{Count: h.bridge.PositionCount()})
}

// GetPosition возвращает одну позицию по ticket
// GET /api/v1/positions/{ticket}
//
// Ответы:
// - 200 OK: позиция найдена в кэше
// - 400 Bad Request: некорректный ticket
// - 404 Not Found: позиция отсутствует
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	ticket, ok := parseTicket(w, r)
	if !ok {
		return
	}

	pos, found := h.bridge.Position(ticket)
	if !found {
		respondWithError(w, http.StatusNotFound, "Position not found", "")
		return
	}

	respondWithJSON(w, http.StatusOK, pos)
}

// ClosePosition закрывает позицию встречной сделкой
// POST /api/v1/positions/{ticket}/close
//
// Ответы:
// - 200 OK: позиция закрыта, в теле итоговые profit/commission/swap
// - 404 Not Found: позиция не найдена на терминале
// - 503 Service Unavailable: нет соединения с терминалом
func (h *PositionHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	ticket, ok := parseTicket(w, r)
	if !ok {
		return
	}

	result := h.bridge.ClosePosition(r.Context(), ticket)

	if h.journal != nil {
		h.journal.RecordExecution(&models.TradeIntent{Action: models.ActionClose, Magic: ticket}, result)
	}
	if h.broadcaster != nil {
		h.broadcaster.BroadcastTradeEvent(models.ActionClose, result)
	}

	respondWithResult(w, result)
}

// ModifyPosition изменяет SL/TP позиции или частично закрывает её
// PATCH /api/v1/positions/{ticket}
//
// Тело запроса:
//
//	{
//	  "stop_loss": 1.0950,      // 0 = оставить как есть
//	  "take_profit": 1.1100,    // 0 = оставить как есть
//	  "partial_volume": 0.05    // > 0 = частичное закрытие
//	}
//
// Ответы:
// - 200 OK: изменено
// - 400 Bad Request: некорректное намерение
// - 404 Not Found: позиция не найдена
func (h *PositionHandler) ModifyPosition(w http.ResponseWriter, r *http.Request) {
	ticket, ok := parseTicket(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var intent models.ModifyIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	intent.Ticket = ticket

	result := h.bridge.ModifyPosition(r.Context(), &intent)

	if h.broadcaster != nil {
		h.broadcaster.BroadcastTradeEvent("modify", result)
	}

	respondWithResult(w, result)
}

// parseTicket извлекает и валидирует {ticket} из пути
func parseTicket(w http.ResponseWriter, r *http.Request) (int64, bool) {
	vars := mux.Vars(r)
	ticket, err := strconv.ParseInt(vars["ticket"], 10, 64)
	if err != nil || ticket <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid ticket", "ticket must be a positive integer")
		return 0, false
	}
	return ticket, true
}

package handlers

import (
	"net/http"

	"mt5bridge/internal/models"
)

// TradeHandler отвечает за исполнение торговых намерений
//
// Endpoints:
// - POST /api/v1/trade - исполнить торговое намерение (buy/sell/close)
type TradeHandler struct {
	bridge      BridgeInterface
	journal     JournalServiceInterface
	broadcaster Broadcaster
}

// NewTradeHandler создает новый TradeHandler.
// journal и broadcaster могут быть nil: журналирование и push
// уведомления тогда отключены.
func NewTradeHandler(bridge BridgeInterface, journal JournalServiceInterface, broadcaster Broadcaster) *TradeHandler {
	return &TradeHandler{
		bridge:      bridge,
		journal:     journal,
		broadcaster: broadcaster,
	}
}

// ExecuteTrade исполняет торговое намерение
// POST /api/v1/trade
//
// Тело запроса:
//
//	{
//	  "symbol": "EURUSD",
//	  "action": "buy",          // buy, sell, close
//	  "volume": 0.10,
//	  "order_type": "market",   // market, limit
//	  "price": 0,               // обязателен для limit
//	  "stop_loss": 1.0950,
//	  "tp1": 1.1050,            // двухуровневый TP: объём делится пополам
//	  "tp2": 1.1100,
//	  "magic": 12345
//	}
//
// Ответы:
// - 200 OK: исполнено (включая частичный успех, см. поле partial)
// - 400 Bad Request: некорректное намерение
// - 404 Not Found: позиция не найдена (action=close)
// - 422 Unprocessable Entity: символ не найден или брокер отклонил
// - 503 Service Unavailable: нет соединения с терминалом
func (h *TradeHandler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var intent models.TradeIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	result := h.bridge.ExecuteTrade(r.Context(), &intent)

	if h.journal != nil {
		h.journal.RecordExecution(&intent, result)
	}
	if h.broadcaster != nil {
		h.broadcaster.BroadcastTradeEvent(intent.Action, result)
	}

	respondWithResult(w, result)
}

package handlers

import (
	"context"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"mt5bridge/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MaxRequestBodySize ограничение размера тела запроса (1 MB)
const MaxRequestBodySize = 1 << 20 // 1 MB

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BridgeInterface - операции моста, нужные HTTP обработчикам.
// Позволяет подставлять мок в тестах.
type BridgeInterface interface {
	ExecuteTrade(ctx context.Context, intent *models.TradeIntent) *models.ExecutionResult
	ClosePosition(ctx context.Context, ticket int64) *models.ExecutionResult
	ModifyPosition(ctx context.Context, intent *models.ModifyIntent) *models.ExecutionResult
	Positions() []models.PositionRecord
	Position(ticket int64) (models.PositionRecord, bool)
	PositionCount() int
	PendingOrders(ctx context.Context) ([]models.PendingOrder, error)
	AccountInfo(ctx context.Context) (*models.AccountSnapshot, error)
	SyncNow(ctx context.Context) error
	IsHealthy() bool
}

// JournalServiceInterface - операции журнала ордеров для обработчиков
type JournalServiceInterface interface {
	RecordExecution(intent *models.TradeIntent, result *models.ExecutionResult)
	History(symbol string, limit int) ([]*models.OrderJournalRecord, error)
	ByTicket(ticket int64) ([]*models.OrderJournalRecord, error)
}

// Broadcaster - push уведомления о торговых событиях (WebSocket hub)
type Broadcaster interface {
	BroadcastTradeEvent(action string, result *models.ExecutionResult)
}

// statusForErrorKind отображает вид ошибки исполнения в HTTP статус
func statusForErrorKind(kind models.ErrorKind) int {
	switch kind {
	case models.ErrKindInvalidIntent:
		return http.StatusBadRequest
	case models.ErrKindPositionNotFound:
		return http.StatusNotFound
	case models.ErrKindSymbolNotFound:
		return http.StatusUnprocessableEntity
	case models.ErrKindBrokerRejected:
		return http.StatusUnprocessableEntity
	case models.ErrKindConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError отправляет JSON ответ с ошибкой
func respondWithError(w http.ResponseWriter, code int, message string, details string) {
	respondWithJSON(w, code, ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// respondWithResult отправляет результат исполнения: 200 при успехе,
// статус по таксономии ошибок при неуспехе. Тело всегда содержит
// полный ExecutionResult, чтобы клиент видел error_kind и диагностику.
func respondWithResult(w http.ResponseWriter, result *models.ExecutionResult) {
	code := http.StatusOK
	if !result.Success {
		code = statusForErrorKind(result.ErrorKind)
	}
	respondWithJSON(w, code, result)
}

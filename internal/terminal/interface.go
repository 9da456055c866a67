package terminal

import (
	"context"

	"mt5bridge/internal/models"
)

// Gateway определяет унифицированный интерфейс к торговому терминалу.
//
// Терминал - единственный канал к брокеру. Push-уведомлений он не даёт:
// всё состояние опрашивается, поэтому поверх шлюза работает кэш позиций
// с фоновой реконсиляцией.
type Gateway interface {
	// Connect устанавливает соединение с терминалом
	Connect(ctx context.Context) error

	// Disconnect закрывает соединение
	Disconnect() error

	// Status возвращает статус терминала (подключён, торговля разрешена)
	Status(ctx context.Context) (*Status, error)

	// AccountSnapshot возвращает свежий снимок счёта.
	// Никогда не кэшируется.
	AccountSnapshot(ctx context.Context) (*models.AccountSnapshot, error)

	// SelectSymbol активирует символ в терминале.
	// Возвращает true если символ существует и торгуем.
	SelectSymbol(ctx context.Context, symbol string) (bool, error)

	// SymbolMeta возвращает торговые ограничения инструмента
	SymbolMeta(ctx context.Context, symbol string) (*SymbolMeta, error)

	// Tick возвращает текущие bid/ask
	Tick(ctx context.Context, symbol string) (*Tick, error)

	// SendOrder отправляет ордер (deal, pending или modify)
	SendOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error)

	// ListPositions возвращает полный список открытых позиций.
	// nil БЕЗ ошибки означает "нет данных" (транзиентный сбой терминала),
	// в отличие от явного пустого списка.
	ListPositions(ctx context.Context) ([]models.PositionRecord, error)

	// PositionByTicket возвращает одну позицию напрямую из терминала,
	// минуя кэш. Используется close/modify для максимально свежих данных.
	// Возвращает ErrPositionNotFound если позиции нет.
	PositionByTicket(ctx context.Context, ticket int64) (*models.PositionRecord, error)

	// ListPendingOrders возвращает отложенные ордера
	ListPendingOrders(ctx context.Context) ([]models.PendingOrder, error)
}

// Status - статус терминала
type Status struct {
	Connected    bool `json:"connected"`
	TradeAllowed bool `json:"trade_allowed"`
}

// Tick - текущая котировка
type Tick struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

// SymbolMeta содержит торговые ограничения инструмента
type SymbolMeta struct {
	Symbol       string  `json:"symbol"`
	MinVolume    float64 `json:"min_volume"`    // минимальный объём в лотах
	MaxVolume    float64 `json:"max_volume"`    // максимальный объём в лотах
	VolumeStep   float64 `json:"volume_step"`   // шаг изменения объёма
	PointSize    float64 `json:"point_size"`    // размер пункта
	StopsLevel   int     `json:"stops_level"`   // минимальная дистанция стопов в пунктах
	ContractSize float64 `json:"contract_size"` // размер контракта
}

// Виды запросов к терминалу
const (
	RequestDeal    = "deal"    // немедленное исполнение по рынку
	RequestPending = "pending" // отложенный лимитный ордер
	RequestModify  = "modify"  // изменение SL/TP существующей позиции
)

// Направления ордера
const (
	OrderBuy  = "buy"
	OrderSell = "sell"
)

// OrderRequest - запрос на отправку ордера
type OrderRequest struct {
	Kind       string  `json:"kind"` // deal, pending, modify
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"` // buy, sell
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price,omitempty"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`

	// PositionTicket указывается при закрытии против позиции и при modify
	PositionTicket int64 `json:"position,omitempty"`

	Magic   int64  `json:"magic,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// Retcodes терминала
const (
	RetcodeDone   = 10009 // запрос исполнен
	RetcodePlaced = 10008 // отложенный ордер размещён
)

// OrderResult - ответ терминала на отправку ордера
type OrderResult struct {
	Retcode int     `json:"retcode"`
	Ticket  int64   `json:"ticket"`
	Volume  float64 `json:"volume"`
	Price   float64 `json:"price"`
	Comment string  `json:"comment"` // причина брокера, передаётся дословно
}

// Ok сообщает, принят ли запрос терминалом
func (r *OrderResult) Ok() bool {
	return r.Retcode == RetcodeDone || r.Retcode == RetcodePlaced
}

// GatewayError представляет ошибку шлюза терминала
type GatewayError struct {
	Op       string // операция (send_order, list_positions...)
	Code     int    // retcode или HTTP статус, 0 если неизвестен
	Message  string
	Original error
}

func (e *GatewayError) Error() string {
	return "terminal: " + e.Op + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *GatewayError) Unwrap() error {
	return e.Original
}

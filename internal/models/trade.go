package models

// Действия торгового намерения
const (
	ActionBuy   = "buy"
	ActionSell  = "sell"
	ActionClose = "close"
)

// Типы ордеров
const (
	OrderKindMarket = "market"
	OrderKindLimit  = "limit"
)

// TradeIntent - абстрактное торговое намерение вызывающей стороны.
//
// Поля TP1/TP2 задают двухуровневый take-profit: намерение разбивается
// на два независимых ордера по половине объёма каждый.
// Magic используется как корреляционный тег, а для action=close -
// как ticket закрываемой позиции.
type TradeIntent struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`                // buy, sell, close
	Volume     float64 `json:"volume"`                // объём в лотах
	OrderKind  string  `json:"order_type"`            // market, limit
	Price      float64 `json:"price,omitempty"`       // 0 = по текущей рыночной цене
	StopLoss   float64 `json:"stop_loss,omitempty"`   // 0 = не устанавливать
	TakeProfit float64 `json:"take_profit,omitempty"` // одиночный TP
	TP1        float64 `json:"tp1,omitempty"`         // первый уровень TP
	TP2        float64 `json:"tp2,omitempty"`         // второй уровень TP
	Comment    string  `json:"comment,omitempty"`
	Magic      int64   `json:"magic,omitempty"`
}

// IsSplit сообщает, требует ли намерение разбиения на две ноги.
func (t *TradeIntent) IsSplit() bool {
	return t.TP1 > 0 && t.TP2 > 0
}

// ModifyIntent - запрос на изменение существующей позиции.
//
// PartialVolume > 0 означает частичное закрытие указанного объёма;
// иначе меняются только уровни SL/TP (0 = оставить как есть).
type ModifyIntent struct {
	Ticket        int64   `json:"ticket"`
	StopLoss      float64 `json:"stop_loss,omitempty"`
	TakeProfit    float64 `json:"take_profit,omitempty"`
	PartialVolume float64 `json:"partial_volume,omitempty"`
}

// Виды ошибок исполнения (таксономия)
//
// Каждая операция завершается структурированным результатом, а не паникой:
// обработчик запроса отображает ErrorKind в HTTP статус.
type ErrorKind string

const (
	// ErrKindConnection - шлюз недоступен или торговля запрещена терминалом.
	// Фатально для любой операции до успешного переподключения.
	ErrKindConnection ErrorKind = "connection_error"

	// ErrKindSymbolNotFound - ни один вариант символа не найден. Без retry.
	ErrKindSymbolNotFound ErrorKind = "symbol_not_found"

	// ErrKindInvalidIntent - некорректное намерение (неизвестное действие,
	// лимитный ордер без цены, close без ticket). Запрос к брокеру не делается.
	ErrKindInvalidIntent ErrorKind = "invalid_intent"

	// ErrKindBrokerRejected - шлюз вернул неуспешный retcode.
	// Причина брокера передаётся дословно.
	ErrKindBrokerRejected ErrorKind = "broker_rejected"

	// ErrKindPositionNotFound - позиция не подтвердилась после создания,
	// либо цель close/modify не существует.
	ErrKindPositionNotFound ErrorKind = "position_not_found"

	// ErrKindPartialExecution - первая нога разбиения успешна, вторая нет.
	// Передаётся как диагностика при общем успехе, не как ошибка верхнего уровня.
	ErrKindPartialExecution ErrorKind = "partial_execution"

	// ErrKindInternal - неожиданный внутренний сбой, перехваченный
	// на границе операции.
	ErrKindInternal ErrorKind = "internal_error"
)

// ExecutionResult - итог одной операции исполнения.
//
// При разбиении на две ноги Tickets/Volumes/Prices содержат обе ноги;
// Ticket дублирует первую для обратной совместимости с одиночным путём.
type ExecutionResult struct {
	Success bool `json:"success"`

	Ticket  int64     `json:"ticket,omitempty"`
	Tickets []int64   `json:"tickets,omitempty"`
	Volumes []float64 `json:"volumes,omitempty"`
	Prices  []float64 `json:"prices,omitempty"`
	Price   float64   `json:"price,omitempty"`
	Volume  float64   `json:"volume,omitempty"`

	// Финансовые поля копируются из последнего снимка позиции при close,
	// не пересчитываются
	Profit     float64 `json:"profit,omitempty"`
	Commission float64 `json:"commission,omitempty"`
	Swap       float64 `json:"swap,omitempty"`

	// Разбиение take-profit
	PartialTP bool  `json:"partial_tp_strategy,omitempty"`
	TP1Ticket int64 `json:"tp1_ticket,omitempty"`
	TP2Ticket int64 `json:"tp2_ticket,omitempty"`

	// Частичный успех: success=true, но вторая нога не открылась
	Partial bool `json:"partial,omitempty"`

	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	ErrorMsg  string    `json:"error_msg,omitempty"`

	// Диагностика второй ноги при частичном успехе
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Failure создаёт неуспешный результат с указанным видом ошибки.
func Failure(kind ErrorKind, msg string) *ExecutionResult {
	return &ExecutionResult{
		Success:   false,
		ErrorKind: kind,
		ErrorMsg:  msg,
	}
}

// AccountSnapshot - read-only проекция состояния счёта.
// Всегда запрашивается заново, локально не мутируется.
type AccountSnapshot struct {
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"free_margin"`
	Currency   string  `json:"currency"`
	Leverage   int     `json:"leverage"`
	Connected  bool    `json:"connected"`
}

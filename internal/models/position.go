package models

import "time"

// Стороны позиции
const (
	SideLong  = "long"  // длинная позиция (buy)
	SideShort = "short" // короткая позиция (sell)
)

// PositionRecord представляет одну открытую позицию терминала
// в том виде, в котором она последний раз наблюдалась локально.
//
// Инварианты:
// - Ровно одна запись на живой ticket
// - Запись никогда не обновляется частично: при реконсиляции
//   она заменяется целиком
// - Создаётся и удаляется ТОЛЬКО синхронизатором кэша позиций,
//   никогда кодом обработки запросов
type PositionRecord struct {
	Ticket         int64     `json:"ticket"`           // уникальный id позиции, назначается брокером
	Symbol         string    `json:"symbol"`           // канонический торгуемый символ
	Volume         float64   `json:"volume"`           // объём в лотах, всегда > 0
	Side           string    `json:"side"`             // long или short
	OpenPrice      float64   `json:"open_price"`       // цена открытия
	StopLoss       float64   `json:"stop_loss"`        // 0 = не установлен
	TakeProfit     float64   `json:"take_profit"`      // 0 = не установлен
	Magic          int64     `json:"magic"`            // корреляционный тег вызывающей стороны
	Comment        string    `json:"comment"`          // произвольный текст
	Profit         float64   `json:"profit"`           // накопленная прибыль по данным терминала
	Commission     float64   `json:"commission"`       // накопленная комиссия
	Swap           float64   `json:"swap"`             // накопленный своп
	LastObservedAt time.Time `json:"last_observed_at"` // время последней реконсиляции, затронувшей ticket
}

// OppositeSide возвращает противоположную сторону.
// Используется при закрытии: лонг закрывается продажей, шорт покупкой.
func OppositeSide(side string) string {
	if side == SideLong {
		return SideShort
	}
	return SideLong
}

// PendingOrder представляет отложенный (limit/stop) ордер терминала,
// ещё не исполненный и потому не являющийся позицией.
type PendingOrder struct {
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Volume     float64 `json:"volume"`
	Type       string  `json:"type"` // buy_limit, sell_limit, buy_stop, sell_stop
	Price      float64 `json:"price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Magic      int64   `json:"magic"`
	Comment    string  `json:"comment"`
}

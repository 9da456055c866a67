package models

import "time"

// OrderJournalRecord - запись журнала исполнений в БД.
//
// Журнал дополняет in-memory кэш позиций: кэш отражает текущее
// состояние терминала, журнал - историю отправленных ордеров.
type OrderJournalRecord struct {
	ID           int        `json:"id" db:"id"`
	Ticket       int64      `json:"ticket" db:"ticket"` // 0 если ордер не принят
	Symbol       string     `json:"symbol" db:"symbol"`
	Action       string     `json:"action" db:"action"` // buy, sell, close
	OrderKind    string     `json:"order_kind" db:"order_kind"`
	LegIndex     int        `json:"leg_index" db:"leg_index"` // 0 или 1 при разбиении TP
	Volume       float64    `json:"volume" db:"volume"`
	Price        float64    `json:"price" db:"price"`
	StopLoss     float64    `json:"stop_loss" db:"stop_loss"`
	TakeProfit   float64    `json:"take_profit" db:"take_profit"`
	Magic        int64      `json:"magic" db:"magic"`
	Status       string     `json:"status" db:"status"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	FilledAt     *time.Time `json:"filled_at,omitempty" db:"filled_at"`
}

// Статусы записи журнала
const (
	JournalStatusFilled   = "filled"
	JournalStatusPending  = "pending"
	JournalStatusRejected = "rejected"
)

// TerminalAccount - учётные данные терминала, хранимые в БД.
// Пароль шифруется AES-256-GCM перед сохранением.
type TerminalAccount struct {
	ID                int       `json:"id" db:"id"`
	Login             int64     `json:"login" db:"login"`
	Server            string    `json:"server" db:"server"`
	PasswordEncrypted string    `json:"-" db:"password_encrypted"`
	Active            bool      `json:"active" db:"active"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

package websocket

import (
	"bytes"
	"log"
	"time"

	"mt5bridge/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypePositionsUpdate - полный снапшот открытых позиций
	// Отправляется после каждого цикла реконсиляции с терминалом
	MessageTypePositionsUpdate MessageType = "positionsUpdate"

	// MessageTypeTradeEvent - итог исполнения торговой операции
	// Отправляется после open, close, modify
	MessageTypeTradeEvent MessageType = "tradeEvent"

	// MessageTypeStatusUpdate - изменение состояния соединения с терминалом
	MessageTypeStatusUpdate MessageType = "statusUpdate"

	// MessageTypeAccountUpdate - снимок состояния счёта
	MessageTypeAccountUpdate MessageType = "accountUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// PositionsUpdateMessage - сообщение с полным снапшотом позиций
//
// Снапшот авторитетен: позиции, отсутствующие в нём, закрыты на стороне
// терминала. Frontend заменяет своё локальное состояние целиком.
type PositionsUpdateMessage struct {
	BaseMessage
	Count     int                     `json:"count"`
	Positions []models.PositionRecord `json:"positions"`
}

// TradeEventMessage - сообщение об итоге торговой операции
//
// Содержит действие (open, close, modify) и полный результат исполнения,
// включая частичный успех при разбиении take-profit на две ноги.
type TradeEventMessage struct {
	BaseMessage
	Action string                  `json:"action"`
	Result *models.ExecutionResult `json:"result"`
}

// StatusUpdateMessage - сообщение о состоянии соединения с терминалом
type StatusUpdateMessage struct {
	BaseMessage
	Connected    bool `json:"connected"`
	TradeAllowed bool `json:"trade_allowed"`
}

// AccountUpdateMessage - сообщение со снимком счёта
type AccountUpdateMessage struct {
	BaseMessage
	Account *models.AccountSnapshot `json:"account"`
}

// ============ Фабричные функции для создания сообщений ============

// NewPositionsUpdateMessage создает сообщение снапшота позиций
func NewPositionsUpdateMessage(positions []models.PositionRecord) *PositionsUpdateMessage {
	if positions == nil {
		positions = []models.PositionRecord{}
	}
	return &PositionsUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePositionsUpdate,
			Timestamp: time.Now(),
		},
		Count:     len(positions),
		Positions: positions,
	}
}

// NewTradeEventMessage создает сообщение о торговой операции
func NewTradeEventMessage(action string, result *models.ExecutionResult) *TradeEventMessage {
	return &TradeEventMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeTradeEvent,
			Timestamp: time.Now(),
		},
		Action: action,
		Result: result,
	}
}

// NewStatusUpdateMessage создает сообщение о состоянии терминала
func NewStatusUpdateMessage(connected, tradeAllowed bool) *StatusUpdateMessage {
	return &StatusUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeStatusUpdate,
			Timestamp: time.Now(),
		},
		Connected:    connected,
		TradeAllowed: tradeAllowed,
	}
}

// NewAccountUpdateMessage создает сообщение со снимком счёта
func NewAccountUpdateMessage(account *models.AccountSnapshot) *AccountUpdateMessage {
	return &AccountUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeAccountUpdate,
			Timestamp: time.Now(),
		},
		Account: account,
	}
}

// ============ Broadcast хелперы ============

// BroadcastPositions отправляет снапшот позиций всем клиентам и
// запоминает его для новых подключений
func (h *Hub) BroadcastPositions(positions []models.PositionRecord) {
	msg := NewPositionsUpdateMessage(positions)

	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	if err := json.NewEncoder(buf).Encode(msg); err != nil {
		log.Printf("Error marshaling positions snapshot: %v", err)
		jsonBufferPool.Put(buf)
		return
	}
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.mu.Lock()
	h.lastSnapshot = msgCopy
	h.mu.Unlock()

	h.BroadcastRaw(msgCopy)
}

// BroadcastTradeEvent отправляет итог торговой операции
func (h *Hub) BroadcastTradeEvent(action string, result *models.ExecutionResult) {
	h.Broadcast(NewTradeEventMessage(action, result))
}

// BroadcastStatus отправляет состояние соединения с терминалом
func (h *Hub) BroadcastStatus(connected, tradeAllowed bool) {
	h.Broadcast(NewStatusUpdateMessage(connected, tradeAllowed))
}

// BroadcastAccount отправляет снимок счёта
func (h *Hub) BroadcastAccount(account *models.AccountSnapshot) {
	h.Broadcast(NewAccountUpdateMessage(account))
}

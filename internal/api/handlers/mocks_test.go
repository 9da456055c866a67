package handlers

import (
	"context"
	"errors"
	"sync"

	"mt5bridge/internal/models"
)

// ErrMockGateway - ошибка терминала для негативных сценариев
var ErrMockGateway = errors.New("mock: terminal unavailable")

// ============ MockBridge ============

// MockBridge - ручной мок моста для тестов handlers.
// Результаты операций задаются полями, вызовы записываются.
type MockBridge struct {
	mu sync.Mutex

	ExecuteResult *models.ExecutionResult
	CloseResult   *models.ExecutionResult
	ModifyResult  *models.ExecutionResult

	PositionList []models.PositionRecord
	OrderList    []models.PendingOrder
	Account      *models.AccountSnapshot

	OrdersErr  error
	AccountErr error
	Healthy    bool

	ExecutedIntents []*models.TradeIntent
	ClosedTickets   []int64
	ModifyIntents   []*models.ModifyIntent
}

func NewMockBridge() *MockBridge {
	return &MockBridge{Healthy: true}
}

func (m *MockBridge) ExecuteTrade(ctx context.Context, intent *models.TradeIntent) *models.ExecutionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecutedIntents = append(m.ExecutedIntents, intent)
	if m.ExecuteResult != nil {
		return m.ExecuteResult
	}
	return &models.ExecutionResult{Success: true, Ticket: 1001}
}

func (m *MockBridge) ClosePosition(ctx context.Context, ticket int64) *models.ExecutionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClosedTickets = append(m.ClosedTickets, ticket)
	if m.CloseResult != nil {
		return m.CloseResult
	}
	return &models.ExecutionResult{Success: true, Ticket: ticket}
}

func (m *MockBridge) ModifyPosition(ctx context.Context, intent *models.ModifyIntent) *models.ExecutionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ModifyIntents = append(m.ModifyIntents, intent)
	if m.ModifyResult != nil {
		return m.ModifyResult
	}
	return &models.ExecutionResult{Success: true, Ticket: intent.Ticket}
}

func (m *MockBridge) Positions() []models.PositionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PositionList
}

func (m *MockBridge) Position(ticket int64) (models.PositionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.PositionList {
		if p.Ticket == ticket {
			return p, true
		}
	}
	return models.PositionRecord{}, false
}

func (m *MockBridge) PositionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.PositionList)
}

func (m *MockBridge) PendingOrders(ctx context.Context) ([]models.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OrdersErr != nil {
		return nil, m.OrdersErr
	}
	return m.OrderList, nil
}

func (m *MockBridge) AccountInfo(ctx context.Context) (*models.AccountSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AccountErr != nil {
		return nil, m.AccountErr
	}
	if m.Account != nil {
		return m.Account, nil
	}
	return &models.AccountSnapshot{Balance: 10000, Currency: "USD", Connected: true}, nil
}

func (m *MockBridge) SyncNow(ctx context.Context) error { return nil }

func (m *MockBridge) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Healthy
}

// ============ MockJournal ============

// MockJournal - мок журнала ордеров
type MockJournal struct {
	mu sync.Mutex

	Recorded   []*models.ExecutionResult
	RecordsOut []*models.OrderJournalRecord
	HistoryErr error
}

func NewMockJournal() *MockJournal {
	return &MockJournal{}
}

func (m *MockJournal) RecordExecution(intent *models.TradeIntent, result *models.ExecutionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recorded = append(m.Recorded, result)
}

func (m *MockJournal) History(symbol string, limit int) ([]*models.OrderJournalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	return m.RecordsOut, nil
}

func (m *MockJournal) ByTicket(ticket int64) ([]*models.OrderJournalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	var out []*models.OrderJournalRecord
	for _, r := range m.RecordsOut {
		if r.Ticket == ticket {
			out = append(out, r)
		}
	}
	return out, nil
}

// RecordedCount возвращает число записанных результатов
func (m *MockJournal) RecordedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Recorded)
}

// ============ MockBroadcaster ============

// MockBroadcaster - мок WebSocket hub
type MockBroadcaster struct {
	mu      sync.Mutex
	Actions []string
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) BroadcastTradeEvent(action string, result *models.ExecutionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Actions = append(m.Actions, action)
}

// BroadcastCount возвращает число отправленных событий
func (m *MockBroadcaster) BroadcastCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Actions)
}

package bridge

import (
	"context"
	"sync"

	"mt5bridge/internal/models"
	"mt5bridge/internal/terminal"
)

// ============ Mock Gateway ============

// hiddenPosition - позиция, принятая терминалом, но ещё не видимая
// в списках. Моделирует задержку между retcode и появлением позиции.
type hiddenPosition struct {
	pos       models.PositionRecord
	remaining int // сколько вызовов ListPositions осталось до появления
}

type MockGateway struct {
	mu sync.Mutex

	status    *terminal.Status
	statusErr error
	// statusFailures > 0: столько первых вызовов Status вернут statusErr
	statusFailures int
	statusCalls    int

	symbols map[string]*terminal.SymbolMeta
	ticks   map[string]*terminal.Tick

	positions map[int64]models.PositionRecord
	hidden    []hiddenPosition
	pending    []models.PendingOrder
	account    *models.AccountSnapshot
	accountErr error

	nextTicket  int64
	appearAfter int // задержка появления новых позиций в ListPositions

	sendErr     error
	sendRetcode int // 0 = RetcodeDone
	sendComment string

	// rejectAfterDeals > 0: отказывать deal запросам после первых N успешных
	rejectAfterDeals int
	dealsAccepted    int

	listErr  error
	listNil  bool
	listErrs int // сколько первых вызовов ListPositions вернут listErr

	connectErr error

	orderLog    []*terminal.OrderRequest
	selectCalls int
	listCalls   int
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		status:     &terminal.Status{Connected: true, TradeAllowed: true},
		symbols:    make(map[string]*terminal.SymbolMeta),
		ticks:      make(map[string]*terminal.Tick),
		positions:  make(map[int64]models.PositionRecord),
		account:    &models.AccountSnapshot{Balance: 10000, Equity: 10000, Currency: "USD", Connected: true},
		nextTicket: 1000,
	}
}

// AddSymbol регистрирует символ с метаданными и котировкой
func (m *MockGateway) AddSymbol(name string, meta *terminal.SymbolMeta, tick *terminal.Tick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta.Symbol = name
	tick.Symbol = name
	m.symbols[name] = meta
	m.ticks[name] = tick
}

// AddPosition помещает позицию сразу в видимый список
func (m *MockGateway) AddPosition(pos models.PositionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[pos.Ticket] = pos
}

func (m *MockGateway) Connect(ctx context.Context) error {
	return m.connectErr
}

func (m *MockGateway) Disconnect() error {
	return nil
}

func (m *MockGateway) Status(ctx context.Context) (*terminal.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	if m.statusErr != nil && (m.statusFailures == 0 || m.statusCalls <= m.statusFailures) {
		return nil, m.statusErr
	}
	return m.status, nil
}

func (m *MockGateway) AccountSnapshot(ctx context.Context) (*models.AccountSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accountErr != nil {
		return nil, m.accountErr
	}
	return m.account, nil
}

func (m *MockGateway) SelectSymbol(ctx context.Context, symbol string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selectCalls++
	_, ok := m.symbols[symbol]
	return ok, nil
}

func (m *MockGateway) SymbolMeta(ctx context.Context, symbol string) (*terminal.SymbolMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.symbols[symbol]
	if !ok {
		return nil, terminal.ErrSymbolNotFound
	}
	return meta, nil
}

func (m *MockGateway) Tick(ctx context.Context, symbol string) (*terminal.Tick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tick, ok := m.ticks[symbol]
	if !ok {
		return nil, terminal.ErrSymbolNotFound
	}
	return tick, nil
}

func (m *MockGateway) SendOrder(ctx context.Context, req *terminal.OrderRequest) (*terminal.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orderLog = append(m.orderLog, req)

	if m.sendErr != nil {
		return nil, m.sendErr
	}
	if m.sendRetcode != 0 && m.sendRetcode != terminal.RetcodeDone && m.sendRetcode != terminal.RetcodePlaced {
		return &terminal.OrderResult{Retcode: m.sendRetcode, Comment: m.sendComment}, nil
	}
	if req.Kind == terminal.RequestDeal && m.rejectAfterDeals > 0 {
		if m.dealsAccepted >= m.rejectAfterDeals {
			return &terminal.OrderResult{Retcode: 10019, Comment: m.sendComment}, nil
		}
		m.dealsAccepted++
	}

	m.nextTicket++
	ticket := m.nextTicket

	switch req.Kind {
	case terminal.RequestModify:
		pos, ok := m.positions[req.PositionTicket]
		if !ok {
			return &terminal.OrderResult{Retcode: 10013, Comment: "position not found"}, nil
		}
		pos.StopLoss = req.StopLoss
		pos.TakeProfit = req.TakeProfit
		m.positions[req.PositionTicket] = pos
		return &terminal.OrderResult{Retcode: terminal.RetcodeDone, Ticket: req.PositionTicket}, nil

	case terminal.RequestPending:
		m.pending = append(m.pending, models.PendingOrder{
			Ticket: ticket, Symbol: req.Symbol, Volume: req.Volume, Price: req.Price,
		})
		return &terminal.OrderResult{
			Retcode: terminal.RetcodePlaced, Ticket: ticket,
			Volume: req.Volume, Price: req.Price,
		}, nil
	}

	// deal против существующей позиции = закрытие (полное или частичное)
	if req.PositionTicket != 0 {
		pos, ok := m.positions[req.PositionTicket]
		if !ok {
			return &terminal.OrderResult{Retcode: 10013, Comment: "position not found"}, nil
		}
		if req.Volume >= pos.Volume {
			delete(m.positions, req.PositionTicket)
		} else {
			pos.Volume -= req.Volume
			m.positions[req.PositionTicket] = pos
		}
		return &terminal.OrderResult{
			Retcode: terminal.RetcodeDone, Ticket: ticket,
			Volume: req.Volume, Price: req.Price,
		}, nil
	}

	// Новая позиция: появится в списках после appearAfter опросов
	side := models.SideLong
	if req.Side == terminal.OrderSell {
		side = models.SideShort
	}
	price := 0.0
	if tick, ok := m.ticks[req.Symbol]; ok {
		if side == models.SideLong {
			price = tick.Ask
		} else {
			price = tick.Bid
		}
	}
	pos := models.PositionRecord{
		Ticket: ticket, Symbol: req.Symbol, Volume: req.Volume, Side: side,
		OpenPrice: price, StopLoss: req.StopLoss, TakeProfit: req.TakeProfit,
		Magic: req.Magic, Comment: req.Comment,
	}

	if m.appearAfter > 0 {
		m.hidden = append(m.hidden, hiddenPosition{pos: pos, remaining: m.appearAfter})
	} else {
		m.positions[ticket] = pos
	}

	return &terminal.OrderResult{
		Retcode: terminal.RetcodeDone, Ticket: ticket,
		Volume: req.Volume, Price: price,
	}, nil
}

func (m *MockGateway) ListPositions(ctx context.Context) ([]models.PositionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listCalls++

	if m.listErr != nil && (m.listErrs == 0 || m.listCalls <= m.listErrs) {
		return nil, m.listErr
	}
	if m.listNil {
		return nil, nil
	}

	// Продвигаем скрытые позиции к появлению
	var still []hiddenPosition
	for _, h := range m.hidden {
		h.remaining--
		if h.remaining <= 0 {
			m.positions[h.pos.Ticket] = h.pos
		} else {
			still = append(still, h)
		}
	}
	m.hidden = still

	result := make([]models.PositionRecord, 0, len(m.positions))
	for _, p := range m.positions {
		result = append(result, p)
	}
	return result, nil
}

func (m *MockGateway) PositionByTicket(ctx context.Context, ticket int64) (*models.PositionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[ticket]
	if !ok {
		return nil, terminal.ErrPositionNotFound
	}
	return &pos, nil
}

func (m *MockGateway) ListPendingOrders(ctx context.Context) ([]models.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.PendingOrder, len(m.pending))
	copy(result, m.pending)
	return result, nil
}

// OrderLog возвращает копию журнала отправленных запросов
func (m *MockGateway) OrderLog() []*terminal.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*terminal.OrderRequest, len(m.orderLog))
	copy(result, m.orderLog)
	return result
}

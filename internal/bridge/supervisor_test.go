package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"mt5bridge/internal/models"
	"mt5bridge/internal/terminal"
)

func newTestSupervisor(gw *MockGateway) (*Supervisor, *SymbolResolver, *PositionCache) {
	cache := NewPositionCache()
	syncer := NewSynchronizer(gw, cache, time.Second, nil)
	resolver := NewSymbolResolver(gw)
	sup := NewSupervisor(gw, resolver, syncer, time.Second, time.Millisecond)
	return sup, resolver, cache
}

func TestSupervisorHealthy(t *testing.T) {
	gw := NewMockGateway()
	sup, _, _ := newTestSupervisor(gw)

	if sup.IsHealthy() {
		t.Error("IsHealthy() = true before any check")
	}

	sup.check(context.Background())
	if !sup.IsHealthy() {
		t.Error("IsHealthy() = false with a connected terminal")
	}
}

func TestSupervisorTradeDisabledUnhealthy(t *testing.T) {
	gw := NewMockGateway()
	// Соединение есть, но торговля на счёте запрещена
	gw.status = &terminal.Status{Connected: true, TradeAllowed: false}

	sup, _, _ := newTestSupervisor(gw)
	sup.check(context.Background())

	if sup.IsHealthy() {
		t.Error("IsHealthy() = true with trading disabled in the terminal")
	}
}

func TestSupervisorAccountFetchFailureUnhealthy(t *testing.T) {
	gw := NewMockGateway()
	gw.accountErr = errors.New("account query failed")

	sup, _, _ := newTestSupervisor(gw)
	sup.check(context.Background())

	if sup.IsHealthy() {
		t.Error("IsHealthy() = true when the account snapshot is unavailable")
	}
}

func TestSupervisorDetectsLoss(t *testing.T) {
	gw := NewMockGateway()
	sup, _, _ := newTestSupervisor(gw)

	sup.check(context.Background())
	if !sup.IsHealthy() {
		t.Fatal("precondition: supervisor must be healthy")
	}

	gw.statusErr = errors.New("terminal down")
	sup.check(context.Background())
	if sup.IsHealthy() {
		t.Error("IsHealthy() = true after status failure")
	}
}

func TestSupervisorReconnects(t *testing.T) {
	gw := NewMockGateway()
	gw.AddSymbol("EURUSD", testMeta(), testTick(1.10000, 1.10010))
	gw.AddPosition(models.PositionRecord{Ticket: 9, Symbol: "EURUSD"})

	sup, resolver, cache := newTestSupervisor(gw)

	// Прогреваем кэш символов
	if _, err := resolver.Resolve(context.Background(), "EURUSD"); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	selectCallsBefore := gw.selectCalls

	// Первый Status упадёт (потеря связи), повторный после Connect пройдёт
	gw.statusErr = errors.New("terminal down")
	gw.statusFailures = 1

	sup.check(context.Background())

	if !sup.IsHealthy() {
		t.Fatal("IsHealthy() = false after successful reconnect")
	}

	// После переподключения кэш символов сброшен: мог смениться счёт
	if _, err := resolver.Resolve(context.Background(), "EURUSD"); err != nil {
		t.Fatalf("Resolve() after reconnect error: %v", err)
	}
	if gw.selectCalls == selectCallsBefore {
		t.Error("symbol cache was not invalidated after reconnect")
	}

	// Сверка позиций форсирована после восстановления
	if cache.Count() != 1 {
		t.Errorf("cache Count() = %d after reconnect, want 1", cache.Count())
	}
}

func TestSupervisorReconnectFailure(t *testing.T) {
	gw := NewMockGateway()
	gw.statusErr = errors.New("terminal down")
	gw.connectErr = errors.New("connection refused")

	sup, _, _ := newTestSupervisor(gw)
	sup.check(context.Background())

	if sup.IsHealthy() {
		t.Error("IsHealthy() = true when reconnect keeps failing")
	}
}

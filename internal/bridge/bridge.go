package bridge

import (
	"context"
	"sync"

	"mt5bridge/internal/config"
	"mt5bridge/internal/models"
	"mt5bridge/internal/terminal"
)

// bridge.go - фасад торгового моста
//
// Bridge собирает кэш, синхронизатор, резолвер, исполнитель и
// супервизор в один объект с публичным API для HTTP-слоя.
// Чтения позиций обслуживаются кэшем без похода в терминал;
// снимок счёта и отложенные ордера всегда запрашиваются заново.

// Bridge - публичная точка входа в торговое ядро
type Bridge struct {
	gw         terminal.Gateway
	cache      *PositionCache
	sync       *Synchronizer
	resolver   *SymbolResolver
	executor   *Executor
	supervisor *Supervisor
}

// New собирает мост. onUpdate вызывается после сверки позиций,
// изменившей кэш (nil допустим).
func New(gw terminal.Gateway, cfg *config.Config, onUpdate func([]models.PositionRecord)) *Bridge {
	cache := NewPositionCache()
	syncer := NewSynchronizer(gw, cache, cfg.Bridge.SyncInterval, onUpdate)
	resolver := NewSymbolResolver(gw)
	executor := NewExecutor(gw, resolver, syncer, cache, cfg.Bridge)
	supervisor := NewSupervisor(gw, resolver, syncer,
		cfg.Bridge.HealthCheckInterval, cfg.Bridge.ReconnectDelay)

	return &Bridge{
		gw:         gw,
		cache:      cache,
		sync:       syncer,
		resolver:   resolver,
		executor:   executor,
		supervisor: supervisor,
	}
}

// Run запускает фоновые циклы моста и блокируется до отмены контекста
func (b *Bridge) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b.sync.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		b.supervisor.Run(ctx)
	}()
	wg.Wait()
}

// ExecuteTrade исполняет торговое намерение
func (b *Bridge) ExecuteTrade(ctx context.Context, intent *models.TradeIntent) *models.ExecutionResult {
	return b.executor.ExecuteTrade(ctx, intent)
}

// ClosePosition закрывает позицию по тикету
func (b *Bridge) ClosePosition(ctx context.Context, ticket int64) *models.ExecutionResult {
	return b.executor.ClosePosition(ctx, ticket)
}

// ModifyPosition изменяет SL/TP позиции или частично закрывает её
func (b *Bridge) ModifyPosition(ctx context.Context, intent *models.ModifyIntent) *models.ExecutionResult {
	return b.executor.ModifyPosition(ctx, intent)
}

// Positions возвращает кэшированный снимок открытых позиций
func (b *Bridge) Positions() []models.PositionRecord {
	return b.cache.Snapshot()
}

// Position возвращает одну кэшированную позицию
func (b *Bridge) Position(ticket int64) (models.PositionRecord, bool) {
	return b.cache.Get(ticket)
}

// PositionCount возвращает количество открытых позиций
func (b *Bridge) PositionCount() int {
	return b.cache.Count()
}

// PendingOrders возвращает отложенные ордера напрямую из терминала
func (b *Bridge) PendingOrders(ctx context.Context) ([]models.PendingOrder, error) {
	return b.gw.ListPendingOrders(ctx)
}

// AccountInfo возвращает свежий снимок счёта.
// Снимок никогда не кэшируется.
func (b *Bridge) AccountInfo(ctx context.Context) (*models.AccountSnapshot, error) {
	return b.gw.AccountSnapshot(ctx)
}

// SyncNow форсирует немедленную сверку кэша позиций
func (b *Bridge) SyncNow(ctx context.Context) error {
	return b.sync.SyncNow(ctx)
}

// IsHealthy сообщает, доступен ли терминал
func (b *Bridge) IsHealthy() bool {
	return b.supervisor.IsHealthy()
}

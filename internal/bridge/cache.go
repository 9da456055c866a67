package bridge

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"mt5bridge/internal/models"
	"mt5bridge/internal/terminal"
)

// cache.go - кэш позиций и фоновая сверка с терминалом
//
// Терминал не шлёт push-уведомлений, поэтому единственный способ
// узнать о закрытии позиции по SL/TP - периодический опрос.
// Кэш хранит последний авторитетный снимок; читатели никогда
// не ходят в терминал напрямую.

// PositionCache - потокобезопасный снимок открытых позиций.
// Единственный источник записи - Synchronizer.
type PositionCache struct {
	mu        sync.RWMutex
	positions map[int64]models.PositionRecord
	lastSync  time.Time
	synced    bool // была ли хоть одна удачная сверка
}

// NewPositionCache создаёт пустой кэш
func NewPositionCache() *PositionCache {
	return &PositionCache{
		positions: make(map[int64]models.PositionRecord),
	}
}

// Replace атомарно заменяет содержимое кэша авторитетным снимком.
// Позиции, отсутствующие в снимке, считаются закрытыми брокером.
// Возвращает true, если снимок отличается от прежнего содержимого;
// самая первая сверка считается изменением всегда.
func (c *PositionCache) Replace(positions []models.PositionRecord, at time.Time) bool {
	next := make(map[int64]models.PositionRecord, len(positions))
	for _, p := range positions {
		p.LastObservedAt = at
		next[p.Ticket] = p
	}

	c.mu.Lock()
	changed := !c.synced || !samePositions(c.positions, next)
	c.positions = next
	c.lastSync = at
	c.synced = true
	c.mu.Unlock()
	return changed
}

// samePositions сравнивает снимки без учёта времени наблюдения
func samePositions(a, b map[int64]models.PositionRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for ticket, pa := range a {
		pb, ok := b[ticket]
		if !ok {
			return false
		}
		pa.LastObservedAt = time.Time{}
		pb.LastObservedAt = time.Time{}
		if pa != pb {
			return false
		}
	}
	return true
}

// Snapshot возвращает копию всех позиций, отсортированную по тикету
func (c *PositionCache) Snapshot() []models.PositionRecord {
	c.mu.RLock()
	result := make([]models.PositionRecord, 0, len(c.positions))
	for _, p := range c.positions {
		result = append(result, p)
	}
	c.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Ticket < result[j].Ticket
	})
	return result
}

// Get возвращает позицию по тикету
func (c *PositionCache) Get(ticket int64) (models.PositionRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.positions[ticket]
	return p, ok
}

// FindByMagic возвращает первую позицию с указанным magic.
// Magic не уникален: один тег могут нести несколько позиций,
// поэтому для точного поиска используется Get по тикету.
func (c *PositionCache) FindByMagic(magic int64) (models.PositionRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.positions {
		if p.Magic == magic {
			return p, true
		}
	}
	return models.PositionRecord{}, false
}

// Count возвращает количество открытых позиций
func (c *PositionCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.positions)
}

// LastSync возвращает время последней удачной сверки и её наличие
func (c *PositionCache) LastSync() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync, c.synced
}

// ============================================================
// Синхронизатор
// ============================================================

// Synchronizer периодически сверяет кэш с терминалом.
// Все записи в кэш проходят только через него.
type Synchronizer struct {
	gw       terminal.Gateway
	cache    *PositionCache
	interval time.Duration

	// onUpdate вызывается после сверки, изменившей кэш
	// (push снимка подписчикам WebSocket)
	onUpdate func([]models.PositionRecord)

	// syncMu сериализует сверки: плановую и форсированные
	syncMu sync.Mutex
}

// NewSynchronizer создаёт синхронизатор.
// onUpdate может быть nil.
func NewSynchronizer(gw terminal.Gateway, cache *PositionCache, interval time.Duration, onUpdate func([]models.PositionRecord)) *Synchronizer {
	return &Synchronizer{
		gw:       gw,
		cache:    cache,
		interval: interval,
		onUpdate: onUpdate,
	}
}

// Run запускает цикл сверки до отмены контекста.
// Первая сверка выполняется сразу, не дожидаясь тика.
func (s *Synchronizer) Run(ctx context.Context) {
	if err := s.SyncNow(ctx); err != nil {
		log.Printf("initial position sync failed: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SyncNow(ctx); err != nil {
				log.Printf("position sync failed: %v", err)
			}
		}
	}
}

// SyncNow выполняет одну сверку немедленно.
//
// Транзиентные сбои не трогают кэш: nil срез без ошибки означает
// "терминал не дал данных", и прошлый снимок остаётся в силе.
// Кэш очищается только явным пустым списком.
func (s *Synchronizer) SyncNow(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	positions, err := s.gw.ListPositions(ctx)
	if err != nil {
		RecordSync("error", 0)
		return err
	}

	if positions == nil {
		// нет данных - не то же самое, что нет позиций
		RecordSync("no_data", 0)
		return nil
	}

	now := time.Now().UTC()
	changed := s.cache.Replace(positions, now)
	RecordSync("ok", len(positions))
	CacheStaleness.Set(0)

	// Снимок без изменений подписчикам не рассылается
	if changed && s.onUpdate != nil {
		s.onUpdate(s.cache.Snapshot())
	}
	return nil
}

package bridge

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"mt5bridge/internal/terminal"
)

// supervisor.go - надзор за соединением с терминалом
//
// Терминал живёт отдельным процессом и может перезапускаться
// независимо от моста. Супервизор периодически опрашивает статус
// и переподключается при потере связи; после восстановления кэш
// символов сбрасывается (терминал мог подняться на другом счёте)
// и форсируется сверка позиций.

// Supervisor следит за доступностью терминала
type Supervisor struct {
	gw       terminal.Gateway
	resolver *SymbolResolver
	sync     *Synchronizer

	interval       time.Duration
	reconnectDelay time.Duration

	healthy atomic.Bool
}

// NewSupervisor создаёт супервизор соединения
func NewSupervisor(gw terminal.Gateway, resolver *SymbolResolver, sync *Synchronizer, interval, reconnectDelay time.Duration) *Supervisor {
	return &Supervisor{
		gw:             gw,
		resolver:       resolver,
		sync:           sync,
		interval:       interval,
		reconnectDelay: reconnectDelay,
	}
}

// IsHealthy сообщает текущий статус соединения без похода в терминал
func (s *Supervisor) IsHealthy() bool {
	return s.healthy.Load()
}

// Run запускает цикл надзора до отмены контекста
func (s *Supervisor) Run(ctx context.Context) {
	s.check(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// verify убеждается, что терминал пригоден к работе: соединение
// установлено, торговля разрешена и снимок счёта доступен.
// Одного флага Connected недостаточно: терминал бывает подключён
// к счёту с запрещённой торговлей или без данных по счёту.
func (s *Supervisor) verify(ctx context.Context) error {
	st, err := s.gw.Status(ctx)
	if err != nil {
		return err
	}
	if !st.Connected {
		return terminal.ErrNotConnected
	}
	if !st.TradeAllowed {
		return terminal.ErrTradeNotAllowed
	}
	if _, err := s.gw.AccountSnapshot(ctx); err != nil {
		return fmt.Errorf("account snapshot: %w", err)
	}
	return nil
}

// check опрашивает терминал и при необходимости переподключается
func (s *Supervisor) check(ctx context.Context) {
	if err := s.verify(ctx); err != nil {
		if s.healthy.Swap(false) {
			log.Printf("terminal is not usable: %v", err)
		}
		UpdateTerminalStatus(false)
		s.reconnect(ctx)
		return
	}

	if !s.healthy.Swap(true) {
		log.Printf("terminal connection is healthy")
	}
	UpdateTerminalStatus(true)
	s.updateStaleness()
}

// reconnect выполняет одну попытку восстановления соединения
func (s *Supervisor) reconnect(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.reconnectDelay):
	}

	Reconnects.Inc()
	if err := s.gw.Connect(ctx); err != nil {
		log.Printf("terminal reconnect failed: %v", err)
		return
	}

	if err := s.verify(ctx); err != nil {
		log.Printf("terminal reconnect did not restore a usable state: %v", err)
		return
	}

	log.Printf("terminal reconnected")
	s.healthy.Store(true)
	UpdateTerminalStatus(true)

	// Мог смениться счёт: суффиксы символов у счетов различаются
	s.resolver.Invalidate()

	if err := s.sync.SyncNow(ctx); err != nil {
		log.Printf("post-reconnect sync failed: %v", err)
	}
}

// updateStaleness публикует возраст последней удачной сверки
func (s *Supervisor) updateStaleness() {
	if last, ok := s.syncTime(); ok {
		CacheStaleness.Set(time.Since(last).Seconds())
	}
}

func (s *Supervisor) syncTime() (time.Time, bool) {
	return s.sync.cache.LastSync()
}

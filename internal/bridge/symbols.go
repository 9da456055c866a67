package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"mt5bridge/internal/terminal"
)

// symbols.go - разрешение имён символов
//
// Брокеры используют разные суффиксы для одного инструмента:
// "EURUSD" у одного, "EURUSDm" у другого. Резолвер перебирает
// варианты написания и кэширует успешный результат на весь
// срок жизни процесса.

// SymbolResolver находит имя символа, под которым инструмент
// известен терминалу
type SymbolResolver struct {
	gw terminal.Gateway

	mu    sync.RWMutex
	cache map[string]string // запрошенное имя -> разрешённое
}

// NewSymbolResolver создаёт резолвер поверх шлюза терминала
func NewSymbolResolver(gw terminal.Gateway) *SymbolResolver {
	return &SymbolResolver{
		gw:    gw,
		cache: make(map[string]string),
	}
}

// variants возвращает кандидатов в порядке перебора.
// Дубликаты убираются с сохранением порядка.
func variants(symbol string) []string {
	upper := strings.ToUpper(symbol)
	lower := strings.ToLower(symbol)

	candidates := []string{
		symbol, symbol + "m",
		upper, upper + "m",
		lower, lower + "m",
	}

	seen := make(map[string]bool, len(candidates))
	result := candidates[:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			result = append(result, c)
		}
	}
	return result
}

// NotFoundError сообщает, что ни один вариант написания символа
// не известен терминалу. Несёт исходное имя и перебранные варианты
// для диагностики; совместим с errors.Is(err, terminal.ErrSymbolNotFound).
type NotFoundError struct {
	Symbol string
	Tried  []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("symbol %q not found, tried variants: %s",
		e.Symbol, strings.Join(e.Tried, ", "))
}

func (e *NotFoundError) Unwrap() error {
	return terminal.ErrSymbolNotFound
}

// Resolve возвращает имя символа, принятое терминалом.
// Разделители вида "EUR/USD" убираются до перебора вариантов.
// Возвращает terminal.ErrSymbolNotFound если ни один вариант не подошёл.
// Неудачи не кэшируются: символ может появиться после смены счёта.
func (r *SymbolResolver) Resolve(ctx context.Context, symbol string) (string, error) {
	symbol = strings.ReplaceAll(symbol, "/", "")
	if symbol == "" {
		return "", terminal.ErrSymbolNotFound
	}

	r.mu.RLock()
	resolved, ok := r.cache[symbol]
	r.mu.RUnlock()
	if ok {
		return resolved, nil
	}

	tried := variants(symbol)
	for _, candidate := range tried {
		selected, err := r.gw.SelectSymbol(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !selected {
			continue
		}

		// Select мог пройти, а метаданных нет: проверяем до конца
		if _, err := r.gw.SymbolMeta(ctx, candidate); err != nil {
			if errors.Is(err, terminal.ErrSymbolNotFound) {
				continue
			}
			return "", err
		}

		r.mu.Lock()
		r.cache[symbol] = candidate
		r.mu.Unlock()

		if candidate != symbol {
			log.Printf("symbol %q resolved as %q", symbol, candidate)
		}
		return candidate, nil
	}

	return "", &NotFoundError{Symbol: symbol, Tried: tried}
}

// Invalidate сбрасывает кэш. Вызывается при переподключении
// к другому торговому счёту.
func (r *SymbolResolver) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[string]string)
	r.mu.Unlock()
}

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"mt5bridge/internal/config"
	"mt5bridge/internal/models"
	"mt5bridge/internal/terminal"
	"mt5bridge/pkg/utils"
)

// executor.go - исполнение торговых намерений
//
// Протокол create-then-verify: терминал подтверждает приём запроса
// retcode-ом, но позиция появляется в его списках с задержкой.
// После успешной отправки исполнитель форсирует сверку кэша и ждёт
// появления позиции с нужным magic, прежде чем отчитаться об успехе.
//
// Все исходы выражаются через ExecutionResult с таксономией ошибок;
// исполнитель не возвращает error вызывающей стороне.

// Executor превращает торговые намерения в запросы терминала
type Executor struct {
	gw       terminal.Gateway
	resolver *SymbolResolver
	sync     *Synchronizer
	cache    *PositionCache

	verifyAttempts int
	verifyDelay    time.Duration
}

// NewExecutor создаёт исполнитель с настройками цикла подтверждения
func NewExecutor(gw terminal.Gateway, resolver *SymbolResolver, sync *Synchronizer, cache *PositionCache, cfg config.BridgeConfig) *Executor {
	return &Executor{
		gw:             gw,
		resolver:       resolver,
		sync:           sync,
		cache:          cache,
		verifyAttempts: cfg.VerifyAttempts,
		verifyDelay:    cfg.VerifyDelay,
	}
}

// ExecuteTrade исполняет торговое намерение от начала до конца:
// валидация, разрешение символа, корректировка, отправка, подтверждение.
func (e *Executor) ExecuteTrade(ctx context.Context, intent *models.TradeIntent) *models.ExecutionResult {
	started := time.Now()
	result := e.executeTrade(ctx, intent)

	action := "unknown"
	orderKind := ""
	if intent != nil {
		action = intent.Action
		orderKind = intent.OrderKind
	}

	latency := float64(time.Since(started).Milliseconds())
	switch {
	case result.Success && result.Partial:
		RecordTrade(action, "partial", latency, orderKind)
	case result.Success:
		RecordTrade(action, "success", latency, orderKind)
	default:
		RecordTrade(action, "failed", latency, orderKind)
		RecordTradeError(string(result.ErrorKind))
	}
	return result
}

func (e *Executor) executeTrade(ctx context.Context, intent *models.TradeIntent) *models.ExecutionResult {
	if err := ValidateIntent(intent); err != nil {
		return models.Failure(models.ErrKindInvalidIntent, err.Error())
	}

	if intent.Action == models.ActionClose {
		// Magic несёт ticket закрываемой позиции
		return e.ClosePosition(ctx, intent.Magic)
	}

	if result := e.checkTradable(ctx); result != nil {
		return result
	}

	symbol, err := e.resolver.Resolve(ctx, intent.Symbol)
	if err != nil {
		if errors.Is(err, terminal.ErrSymbolNotFound) {
			result := models.Failure(models.ErrKindSymbolNotFound,
				fmt.Sprintf("symbol %q is unknown to the terminal", intent.Symbol))
			result.Diagnostic = err.Error()
			return result
		}
		return models.Failure(models.ErrKindConnection, err.Error())
	}

	meta, err := e.gw.SymbolMeta(ctx, symbol)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}

	tick, err := e.gw.Tick(ctx, symbol)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}

	adjusted, notes := AdjustIntent(intent, meta, tick)
	adjusted.Symbol = symbol
	if len(notes) > 0 {
		log.Printf("trade %s %s: adjusted: %s", intent.Action, symbol, strings.Join(notes, "; "))
	}

	if adjusted.IsSplit() {
		return e.executeSplit(ctx, adjusted, meta, tick)
	}
	return e.executeSingle(ctx, adjusted, tick, adjusted.TakeProfit, adjusted.Volume, adjusted.Magic)
}

// checkTradable убеждается, что терминал подключён и торговля разрешена
func (e *Executor) checkTradable(ctx context.Context) *models.ExecutionResult {
	st, err := e.gw.Status(ctx)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}
	if !st.Connected {
		return models.Failure(models.ErrKindConnection, "terminal is not connected")
	}
	if !st.TradeAllowed {
		return models.Failure(models.ErrKindConnection, "trading is disabled in the terminal")
	}
	return nil
}

// executeSingle отправляет одну ногу и подтверждает её исполнение
func (e *Executor) executeSingle(ctx context.Context, intent *models.TradeIntent, tick *terminal.Tick, takeProfit, volume float64, magic int64) *models.ExecutionResult {
	req := &terminal.OrderRequest{
		Symbol:     intent.Symbol,
		Side:       intent.Action,
		Volume:     volume,
		StopLoss:   intent.StopLoss,
		TakeProfit: takeProfit,
		Magic:      magic,
		Comment:    intent.Comment,
	}

	if intent.OrderKind == models.OrderKindLimit {
		req.Kind = terminal.RequestPending
		req.Price = intent.Price
	} else {
		// Рыночный ордер уходит с текущей ценой стакана,
		// терминалу не оставляется свободы в выборе цены
		req.Kind = terminal.RequestDeal
		req.Price = intent.Price
		if req.Price == 0 {
			if intent.Action == models.ActionBuy {
				req.Price = tick.Ask
			} else {
				req.Price = tick.Bid
			}
		}
	}

	sent, err := e.gw.SendOrder(ctx, req)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}
	if !sent.Ok() {
		return models.Failure(models.ErrKindBrokerRejected,
			fmt.Sprintf("retcode %d: %s", sent.Retcode, sent.Comment))
	}

	// Отложенный ордер позицией не становится, подтверждать нечего
	if req.Kind == terminal.RequestPending {
		return &models.ExecutionResult{
			Success: true,
			Ticket:  sent.Ticket,
			Tickets: []int64{sent.Ticket},
			Volumes: []float64{sent.Volume},
			Prices:  []float64{sent.Price},
			Price:   sent.Price,
			Volume:  sent.Volume,
		}
	}

	pos, attempts := e.verifyPosition(ctx, sent.Ticket)
	VerifyAttempts.Observe(float64(attempts))
	if pos == nil {
		return &models.ExecutionResult{
			Success:   false,
			ErrorKind: models.ErrKindPositionNotFound,
			ErrorMsg:  "order was accepted but the position never appeared",
			Diagnostic: fmt.Sprintf("retcode=%d ticket=%d magic=%d attempts=%d",
				sent.Retcode, sent.Ticket, magic, attempts),
		}
	}

	return &models.ExecutionResult{
		Success: true,
		Ticket:  pos.Ticket,
		Tickets: []int64{pos.Ticket},
		Volumes: []float64{pos.Volume},
		Prices:  []float64{pos.OpenPrice},
		Price:   pos.OpenPrice,
		Volume:  pos.Volume,
	}
}

// executeSplit разбивает намерение на две ноги с отдельными уровнями TP.
//
// Ноги независимы: первая получает magic намерения, вторая magic+1.
// Провал первой ноги - провал всей операции; провал второй после
// успешной первой - частичный успех, первая нога НЕ откатывается
// (у вызывающей стороны остаётся живая половина с ближней целью).
func (e *Executor) executeSplit(ctx context.Context, intent *models.TradeIntent, meta *terminal.SymbolMeta, tick *terminal.Tick) *models.ExecutionResult {
	step := meta.VolumeStep
	if step <= 0 {
		step = meta.MinVolume
	}

	first, second, ok := utils.SplitVolume(intent.Volume, step, meta.MinVolume)
	if !ok {
		// Объём неделим: одна нога с ближней целью
		log.Printf("trade %s %s: volume %v too small to split, using tp1 only",
			intent.Action, intent.Symbol, intent.Volume)
		result := e.executeSingle(ctx, intent, tick, intent.TP1, intent.Volume, intent.Magic)
		result.Diagnostic = "volume below minimum for split, executed as single leg with tp1"
		return result
	}

	leg1 := e.executeSingle(ctx, intent, tick, intent.TP1, first, intent.Magic)
	if !leg1.Success {
		return leg1
	}

	leg2 := e.executeSingle(ctx, intent, tick, intent.TP2, second, intent.Magic+1)
	if !leg2.Success {
		log.Printf("trade %s %s: second leg failed: %s (%s)",
			intent.Action, intent.Symbol, leg2.ErrorMsg, leg2.ErrorKind)
		return &models.ExecutionResult{
			Success:   true,
			Partial:   true,
			PartialTP: true,
			Ticket:    leg1.Ticket,
			Tickets:   leg1.Tickets,
			Volumes:   leg1.Volumes,
			Prices:    leg1.Prices,
			Price:     leg1.Price,
			Volume:    leg1.Volume,
			TP1Ticket: leg1.Ticket,
			Diagnostic: fmt.Sprintf("second leg failed (%s): %s",
				leg2.ErrorKind, leg2.ErrorMsg),
		}
	}

	return &models.ExecutionResult{
		Success:   true,
		PartialTP: true,
		Ticket:    leg1.Ticket,
		Tickets:   []int64{leg1.Ticket, leg2.Ticket},
		Volumes:   []float64{leg1.Volume, leg2.Volume},
		Prices:    []float64{leg1.Price, leg2.Price},
		Price:     leg1.Price,
		Volume:    leg1.Volume + leg2.Volume,
		TP1Ticket: leg1.Ticket,
		TP2Ticket: leg2.Ticket,
	}
}

// verifyPosition ждёт появления позиции с указанным тикетом.
// Тикет берётся из ответа терминала на ордер: поиск по magic
// ловил бы чужую позицию с тем же тегом. Перед каждой проверкой
// форсируется сверка кэша: ждать планового тика сверки слишком
// долго. Возвращает nil после исчерпания попыток.
func (e *Executor) verifyPosition(ctx context.Context, ticket int64) (*models.PositionRecord, int) {
	for attempt := 1; attempt <= e.verifyAttempts; attempt++ {
		if err := e.sync.SyncNow(ctx); err != nil {
			log.Printf("verify: forced sync failed on attempt %d: %v", attempt, err)
		}

		if pos, ok := e.cache.Get(ticket); ok {
			return &pos, attempt
		}

		if attempt == e.verifyAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, attempt
		case <-time.After(e.verifyDelay):
		}
	}
	return nil, e.verifyAttempts
}

// closeOrderSide возвращает направление ордера для закрытия позиции:
// лонг закрывается продажей, шорт покупкой
func closeOrderSide(positionSide string) string {
	if positionSide == models.SideLong {
		return terminal.OrderSell
	}
	return terminal.OrderBuy
}

// ClosePosition закрывает позицию встречным рыночным ордером.
//
// Снимок позиции берётся напрямую из терминала, минуя кэш:
// объём мог измениться после последней сверки. Финансовые поля
// результата копируются из снимка, а не пересчитываются.
func (e *Executor) ClosePosition(ctx context.Context, ticket int64) *models.ExecutionResult {
	pos, err := e.gw.PositionByTicket(ctx, ticket)
	if err != nil {
		if errors.Is(err, terminal.ErrPositionNotFound) {
			return models.Failure(models.ErrKindPositionNotFound,
				fmt.Sprintf("position %d does not exist", ticket))
		}
		return models.Failure(models.ErrKindConnection, err.Error())
	}

	tick, err := e.gw.Tick(ctx, pos.Symbol)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}

	// Лонг закрывается по bid, шорт по ask
	price := tick.Bid
	if pos.Side == models.SideShort {
		price = tick.Ask
	}

	req := &terminal.OrderRequest{
		Kind:           terminal.RequestDeal,
		Symbol:         pos.Symbol,
		Side:           closeOrderSide(pos.Side),
		Volume:         pos.Volume,
		Price:          price,
		PositionTicket: ticket,
		Magic:          pos.Magic,
		Comment:        "close",
	}

	sent, err := e.gw.SendOrder(ctx, req)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}
	if !sent.Ok() {
		return models.Failure(models.ErrKindBrokerRejected,
			fmt.Sprintf("retcode %d: %s", sent.Retcode, sent.Comment))
	}

	// Кэш узнает о закрытии немедленно, не дожидаясь планового тика
	if err := e.sync.SyncNow(ctx); err != nil {
		log.Printf("close %d: post-close sync failed: %v", ticket, err)
	}

	closePrice := sent.Price
	if closePrice == 0 {
		closePrice = price
	}

	return &models.ExecutionResult{
		Success:    true,
		Ticket:     ticket,
		Price:      closePrice,
		Volume:     pos.Volume,
		Profit:     pos.Profit,
		Commission: pos.Commission,
		Swap:       pos.Swap,
	}
}

// ModifyPosition изменяет SL/TP позиции или частично закрывает её
func (e *Executor) ModifyPosition(ctx context.Context, intent *models.ModifyIntent) *models.ExecutionResult {
	if intent == nil || intent.Ticket == 0 {
		return models.Failure(models.ErrKindInvalidIntent, "ticket is required")
	}
	if intent.StopLoss < 0 || intent.TakeProfit < 0 || intent.PartialVolume < 0 {
		return models.Failure(models.ErrKindInvalidIntent, "levels cannot be negative")
	}
	if intent.StopLoss == 0 && intent.TakeProfit == 0 && intent.PartialVolume == 0 {
		return models.Failure(models.ErrKindInvalidIntent, "nothing to modify")
	}

	pos, err := e.gw.PositionByTicket(ctx, intent.Ticket)
	if err != nil {
		if errors.Is(err, terminal.ErrPositionNotFound) {
			return models.Failure(models.ErrKindPositionNotFound,
				fmt.Sprintf("position %d does not exist", intent.Ticket))
		}
		return models.Failure(models.ErrKindConnection, err.Error())
	}

	// Частичное закрытие: с уровнем TP выставляется отложенный
	// лимитник на часть объёма, без уровня часть закрывается по рынку
	if intent.PartialVolume > 0 {
		if intent.TakeProfit > 0 {
			return e.partialTakeProfit(ctx, pos, intent.PartialVolume, intent.TakeProfit)
		}
		return e.partialClose(ctx, pos, intent.PartialVolume)
	}

	// Непереданные уровни сохраняются как есть
	stopLoss := intent.StopLoss
	if stopLoss == 0 {
		stopLoss = pos.StopLoss
	}
	takeProfit := intent.TakeProfit
	if takeProfit == 0 {
		takeProfit = pos.TakeProfit
	}

	req := &terminal.OrderRequest{
		Kind:           terminal.RequestModify,
		Symbol:         pos.Symbol,
		PositionTicket: intent.Ticket,
		StopLoss:       stopLoss,
		TakeProfit:     takeProfit,
	}

	sent, err := e.gw.SendOrder(ctx, req)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}
	if !sent.Ok() {
		return models.Failure(models.ErrKindBrokerRejected,
			fmt.Sprintf("retcode %d: %s", sent.Retcode, sent.Comment))
	}

	if err := e.sync.SyncNow(ctx); err != nil {
		log.Printf("modify %d: post-modify sync failed: %v", intent.Ticket, err)
	}

	return &models.ExecutionResult{Success: true, Ticket: intent.Ticket}
}

// partialTakeProfit выставляет встречный лимитный ордер на часть
// объёма позиции по уровню takeProfit. Сама позиция не трогается:
// она уменьшится, когда лимитник исполнится на стороне брокера.
// Уровень отодвигается от текущей цены на минимальную дистанцию
// стопов инструмента, как и при открытии.
func (e *Executor) partialTakeProfit(ctx context.Context, pos *models.PositionRecord, volume, takeProfit float64) *models.ExecutionResult {
	if volume > pos.Volume {
		volume = pos.Volume
	}

	meta, err := e.gw.SymbolMeta(ctx, pos.Symbol)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}
	tick, err := e.gw.Tick(ctx, pos.Symbol)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}

	// Лонг закрывается sell limit выше рынка, шорт buy limit ниже
	minDist := minStopDistance(meta)
	price := takeProfit
	if pos.Side == models.SideLong {
		if price < tick.Bid+minDist {
			price = tick.Bid + minDist
		}
	} else {
		if price > tick.Ask-minDist {
			price = tick.Ask - minDist
		}
	}
	price = utils.RoundToPoint(price, meta.PointSize)

	req := &terminal.OrderRequest{
		Kind:           terminal.RequestPending,
		Symbol:         pos.Symbol,
		Side:           closeOrderSide(pos.Side),
		Volume:         volume,
		Price:          price,
		PositionTicket: pos.Ticket,
		Magic:          pos.Magic,
		Comment:        "partial tp",
	}

	sent, err := e.gw.SendOrder(ctx, req)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}
	if !sent.Ok() {
		return models.Failure(models.ErrKindBrokerRejected,
			fmt.Sprintf("retcode %d: %s", sent.Retcode, sent.Comment))
	}

	return &models.ExecutionResult{
		Success: true,
		Ticket:  sent.Ticket,
		Price:   price,
		Volume:  volume,
	}
}

// partialClose закрывает часть объёма позиции
func (e *Executor) partialClose(ctx context.Context, pos *models.PositionRecord, volume float64) *models.ExecutionResult {
	if volume >= pos.Volume {
		// Запрошено больше, чем есть - полное закрытие
		return e.ClosePosition(ctx, pos.Ticket)
	}

	tick, err := e.gw.Tick(ctx, pos.Symbol)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}

	price := tick.Bid
	if pos.Side == models.SideShort {
		price = tick.Ask
	}

	req := &terminal.OrderRequest{
		Kind:           terminal.RequestDeal,
		Symbol:         pos.Symbol,
		Side:           closeOrderSide(pos.Side),
		Volume:         volume,
		Price:          price,
		PositionTicket: pos.Ticket,
		Magic:          pos.Magic,
		Comment:        "partial close",
	}

	sent, err := e.gw.SendOrder(ctx, req)
	if err != nil {
		return models.Failure(models.ErrKindConnection, err.Error())
	}
	if !sent.Ok() {
		return models.Failure(models.ErrKindBrokerRejected,
			fmt.Sprintf("retcode %d: %s", sent.Retcode, sent.Comment))
	}

	if err := e.sync.SyncNow(ctx); err != nil {
		log.Printf("partial close %d: post-close sync failed: %v", pos.Ticket, err)
	}

	return &models.ExecutionResult{
		Success: true,
		Ticket:  pos.Ticket,
		Price:   sent.Price,
		Volume:  volume,
	}
}

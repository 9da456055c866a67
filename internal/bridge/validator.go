package bridge

import (
	"fmt"

	"mt5bridge/internal/models"
	"mt5bridge/internal/terminal"
	"mt5bridge/pkg/utils"
)

// validator.go - проверка и корректировка торговых намерений
//
// Две независимые фазы:
//  1. ValidateIntent - чистая проверка формы запроса, без терминала.
//     Ошибки здесь означают invalid_intent и не доходят до брокера.
//  2. AdjustIntent - подгонка объёма и стопов под ограничения
//     инструмента. Скорректированный запрос брокер примет там,
//     где исходный был бы отвергнут.

// ValidateIntent проверяет форму торгового намерения.
// Возвращает описание первой найденной проблемы или nil.
func ValidateIntent(intent *models.TradeIntent) error {
	if intent == nil {
		return fmt.Errorf("intent is nil")
	}
	if intent.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	switch intent.Action {
	case models.ActionBuy, models.ActionSell:
		if intent.Volume <= 0 {
			return fmt.Errorf("volume must be positive, got %v", intent.Volume)
		}
	case models.ActionClose:
		if intent.Magic == 0 {
			return fmt.Errorf("close requires a position identifier")
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", intent.Action)
	}

	switch intent.OrderKind {
	case models.OrderKindMarket:
		// цена придёт из стакана
	case models.OrderKindLimit:
		if intent.Price <= 0 {
			return fmt.Errorf("limit order requires a price, got %v", intent.Price)
		}
	default:
		return fmt.Errorf("unknown order type %q", intent.OrderKind)
	}

	// Разбиение тейк-профита: либо оба уровня, либо ни одного
	if (intent.TP1 > 0) != (intent.TP2 > 0) {
		return fmt.Errorf("partial take profit requires both tp1 and tp2")
	}
	if intent.IsSplit() && intent.TakeProfit > 0 {
		return fmt.Errorf("take_profit and tp1/tp2 are mutually exclusive")
	}

	if intent.StopLoss < 0 || intent.TakeProfit < 0 || intent.TP1 < 0 || intent.TP2 < 0 {
		return fmt.Errorf("price levels cannot be negative")
	}

	return nil
}

// minStopDistance возвращает минимальную дистанцию стопов от цены.
// Если брокер не сообщает stops_level, берётся запас в 10 пунктов.
func minStopDistance(meta *terminal.SymbolMeta) float64 {
	if meta.StopsLevel > 0 {
		return float64(meta.StopsLevel) * meta.PointSize
	}
	return 10 * meta.PointSize
}

// AdjustIntent возвращает копию намерения, подогнанную под ограничения
// инструмента, и список внесённых правок для диагностики.
//
// Корректировки:
//   - объём приводится к [min, max] и округляется до шага лота
//   - SL/TP отодвигаются от цены исполнения на минимальную дистанцию
//   - все уровни округляются до пункта
//
// Референсная цена: для market ордера ask (buy) или bid (sell),
// для limit - цена самого ордера.
func AdjustIntent(intent *models.TradeIntent, meta *terminal.SymbolMeta, tick *terminal.Tick) (*models.TradeIntent, []string) {
	adjusted := *intent
	var notes []string

	// Объём
	volume := utils.ClampVolume(intent.Volume, meta.MinVolume, meta.MaxVolume)
	if meta.VolumeStep > 0 {
		volume = utils.RoundToLotStep(volume, meta.VolumeStep)
		if volume < meta.MinVolume {
			volume = meta.MinVolume
		}
	}
	if !utils.FloatEquals(volume, intent.Volume) {
		notes = append(notes, fmt.Sprintf("volume %v -> %v", intent.Volume, volume))
	}
	adjusted.Volume = volume

	// Референсная цена исполнения
	var ref float64
	if intent.OrderKind == models.OrderKindLimit {
		ref = utils.RoundToPoint(intent.Price, meta.PointSize)
		adjusted.Price = ref
	} else if intent.Action == models.ActionBuy {
		ref = tick.Ask
	} else {
		ref = tick.Bid
	}

	minDist := minStopDistance(meta)

	adjustLevel := func(name string, level float64, isStop bool) float64 {
		if level <= 0 {
			return level
		}
		fixed := level

		// Для buy стоп ниже цены, цели выше; для sell наоборот
		buySide := intent.Action == models.ActionBuy
		below := buySide == isStop

		if below && fixed > ref-minDist {
			fixed = ref - minDist
		}
		if !below && fixed < ref+minDist {
			fixed = ref + minDist
		}

		fixed = utils.RoundToPoint(fixed, meta.PointSize)
		if !utils.FloatEquals(fixed, level) {
			notes = append(notes, fmt.Sprintf("%s %v -> %v", name, level, fixed))
		}
		return fixed
	}

	adjusted.StopLoss = adjustLevel("stop_loss", intent.StopLoss, true)
	adjusted.TakeProfit = adjustLevel("take_profit", intent.TakeProfit, false)
	adjusted.TP1 = adjustLevel("tp1", intent.TP1, false)
	adjusted.TP2 = adjustLevel("tp2", intent.TP2, false)

	return &adjusted, notes
}

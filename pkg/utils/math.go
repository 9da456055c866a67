package utils

import (
	"math"
)

// math.go - математические утилиты для торговых операций
//
// Назначение:
// Вспомогательные математические функции для подготовки торговых запросов.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - RoundToLotStep: округление объёма до шага лота брокера
// - RoundToPoint: округление цены до размера пункта инструмента
// - SplitVolume: разбиение объёма на две части для частичного тейк-профита
// - ClampVolume: приведение объёма к допустимому диапазону

// RoundToLotStep округляет объём ВНИЗ до ближайшего кратного step.
//
// Используется для приведения запрошенного объёма к шагу лота брокера.
// Округление вниз гарантирует, что мы не превысим запрошенный объём.
//
// Параметры:
//   - volume: исходный объём в лотах
//   - step: минимальный шаг изменения объёма
//
// Возвращает:
//   - Округлённое значение, кратное step
//   - Если step <= 0, возвращает исходное значение
//
// Примеры:
//   - RoundToLotStep(0.123, 0.01) = 0.12
//   - RoundToLotStep(1.999, 0.01) = 1.99
//   - RoundToLotStep(0.5, 0.1) = 0.5
func RoundToLotStep(volume, step float64) float64 {
	if step <= 0 {
		return volume
	}
	// math.Floor с коррекцией на погрешность float64:
	// 0.3/0.1 даёт 2.9999999999999996, без поправки округлилось бы в 0.2
	return math.Floor(volume/step+1e-9) * step
}

// RoundToPoint округляет цену до ближайшего кратного point.
//
// Используется при расчёте стоп-лосса и тейк-профита, чтобы
// отправляемые брокеру цены лежали на сетке котировок инструмента.
//
// Параметры:
//   - price: исходная цена
//   - point: размер пункта инструмента (например 0.00001 для EURUSD)
//
// Возвращает округлённую цену; если point <= 0, исходное значение.
func RoundToPoint(price, point float64) float64 {
	if point <= 0 {
		return price
	}
	return math.Round(price/point) * point
}

// SplitVolume делит объём на две части для частичного тейк-профита.
//
// Первая часть получает половину, округлённую вниз до step,
// вторая - остаток. Сумма частей всегда равна исходному объёму,
// округлённому до step.
//
// Если половина меньше минимального объёма minVolume, разбиение
// невозможно и возвращается ok=false.
//
// Примеры:
//   - SplitVolume(1.0, 0.01, 0.01) = (0.5, 0.5, true)
//   - SplitVolume(0.03, 0.01, 0.01) = (0.01, 0.02, true)
//   - SplitVolume(0.01, 0.01, 0.01) = (0, 0, false)
func SplitVolume(volume, step, minVolume float64) (first, second float64, ok bool) {
	total := RoundToLotStep(volume, step)
	first = RoundToLotStep(total/2, step)
	second = RoundToLotStep(total-first, step)

	if first < minVolume || second < minVolume {
		return 0, 0, false
	}
	return first, second, true
}

// ClampVolume приводит объём к диапазону [min, max].
//
// Возвращает:
//   - min, если volume < min
//   - max, если volume > max и max > 0
//   - volume в остальных случаях
func ClampVolume(volume, min, max float64) float64 {
	if volume < min {
		return min
	}
	if max > 0 && volume > max {
		return max
	}
	return volume
}

// FloatEquals сравнивает два float64 с допуском epsilon.
// Используется вместо прямого == для результатов арифметики с ценами.
func FloatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

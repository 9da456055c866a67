package terminal

import "errors"

// Сентинельные ошибки шлюза. Проверяются через errors.Is().
var (
	// ErrNotConnected - терминал недоступен или соединение не установлено
	ErrNotConnected = errors.New("terminal is not connected")

	// ErrPositionNotFound - позиция с указанным тикетом не существует
	ErrPositionNotFound = errors.New("position not found")

	// ErrSymbolNotFound - символ неизвестен терминалу
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrTradeNotAllowed - торговля запрещена на стороне терминала
	ErrTradeNotAllowed = errors.New("trading is not allowed")
)

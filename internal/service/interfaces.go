package service

import (
	"time"

	"mt5bridge/internal/models"
)

// AccountRepositoryInterface определяет интерфейс репозитория терминальных счетов
type AccountRepositoryInterface interface {
	Create(account *models.TerminalAccount) error
	GetByLogin(login int64) (*models.TerminalAccount, error)
	GetActive() (*models.TerminalAccount, error)
	GetAll() ([]*models.TerminalAccount, error)
	SetActive(login int64) error
	UpdatePassword(login int64, passwordEncrypted string) error
	Delete(login int64) error
}

// JournalRepositoryInterface определяет интерфейс репозитория журнала ордеров
type JournalRepositoryInterface interface {
	Create(record *models.OrderJournalRecord) error
	GetByID(id int) (*models.OrderJournalRecord, error)
	GetByTicket(ticket int64) ([]*models.OrderJournalRecord, error)
	GetRecent(limit int) ([]*models.OrderJournalRecord, error)
	GetBySymbol(symbol string, limit int) ([]*models.OrderJournalRecord, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

package service

import (
	"time"

	"mt5bridge/internal/models"
	"mt5bridge/internal/repository"
)

// ============ Mock AccountRepository ============

type MockAccountRepository struct {
	accounts  map[int64]*models.TerminalAccount
	createErr error
	getErr    error
	updateErr error
	deleteErr error
	nextID    int
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[int64]*models.TerminalAccount),
		nextID:   1,
	}
}

func (m *MockAccountRepository) Create(account *models.TerminalAccount) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.accounts[account.Login]; exists {
		return repository.ErrAccountExists
	}
	account.ID = m.nextID
	m.nextID++
	account.CreatedAt = time.Now()
	m.accounts[account.Login] = account
	return nil
}

func (m *MockAccountRepository) GetByLogin(login int64) (*models.TerminalAccount, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if account, exists := m.accounts[login]; exists {
		return account, nil
	}
	return nil, repository.ErrAccountNotFound
}

func (m *MockAccountRepository) GetActive() (*models.TerminalAccount, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, a := range m.accounts {
		if a.Active {
			return a, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (m *MockAccountRepository) GetAll() ([]*models.TerminalAccount, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.TerminalAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		result = append(result, a)
	}
	return result, nil
}

func (m *MockAccountRepository) SetActive(login int64) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, exists := m.accounts[login]; !exists {
		return repository.ErrAccountNotFound
	}
	for _, a := range m.accounts {
		a.Active = a.Login == login
	}
	return nil
}

func (m *MockAccountRepository) UpdatePassword(login int64, passwordEncrypted string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	account, exists := m.accounts[login]
	if !exists {
		return repository.ErrAccountNotFound
	}
	account.PasswordEncrypted = passwordEncrypted
	return nil
}

func (m *MockAccountRepository) Delete(login int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.accounts[login]; !exists {
		return repository.ErrAccountNotFound
	}
	delete(m.accounts, login)
	return nil
}

// ============ Mock JournalRepository ============

type MockJournalRepository struct {
	records   []*models.OrderJournalRecord
	createErr error
	getErr    error
	nextID    int
}

func NewMockJournalRepository() *MockJournalRepository {
	return &MockJournalRepository{nextID: 1}
}

func (m *MockJournalRepository) Create(record *models.OrderJournalRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	record.ID = m.nextID
	m.nextID++
	record.CreatedAt = time.Now()
	m.records = append(m.records, record)
	return nil
}

func (m *MockJournalRepository) GetByID(id int) (*models.OrderJournalRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repository.ErrJournalRecordNotFound
}

func (m *MockJournalRepository) GetByTicket(ticket int64) ([]*models.OrderJournalRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.OrderJournalRecord
	for _, r := range m.records {
		if r.Ticket == ticket {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MockJournalRepository) GetRecent(limit int) ([]*models.OrderJournalRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if len(m.records) <= limit {
		return m.records, nil
	}
	return m.records[len(m.records)-limit:], nil
}

func (m *MockJournalRepository) GetBySymbol(symbol string, limit int) ([]*models.OrderJournalRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.OrderJournalRecord
	for _, r := range m.records {
		if r.Symbol == symbol {
			result = append(result, r)
		}
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockJournalRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var kept []*models.OrderJournalRecord
	var deleted int64
	for _, r := range m.records {
		if r.CreatedAt.Before(cutoff) {
			deleted++
		} else {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return deleted, nil
}

package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"mt5bridge/internal/models"
)

// Ошибки репозитория терминальных счетов
var (
	ErrAccountNotFound = errors.New("terminal account not found")
	ErrAccountExists   = errors.New("terminal account already exists")
)

// AccountRepository - работа с таблицей terminal_accounts.
// Пароли хранятся только в зашифрованном виде.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository создает новый экземпляр репозитория
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create сохраняет счёт терминала
func (r *AccountRepository) Create(account *models.TerminalAccount) error {
	query := `
		INSERT INTO terminal_accounts (login, server, password_encrypted, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	err := r.db.QueryRow(
		query,
		account.Login,
		account.Server,
		account.PasswordEncrypted,
		account.Active,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrAccountExists
		}
		return err
	}

	return nil
}

// GetByLogin возвращает счёт по логину
func (r *AccountRepository) GetByLogin(login int64) (*models.TerminalAccount, error) {
	query := `
		SELECT id, login, server, password_encrypted, active, created_at, updated_at
		FROM terminal_accounts
		WHERE login = $1`

	account := &models.TerminalAccount{}
	err := r.db.QueryRow(query, login).Scan(
		&account.ID,
		&account.Login,
		&account.Server,
		&account.PasswordEncrypted,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return account, nil
}

// GetActive возвращает единственный активный счёт
func (r *AccountRepository) GetActive() (*models.TerminalAccount, error) {
	query := `
		SELECT id, login, server, password_encrypted, active, created_at, updated_at
		FROM terminal_accounts
		WHERE active = true
		LIMIT 1`

	account := &models.TerminalAccount{}
	err := r.db.QueryRow(query).Scan(
		&account.ID,
		&account.Login,
		&account.Server,
		&account.PasswordEncrypted,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return account, nil
}

// GetAll возвращает все счета
func (r *AccountRepository) GetAll() ([]*models.TerminalAccount, error) {
	query := `
		SELECT id, login, server, password_encrypted, active, created_at, updated_at
		FROM terminal_accounts
		ORDER BY login`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.TerminalAccount
	for rows.Next() {
		account := &models.TerminalAccount{}
		err := rows.Scan(
			&account.ID,
			&account.Login,
			&account.Server,
			&account.PasswordEncrypted,
			&account.Active,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

// SetActive делает счёт активным, деактивируя остальные
func (r *AccountRepository) SetActive(login int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE terminal_accounts SET active = false, updated_at = $1 WHERE active = true`, time.Now()); err != nil {
		return err
	}

	result, err := tx.Exec(`UPDATE terminal_accounts SET active = true, updated_at = $1 WHERE login = $2`, time.Now(), login)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAccountNotFound
	}

	return tx.Commit()
}

// UpdatePassword обновляет зашифрованный пароль
func (r *AccountRepository) UpdatePassword(login int64, passwordEncrypted string) error {
	query := `
		UPDATE terminal_accounts
		SET password_encrypted = $1, updated_at = $2
		WHERE login = $3`

	result, err := r.db.Exec(query, passwordEncrypted, time.Now(), login)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением UNIQUE constraint
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "23505")
}

// Delete удаляет счёт
func (r *AccountRepository) Delete(login int64) error {
	result, err := r.db.Exec(`DELETE FROM terminal_accounts WHERE login = $1`, login)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}

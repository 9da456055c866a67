package service

import (
	"errors"
	"fmt"

	"mt5bridge/internal/models"
	"mt5bridge/pkg/crypto"
)

// Ошибки сервиса счетов
var (
	ErrInvalidLogin    = errors.New("login must be positive")
	ErrEmptyServer     = errors.New("server is required")
	ErrEmptyPassword   = errors.New("password is required")
)

// AccountService - бизнес-логика управления счетами терминала.
// Пароль шифруется перед сохранением и расшифровывается только
// в момент передачи терминалу; наружу он не отдаётся никогда.
type AccountService struct {
	repo          AccountRepositoryInterface
	encryptionKey []byte
}

// NewAccountService создает новый экземпляр сервиса
func NewAccountService(repo AccountRepositoryInterface, encryptionKey string) *AccountService {
	return &AccountService{
		repo:          repo,
		encryptionKey: []byte(encryptionKey),
	}
}

// AddAccount сохраняет новый счёт терминала с зашифрованным паролем
func (s *AccountService) AddAccount(login int64, server, password string, active bool) (*models.TerminalAccount, error) {
	if login <= 0 {
		return nil, ErrInvalidLogin
	}
	if server == "" {
		return nil, ErrEmptyServer
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	encrypted, err := crypto.Encrypt(password, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt password: %w", err)
	}

	account := &models.TerminalAccount{
		Login:             login,
		Server:            server,
		PasswordEncrypted: encrypted,
		Active:            active,
	}

	if err := s.repo.Create(account); err != nil {
		return nil, err
	}

	return account, nil
}

// Credentials возвращает расшифрованный пароль счёта.
// Используется только при передаче учётных данных терминалу.
func (s *AccountService) Credentials(login int64) (server, password string, err error) {
	account, err := s.repo.GetByLogin(login)
	if err != nil {
		return "", "", err
	}

	plain, err := crypto.Decrypt(account.PasswordEncrypted, s.encryptionKey)
	if err != nil {
		return "", "", fmt.Errorf("decrypt password for login %d: %w", login, err)
	}

	return account.Server, plain, nil
}

// ActiveAccount возвращает активный счёт (без пароля)
func (s *AccountService) ActiveAccount() (*models.TerminalAccount, error) {
	return s.repo.GetActive()
}

// ListAccounts возвращает все счета (пароли остаются зашифрованными
// и не сериализуются наружу)
func (s *AccountService) ListAccounts() ([]*models.TerminalAccount, error) {
	return s.repo.GetAll()
}

// Activate делает счёт активным
func (s *AccountService) Activate(login int64) error {
	if login <= 0 {
		return ErrInvalidLogin
	}
	return s.repo.SetActive(login)
}

// ChangePassword обновляет пароль счёта
func (s *AccountService) ChangePassword(login int64, password string) error {
	if login <= 0 {
		return ErrInvalidLogin
	}
	if password == "" {
		return ErrEmptyPassword
	}

	encrypted, err := crypto.Encrypt(password, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}

	return s.repo.UpdatePassword(login, encrypted)
}

// RemoveAccount удаляет счёт
func (s *AccountService) RemoveAccount(login int64) error {
	if login <= 0 {
		return ErrInvalidLogin
	}
	return s.repo.Delete(login)
}

package repository

import (
	"database/sql"
	"errors"
	"time"

	"mt5bridge/internal/models"
)

// Ошибки репозитория журнала
var (
	ErrJournalRecordNotFound = errors.New("journal record not found")
)

// JournalRepository - работа с таблицей order_journal
type JournalRepository struct {
	db *sql.DB
}

// NewJournalRepository создает новый экземпляр репозитория
func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Create создает запись журнала
func (r *JournalRepository) Create(record *models.OrderJournalRecord) error {
	query := `
		INSERT INTO order_journal (ticket, symbol, action, order_kind, leg_index, volume, price, stop_loss, take_profit, magic, status, error_message, created_at, filled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	record.CreatedAt = time.Now()

	err := r.db.QueryRow(
		query,
		record.Ticket,
		record.Symbol,
		record.Action,
		record.OrderKind,
		record.LegIndex,
		record.Volume,
		record.Price,
		record.StopLoss,
		record.TakeProfit,
		record.Magic,
		record.Status,
		record.ErrorMessage,
		record.CreatedAt,
		record.FilledAt,
	).Scan(&record.ID)

	if err != nil {
		return err
	}

	return nil
}

// GetByID возвращает запись по ID
func (r *JournalRepository) GetByID(id int) (*models.OrderJournalRecord, error) {
	query := `
		SELECT id, ticket, symbol, action, order_kind, leg_index, volume, price, stop_loss, take_profit, magic, status, error_message, created_at, filled_at
		FROM order_journal
		WHERE id = $1`

	record := &models.OrderJournalRecord{}
	err := r.db.QueryRow(query, id).Scan(
		&record.ID,
		&record.Ticket,
		&record.Symbol,
		&record.Action,
		&record.OrderKind,
		&record.LegIndex,
		&record.Volume,
		&record.Price,
		&record.StopLoss,
		&record.TakeProfit,
		&record.Magic,
		&record.Status,
		&record.ErrorMessage,
		&record.CreatedAt,
		&record.FilledAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJournalRecordNotFound
		}
		return nil, err
	}

	return record, nil
}

// GetByTicket возвращает все записи по тикету позиции
func (r *JournalRepository) GetByTicket(ticket int64) ([]*models.OrderJournalRecord, error) {
	query := `
		SELECT id, ticket, symbol, action, order_kind, leg_index, volume, price, stop_loss, take_profit, magic, status, error_message, created_at, filled_at
		FROM order_journal
		WHERE ticket = $1
		ORDER BY created_at DESC`

	return r.queryRecords(query, ticket)
}

// GetRecent возвращает последние записи журнала
func (r *JournalRepository) GetRecent(limit int) ([]*models.OrderJournalRecord, error) {
	query := `
		SELECT id, ticket, symbol, action, order_kind, leg_index, volume, price, stop_loss, take_profit, magic, status, error_message, created_at, filled_at
		FROM order_journal
		ORDER BY created_at DESC
		LIMIT $1`

	return r.queryRecords(query, limit)
}

// GetBySymbol возвращает историю по символу
func (r *JournalRepository) GetBySymbol(symbol string, limit int) ([]*models.OrderJournalRecord, error) {
	query := `
		SELECT id, ticket, symbol, action, order_kind, leg_index, volume, price, stop_loss, take_profit, magic, status, error_message, created_at, filled_at
		FROM order_journal
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2`

	return r.queryRecords(query, symbol, limit)
}

// MarkFilled отмечает запись исполненной с фактическим тикетом
func (r *JournalRepository) MarkFilled(id int, ticket int64, price float64) error {
	query := `
		UPDATE order_journal
		SET status = $1, ticket = $2, price = $3, filled_at = $4
		WHERE id = $5`

	result, err := r.db.Exec(query, models.JournalStatusFilled, ticket, price, time.Now(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrJournalRecordNotFound
	}

	return nil
}

// MarkRejected отмечает запись отклонённой с причиной
func (r *JournalRepository) MarkRejected(id int, reason string) error {
	query := `
		UPDATE order_journal
		SET status = $1, error_message = $2
		WHERE id = $3`

	result, err := r.db.Exec(query, models.JournalStatusRejected, reason, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrJournalRecordNotFound
	}

	return nil
}

// DeleteOlderThan удаляет записи старше указанного времени.
// Возвращает количество удалённых строк.
func (r *JournalRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM order_journal WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// queryRecords выполняет запрос и сканирует строки журнала
func (r *JournalRepository) queryRecords(query string, args ...interface{}) ([]*models.OrderJournalRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.OrderJournalRecord
	for rows.Next() {
		record := &models.OrderJournalRecord{}
		err := rows.Scan(
			&record.ID,
			&record.Ticket,
			&record.Symbol,
			&record.Action,
			&record.OrderKind,
			&record.LegIndex,
			&record.Volume,
			&record.Price,
			&record.StopLoss,
			&record.TakeProfit,
			&record.Magic,
			&record.Status,
			&record.ErrorMessage,
			&record.CreatedAt,
			&record.FilledAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

package service

import (
	"errors"
	"log"
	"time"

	"mt5bridge/internal/models"
)

// Ошибки сервиса журнала
var (
	ErrInvalidLimit = errors.New("limit must be between 1 and 1000")
)

// Лимит выборки истории по умолчанию
const DefaultHistoryLimit = 100

// JournalService - бизнес-логика журнала исполнений.
// Журнал пишется best-effort: ошибка БД логируется, но не
// превращает исполненную сделку в ошибку для вызывающей стороны.
type JournalService struct {
	repo JournalRepositoryInterface
}

// NewJournalService создает новый экземпляр сервиса
func NewJournalService(repo JournalRepositoryInterface) *JournalService {
	return &JournalService{repo: repo}
}

// RecordExecution записывает результат исполнения намерения.
// При разбиении take-profit создаётся запись на каждую ногу.
func (s *JournalService) RecordExecution(intent *models.TradeIntent, result *models.ExecutionResult) {
	if intent == nil || result == nil {
		return
	}

	if !result.Success {
		s.create(&models.OrderJournalRecord{
			Symbol:       intent.Symbol,
			Action:       intent.Action,
			OrderKind:    intent.OrderKind,
			Volume:       intent.Volume,
			StopLoss:     intent.StopLoss,
			TakeProfit:   intent.TakeProfit,
			Magic:        intent.Magic,
			Status:       models.JournalStatusRejected,
			ErrorMessage: result.ErrorMsg,
		})
		return
	}

	if len(result.Tickets) > 1 {
		// Две ноги разбиения
		takeProfits := []float64{intent.TP1, intent.TP2}
		for i, ticket := range result.Tickets {
			now := time.Now()
			s.create(&models.OrderJournalRecord{
				Ticket:     ticket,
				Symbol:     intent.Symbol,
				Action:     intent.Action,
				OrderKind:  intent.OrderKind,
				LegIndex:   i,
				Volume:     result.Volumes[i],
				Price:      result.Prices[i],
				StopLoss:   intent.StopLoss,
				TakeProfit: takeProfits[i],
				Magic:      intent.Magic + int64(i),
				Status:     models.JournalStatusFilled,
				FilledAt:   &now,
			})
		}
		return
	}

	status := models.JournalStatusFilled
	var filledAt *time.Time
	if intent.OrderKind == models.OrderKindLimit {
		status = models.JournalStatusPending
	} else {
		now := time.Now()
		filledAt = &now
	}

	takeProfit := intent.TakeProfit
	if intent.IsSplit() {
		// Разбиение схлопнулось в одну ногу с ближней целью
		takeProfit = intent.TP1
	}

	s.create(&models.OrderJournalRecord{
		Ticket:     result.Ticket,
		Symbol:     intent.Symbol,
		Action:     intent.Action,
		OrderKind:  intent.OrderKind,
		Volume:     result.Volume,
		Price:      result.Price,
		StopLoss:   intent.StopLoss,
		TakeProfit: takeProfit,
		Magic:      intent.Magic,
		Status:     status,
		FilledAt:   filledAt,
	})
}

// History возвращает последние записи журнала, опционально по символу
func (s *JournalService) History(symbol string, limit int) ([]*models.OrderJournalRecord, error) {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 1 || limit > 1000 {
		return nil, ErrInvalidLimit
	}

	if symbol != "" {
		return s.repo.GetBySymbol(symbol, limit)
	}
	return s.repo.GetRecent(limit)
}

// ByTicket возвращает записи журнала по тикету
func (s *JournalService) ByTicket(ticket int64) ([]*models.OrderJournalRecord, error) {
	return s.repo.GetByTicket(ticket)
}

// Cleanup удаляет записи старше retention
func (s *JournalService) Cleanup(retention time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(time.Now().Add(-retention))
}

func (s *JournalService) create(record *models.OrderJournalRecord) {
	if err := s.repo.Create(record); err != nil {
		log.Printf("journal: failed to record %s %s: %v", record.Action, record.Symbol, err)
	}
}

package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"mt5bridge/internal/models"
)

// ============ TradeHandler Tests ============

func TestTradeHandler_ExecuteTrade(t *testing.T) {
	t.Run("executes market buy and returns result", func(t *testing.T) {
		mockBridge := NewMockBridge()
		mockBridge.ExecuteResult = &models.ExecutionResult{
			Success: true,
			Ticket:  5001,
			Price:   1.10523,
			Volume:  0.10,
		}
		mockJournal := NewMockJournal()
		mockWS := NewMockBroadcaster()
		handler := NewTradeHandler(mockBridge, mockJournal, mockWS)

		body := `{"symbol":"EURUSD","action":"buy","volume":0.10,"order_type":"market","magic":777}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/trade", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler.ExecuteTrade(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var result models.ExecutionResult
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !result.Success {
			t.Error("expected success=true")
		}
		if result.Ticket != 5001 {
			t.Errorf("expected ticket 5001, got %d", result.Ticket)
		}

		// Намерение дошло до моста
		if len(mockBridge.ExecutedIntents) != 1 {
			t.Fatalf("expected 1 executed intent, got %d", len(mockBridge.ExecutedIntents))
		}
		intent := mockBridge.ExecutedIntents[0]
		if intent.Symbol != "EURUSD" || intent.Action != "buy" || intent.Magic != 777 {
			t.Errorf("intent fields lost in transit: %+v", intent)
		}

		// Результат записан в журнал и разослан
		if mockJournal.RecordedCount() != 1 {
			t.Errorf("expected 1 journal record, got %d", mockJournal.RecordedCount())
		}
		if mockWS.BroadcastCount() != 1 {
			t.Errorf("expected 1 broadcast, got %d", mockWS.BroadcastCount())
		}
	})

	t.Run("returns 400 on malformed body", func(t *testing.T) {
		mockBridge := NewMockBridge()
		handler := NewTradeHandler(mockBridge, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/trade", bytes.NewBufferString(`{not json`))
		w := httptest.NewRecorder()

		handler.ExecuteTrade(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
		if len(mockBridge.ExecutedIntents) != 0 {
			t.Error("bridge should not be called on malformed body")
		}
	})

	t.Run("maps error kinds to HTTP statuses", func(t *testing.T) {
		tests := []struct {
			name string
			kind models.ErrorKind
			want int
		}{
			{"invalid intent", models.ErrKindInvalidIntent, http.StatusBadRequest},
			{"symbol not found", models.ErrKindSymbolNotFound, http.StatusUnprocessableEntity},
			{"broker rejected", models.ErrKindBrokerRejected, http.StatusUnprocessableEntity},
			{"position not found", models.ErrKindPositionNotFound, http.StatusNotFound},
			{"connection error", models.ErrKindConnection, http.StatusServiceUnavailable},
			{"internal error", models.ErrKindInternal, http.StatusInternalServerError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockBridge := NewMockBridge()
				mockBridge.ExecuteResult = models.Failure(tt.kind, "test failure")
				handler := NewTradeHandler(mockBridge, nil, nil)

				body := `{"symbol":"EURUSD","action":"buy","volume":0.10,"order_type":"market"}`
				req := httptest.NewRequest(http.MethodPost, "/api/v1/trade", bytes.NewBufferString(body))
				w := httptest.NewRecorder()

				handler.ExecuteTrade(w, req)

				if w.Code != tt.want {
					t.Errorf("kind %s: expected status %d, got %d", tt.kind, tt.want, w.Code)
				}

				// Тело всегда содержит полный результат
				var result models.ExecutionResult
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if result.ErrorKind != tt.kind {
					t.Errorf("expected error_kind %s, got %s", tt.kind, result.ErrorKind)
				}
			})
		}
	})

	t.Run("partial success returns 200 with partial flag", func(t *testing.T) {
		mockBridge := NewMockBridge()
		mockBridge.ExecuteResult = &models.ExecutionResult{
			Success:    true,
			Partial:    true,
			PartialTP:  true,
			Ticket:     6001,
			TP1Ticket:  6001,
			Diagnostic: "second leg failed (broker_rejected): no money",
		}
		handler := NewTradeHandler(mockBridge, nil, nil)

		body := `{"symbol":"EURUSD","action":"buy","volume":0.10,"order_type":"market","tp1":1.105,"tp2":1.110}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/trade", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler.ExecuteTrade(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("partial success should be 200, got %d", w.Code)
		}

		var result models.ExecutionResult
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !result.Partial {
			t.Error("expected partial=true in response")
		}
		if result.Diagnostic == "" {
			t.Error("expected diagnostic for second leg")
		}
	})

	t.Run("failed result is still journaled", func(t *testing.T) {
		mockBridge := NewMockBridge()
		mockBridge.ExecuteResult = models.Failure(models.ErrKindBrokerRejected, "retcode 10019: No money")
		mockJournal := NewMockJournal()
		handler := NewTradeHandler(mockBridge, mockJournal, nil)

		body := `{"symbol":"EURUSD","action":"buy","volume":0.10,"order_type":"market"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/trade", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler.ExecuteTrade(w, req)

		if mockJournal.RecordedCount() != 1 {
			t.Errorf("rejected trade should be journaled, got %d records", mockJournal.RecordedCount())
		}
	})
}

package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"mt5bridge/internal/models"
)

// newPositionRouter монтирует handler в mux router, чтобы {ticket}
// извлекался так же, как в production
func newPositionRouter(h *PositionHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/positions", h.GetPositions).Methods("GET")
	r.HandleFunc("/api/v1/positions/count", h.GetPositionCount).Methods("GET")
	r.HandleFunc("/api/v1/positions/{ticket}", h.GetPosition).Methods("GET")
	r.HandleFunc("/api/v1/positions/{ticket}/close", h.ClosePosition).Methods("POST")
	r.HandleFunc("/api/v1/positions/{ticket}", h.ModifyPosition).Methods("PATCH")
	return r
}

// ============ PositionHandler Tests ============

func TestPositionHandler_GetPositions(t *testing.T) {
	t.Run("returns cached snapshot", func(t *testing.T) {
		mockBridge := NewMockBridge()
		mockBridge.PositionList = []models.PositionRecord{
			{Ticket: 1001, Symbol: "EURUSD", Volume: 0.5, Side: models.SideLong},
			{Ticket: 1002, Symbol: "GBPUSD", Volume: 1.0, Side: models.SideShort},
		}
		router := newPositionRouter(NewPositionHandler(mockBridge, nil, nil))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response PositionsResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Count != 2 {
			t.Errorf("expected count 2, got %d", response.Count)
		}
		if response.Positions[0].Ticket != 1001 {
			t.Errorf("expected first ticket 1001, got %d", response.Positions[0].Ticket)
		}
	})

	t.Run("empty cache serializes as empty array", func(t *testing.T) {
		mockBridge := NewMockBridge()
		router := newPositionRouter(NewPositionHandler(mockBridge, nil, nil))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		body := w.Body.String()
		if !bytes.Contains([]byte(body), []byte(`"positions":[]`)) {
			t.Errorf("expected empty array, got %s", body)
		}
	})
}

func TestPositionHandler_GetPositionCount(t *testing.T) {
	mockBridge := NewMockBridge()
	mockBridge.PositionList = []models.PositionRecord{{Ticket: 1}, {Ticket: 2}, {Ticket: 3}}
	router := newPositionRouter(NewPositionHandler(mockBridge, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/positions/count", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response CountResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Count != 3 {
		t.Errorf("expected count 3, got %d", response.Count)
	}
}

func TestPositionHandler_GetPosition(t *testing.T) {
	t.Run("returns position by ticket", func(t *testing.T) {
		mockBridge := NewMockBridge()
		mockBridge.PositionList = []models.PositionRecord{
			{Ticket: 1001, Symbol: "EURUSD", Volume: 0.5},
		}
		router := newPositionRouter(NewPositionHandler(mockBridge, nil, nil))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions/1001", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
	})

	t.Run("returns 404 for unknown ticket", func(t *testing.T) {
		router := newPositionRouter(NewPositionHandler(NewMockBridge(), nil, nil))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions/9999", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})

	t.Run("returns 400 for non-numeric ticket", func(t *testing.T) {
		router := newPositionRouter(NewPositionHandler(NewMockBridge(), nil, nil))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions/abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestPositionHandler_ClosePosition(t *testing.T) {
	t.Run("closes position and reports financials", func(t *testing.T) {
		mockBridge := NewMockBridge()
		mockBridge.CloseResult = &models.ExecutionResult{
			Success:    true,
			Ticket:     1001,
			Price:      1.10000,
			Profit:     30.5,
			Commission: -1.2,
			Swap:       -0.3,
		}
		mockJournal := NewMockJournal()
		mockWS := NewMockBroadcaster()
		router := newPositionRouter(NewPositionHandler(mockBridge, mockJournal, mockWS))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/positions/1001/close", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var result models.ExecutionResult
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if result.Profit != 30.5 {
			t.Errorf("expected profit 30.5, got %v", result.Profit)
		}

		if len(mockBridge.ClosedTickets) != 1 || mockBridge.ClosedTickets[0] != 1001 {
			t.Errorf("expected close call with ticket 1001, got %v", mockBridge.ClosedTickets)
		}
		if mockJournal.RecordedCount() != 1 {
			t.Errorf("expected 1 journal record, got %d", mockJournal.RecordedCount())
		}
		if mockWS.BroadcastCount() != 1 {
			t.Errorf("expected 1 broadcast, got %d", mockWS.BroadcastCount())
		}
	})

	t.Run("returns 404 when position missing on terminal", func(t *testing.T) {
		mockBridge := NewMockBridge()
		mockBridge.CloseResult = models.Failure(models.ErrKindPositionNotFound, "position 9999 not found")
		router := newPositionRouter(NewPositionHandler(mockBridge, nil, nil))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/positions/9999/close", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestPositionHandler_ModifyPosition(t *testing.T) {
	t.Run("passes levels and ticket from path", func(t *testing.T) {
		mockBridge := NewMockBridge()
		router := newPositionRouter(NewPositionHandler(mockBridge, nil, nil))

		body := `{"stop_loss":1.0950,"take_profit":1.1100}`
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/positions/1001", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if len(mockBridge.ModifyIntents) != 1 {
			t.Fatalf("expected 1 modify intent, got %d", len(mockBridge.ModifyIntents))
		}
		intent := mockBridge.ModifyIntents[0]
		if intent.Ticket != 1001 {
			t.Errorf("ticket from path not applied: got %d", intent.Ticket)
		}
		if intent.StopLoss != 1.0950 || intent.TakeProfit != 1.1100 {
			t.Errorf("levels lost in transit: %+v", intent)
		}
	})

	t.Run("ticket in body is overridden by path", func(t *testing.T) {
		mockBridge := NewMockBridge()
		router := newPositionRouter(NewPositionHandler(mockBridge, nil, nil))

		body := `{"ticket":42,"stop_loss":1.0950}`
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/positions/1001", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if mockBridge.ModifyIntents[0].Ticket != 1001 {
			t.Errorf("path ticket must win, got %d", mockBridge.ModifyIntents[0].Ticket)
		}
	})

	t.Run("returns 400 on malformed body", func(t *testing.T) {
		mockBridge := NewMockBridge()
		router := newPositionRouter(NewPositionHandler(mockBridge, nil, nil))

		req := httptest.NewRequest(http.MethodPatch, "/api/v1/positions/1001", bytes.NewBufferString(`{oops`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
		if len(mockBridge.ModifyIntents) != 0 {
			t.Error("bridge should not be called on malformed body")
		}
	})
}

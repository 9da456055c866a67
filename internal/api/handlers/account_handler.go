package handlers

import (
	"net/http"
)

// AccountHandler отвечает за чтение состояния счёта
//
// Снимок счёта всегда запрашивается у терминала заново,
// локально не кэшируется.
//
// Endpoints:
// - GET /api/v1/account - снимок состояния счёта
type AccountHandler struct {
	bridge BridgeInterface
}

// NewAccountHandler создает новый AccountHandler
func NewAccountHandler(bridge BridgeInterface) *AccountHandler {
	return &AccountHandler{bridge: bridge}
}

// GetAccount возвращает снимок состояния счёта
// GET /api/v1/account
//
// Ответ:
//
//	{
//	  "balance": 10000.00,
//	  "equity": 10025.50,
//	  "margin": 110.50,
//	  "free_margin": 9915.00,
//	  "currency": "USD",
//	  "leverage": 100,
//	  "connected": true
//	}
//
// Ответы:
// - 200 OK: снимок получен
// - 503 Service Unavailable: терминал недоступен
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.bridge.AccountInfo(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Failed to get account info", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, account)
}

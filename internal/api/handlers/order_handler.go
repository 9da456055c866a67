package handlers

import (
	"net/http"

	"mt5bridge/internal/models"
)

// OrdersResponse - ответ со списком отложенных ордеров
type OrdersResponse struct {
	Count  int                   `json:"count"`
	Orders []models.PendingOrder `json:"orders"`
}

// OrderHandler отвечает за чтение отложенных (limit/stop) ордеров
//
// Отложенные ордера не кэшируются: каждый запрос идет к терминалу,
// так как они не участвуют в цикле реконсиляции позиций.
//
// Endpoints:
// - GET /api/v1/orders - список отложенных ордеров
// - GET /api/v1/orders/count - количество отложенных ордеров
type OrderHandler struct {
	bridge BridgeInterface
}

// NewOrderHandler создает новый OrderHandler
func NewOrderHandler(bridge BridgeInterface) *OrderHandler {
	return &OrderHandler{bridge: bridge}
}

// GetOrders возвращает список отложенных ордеров
// GET /api/v1/orders
//
// Ответы:
// - 200 OK: список (возможно пустой)
// - 503 Service Unavailable: терминал недоступен
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.bridge.PendingOrders(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Failed to get pending orders", err.Error())
		return
	}
	if orders == nil {
		orders = []models.PendingOrder{}
	}

	respondWithJSON(w, http.StatusOK, OrdersResponse{
		Count:  len(orders),
		Orders: orders,
	})
}

// GetOrderCount возвращает количество отложенных ордеров
// GET /api/v1/orders/count
func (h *OrderHandler) GetOrderCount(w http.ResponseWriter, r *http.Request) {
	orders, err := h.bridge.PendingOrders(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Failed to get pending orders", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, CountResponse{Count: len(orders)})
}

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mt5bridge/internal/api/handlers"
	"mt5bridge/internal/api/middleware"
	"mt5bridge/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Bridge  handlers.BridgeInterface
	Journal handlers.JournalServiceInterface
	Hub     *websocket.Hub

	// bcrypt хэш API ключа; пустой хэш закрывает доступ к /api/v1
	APIKeyHash string
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/ (X-API-Key auth)
//
//	├── POST /trade - исполнить торговое намерение
//	├── /positions/
//	│   ├── GET / - снапшот открытых позиций
//	│   ├── GET /count - количество позиций
//	│   ├── GET /{ticket} - одна позиция
//	│   ├── POST /{ticket}/close - закрыть позицию
//	│   └── PATCH /{ticket} - изменить SL/TP или частично закрыть
//	├── /orders/
//	│   ├── GET / - отложенные ордера
//	│   └── GET /count - количество отложенных ордеров
//	├── GET /account - снимок счёта
//	└── /history/
//	    ├── GET / - журнал ордеров
//	    └── GET /{ticket} - записи по ticket
//
// /ws/stream - WebSocket для real-time обновлений
// /health - проверка живости (без auth)
// /metrics - Prometheus метрики (без auth)
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. APIKeyAuth (только для /api/v1)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.APIKeyAuth(deps.APIKeyHash))

	if deps.Bridge != nil {
		tradeHandler := handlers.NewTradeHandler(deps.Bridge, deps.Journal, broadcaster(deps.Hub))
		api.HandleFunc("/trade", tradeHandler.ExecuteTrade).Methods("POST")

		positionHandler := handlers.NewPositionHandler(deps.Bridge, deps.Journal, broadcaster(deps.Hub))
		api.HandleFunc("/positions", positionHandler.GetPositions).Methods("GET")
		api.HandleFunc("/positions/count", positionHandler.GetPositionCount).Methods("GET")
		api.HandleFunc("/positions/{ticket}", positionHandler.GetPosition).Methods("GET")
		api.HandleFunc("/positions/{ticket}/close", positionHandler.ClosePosition).Methods("POST")
		api.HandleFunc("/positions/{ticket}", positionHandler.ModifyPosition).Methods("PATCH")

		orderHandler := handlers.NewOrderHandler(deps.Bridge)
		api.HandleFunc("/orders", orderHandler.GetOrders).Methods("GET")
		api.HandleFunc("/orders/count", orderHandler.GetOrderCount).Methods("GET")

		accountHandler := handlers.NewAccountHandler(deps.Bridge)
		api.HandleFunc("/account", accountHandler.GetAccount).Methods("GET")
	}

	if deps.Journal != nil {
		historyHandler := handlers.NewHistoryHandler(deps.Journal)
		api.HandleFunc("/history", historyHandler.GetHistory).Methods("GET")
		api.HandleFunc("/history/{ticket}", historyHandler.GetHistoryByTicket).Methods("GET")
	}

	// WebSocket route
	if deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Health check endpoint: 200 пока есть соединение с терминалом
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.Bridge != nil && !deps.Bridge.IsHealthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("terminal disconnected"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}

// broadcaster превращает nil *Hub в nil интерфейс,
// чтобы handlers корректно пропускали push уведомления
func broadcaster(hub *websocket.Hub) handlers.Broadcaster {
	if hub == nil {
		return nil
	}
	return hub
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mt5bridge/internal/api"
	"mt5bridge/internal/bridge"
	"mt5bridge/internal/config"
	"mt5bridge/internal/repository"
	"mt5bridge/internal/service"
	"mt5bridge/internal/terminal"
	"mt5bridge/internal/websocket"

	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.DSNWithoutPassword())

	// Инициализация репозиториев
	journalRepo := repository.NewJournalRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	// Инициализация сервисов
	journalService := service.NewJournalService(journalRepo)
	accountService := service.NewAccountService(accountRepo, cfg.Security.EncryptionKey)

	// Активный терминальный аккаунт нужен только для информации:
	// вход в терминал выполняет gateway процесс, сервер лишь хранит
	// учётные данные
	if account, err := accountService.ActiveAccount(); err == nil {
		log.Printf("Active terminal account: %d @ %s", account.Login, account.Server)
	} else {
		log.Printf("No active terminal account configured: %v", err)
	}

	// Шлюз терминала
	gw := terminal.NewHTTPGateway(cfg.Terminal, cfg.Bridge)

	// WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Мост: кэш позиций, синхронизатор, исполнитель, супервизор.
	// После каждой успешной реконсиляции снапшот уходит в hub.
	br := bridge.New(gw, cfg, hub.BroadcastPositions)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go br.Run(ctx)

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		Bridge:     br,
		Journal:    journalService,
		Hub:        hub,
		APIKeyHash: cfg.Security.APIKeyHash,
	}

	router := api.SetupRoutes(deps)

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // исполнение с verify циклом может занять секунды
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server failed: %v", err)
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server failed: %v", err)
			}
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Отключаемся от терминала после остановки HTTP слоя
	if err := gw.Disconnect(); err != nil {
		log.Printf("Error disconnecting terminal gateway: %v", err)
	}

	log.Println("Server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

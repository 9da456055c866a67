package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"mt5bridge/internal/config"
	"mt5bridge/internal/models"
	"mt5bridge/pkg/ratelimit"
	"mt5bridge/pkg/retry"
)

// httpgw.go - HTTP реализация Gateway
//
// Терминал выставляет REST-агент на локальном порту. Все вызовы
// проходят через rate limiter (агент однопоточный) и, кроме
// SendOrder, повторяются при транзиентных сбоях.
// SendOrder не повторяется: повтор неидемпотентного запроса
// может открыть вторую позицию.

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPGateway реализует Gateway поверх REST-агента терминала
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	limiter *ratelimit.RateLimiter
	retry   retry.Config
}

// NewHTTPGateway создаёт шлюз с настройками из конфигурации
func NewHTTPGateway(cfg config.TerminalConfig, bridgeCfg config.BridgeConfig) *HTTPGateway {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = bridgeCfg.MaxRetries
	rc.InitialDelay = bridgeCfg.RetryBackoff
	rc.RetryIf = retry.RetryIfNotPermanent

	return &HTTPGateway{
		baseURL: cfg.Endpoint,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: ratelimit.New(cfg.RequestsPerSec, float64(cfg.RequestsBurst)),
		retry:   rc,
	}
}

// Connect устанавливает соединение терминала с торговым сервером
func (g *HTTPGateway) Connect(ctx context.Context) error {
	return retry.Do(ctx, func() error {
		return g.post(ctx, "/connect", nil, nil)
	}, g.retry)
}

// Disconnect закрывает соединение
func (g *HTTPGateway) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.post(ctx, "/disconnect", nil, nil)
}

// Status возвращает статус терминала
func (g *HTTPGateway) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := g.get(ctx, "/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// AccountSnapshot возвращает свежий снимок счёта
func (g *HTTPGateway) AccountSnapshot(ctx context.Context) (*models.AccountSnapshot, error) {
	return retry.DoWithResult(ctx, func() (*models.AccountSnapshot, error) {
		var acc models.AccountSnapshot
		if err := g.get(ctx, "/account", nil, &acc); err != nil {
			return nil, err
		}
		return &acc, nil
	}, g.retry)
}

// SelectSymbol активирует символ в обзоре рынка терминала
func (g *HTTPGateway) SelectSymbol(ctx context.Context, symbol string) (bool, error) {
	var resp struct {
		Selected bool `json:"selected"`
	}
	err := g.post(ctx, "/symbol/select", map[string]string{"symbol": symbol}, &resp)
	if err != nil {
		var gwErr *GatewayError
		// 404 означает "символа нет", это не сбой вызова
		if errors.As(err, &gwErr) && gwErr.Code == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return resp.Selected, nil
}

// SymbolMeta возвращает торговые ограничения инструмента
func (g *HTTPGateway) SymbolMeta(ctx context.Context, symbol string) (*SymbolMeta, error) {
	var meta SymbolMeta
	q := url.Values{"symbol": {symbol}}
	if err := g.get(ctx, "/symbol/info", q, &meta); err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) && gwErr.Code == http.StatusNotFound {
			return nil, ErrSymbolNotFound
		}
		return nil, err
	}
	return &meta, nil
}

// Tick возвращает текущие bid/ask
func (g *HTTPGateway) Tick(ctx context.Context, symbol string) (*Tick, error) {
	var tick Tick
	q := url.Values{"symbol": {symbol}}
	if err := g.get(ctx, "/tick", q, &tick); err != nil {
		return nil, err
	}
	return &tick, nil
}

// SendOrder отправляет торговый запрос.
// Не повторяется при ошибках: запрос неидемпотентен.
func (g *HTTPGateway) SendOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error) {
	var result OrderResult
	if err := g.post(ctx, "/order", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListPositions возвращает все открытые позиции.
// JSON null от агента декодируется в nil срез - признак "нет данных".
func (g *HTTPGateway) ListPositions(ctx context.Context) ([]models.PositionRecord, error) {
	return retry.DoWithResult(ctx, func() ([]models.PositionRecord, error) {
		var positions []models.PositionRecord
		if err := g.get(ctx, "/positions", nil, &positions); err != nil {
			return nil, err
		}
		return positions, nil
	}, g.retry)
}

// PositionByTicket возвращает позицию напрямую из терминала
func (g *HTTPGateway) PositionByTicket(ctx context.Context, ticket int64) (*models.PositionRecord, error) {
	var pos models.PositionRecord
	path := "/positions/" + strconv.FormatInt(ticket, 10)
	if err := g.get(ctx, path, nil, &pos); err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) && gwErr.Code == http.StatusNotFound {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}
	return &pos, nil
}

// ListPendingOrders возвращает отложенные ордера
func (g *HTTPGateway) ListPendingOrders(ctx context.Context) ([]models.PendingOrder, error) {
	return retry.DoWithResult(ctx, func() ([]models.PendingOrder, error) {
		var orders []models.PendingOrder
		if err := g.get(ctx, "/orders", nil, &orders); err != nil {
			return nil, err
		}
		return orders, nil
	}, g.retry)
}

// ============================================================
// Внутренние HTTP помощники
// ============================================================

func (g *HTTPGateway) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	fullURL := g.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return &GatewayError{Op: "get " + path, Message: err.Error(), Original: err}
	}

	return g.do(req, path, out)
}

func (g *HTTPGateway) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &GatewayError{Op: "post " + path, Message: err.Error(), Original: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, reader)
	if err != nil {
		return &GatewayError{Op: "post " + path, Message: err.Error(), Original: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return g.do(req, path, out)
}

func (g *HTTPGateway) do(req *http.Request, path string, out interface{}) error {
	// Пейсинг: агент терминала однопоточный
	if err := g.limiter.Wait(req.Context()); err != nil {
		return err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return &GatewayError{Op: path, Message: err.Error(), Original: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		gwErr := &GatewayError{
			Op:      path,
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data)),
		}
		// Клиентские ошибки повторять бессмысленно
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return retry.Permanent(gwErr)
		}
		return gwErr
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &GatewayError{Op: path, Message: "decode response: " + err.Error(), Original: err}
	}
	return nil
}

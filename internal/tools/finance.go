package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lakestreetlabs/finquill/internal/config"
)

const financeToolName = "FinanceTool"

const financeDescription = "Fetch real-time financial market data (stocks, crypto, forex) using the Finnhub API. " +
	"Args: 'type' ('stock' | 'crypto' | 'forex', default 'stock') and 'symbol' (e.g. 'AAPL', 'BINANCE:BTCUSDT', 'OANDA:EUR_USD')."

// FinanceTool looks up real-time quotes from Finnhub.
type FinanceTool struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewFinanceTool(cfg config.ToolsConfig) *FinanceTool {
	endpoint := cfg.FinnhubEndpoint
	if endpoint == "" {
		endpoint = config.DefaultFinnhubEndpoint
	}
	return &FinanceTool{
		apiKey:   cfg.FinnhubAPIKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: time.Duration(cfg.HTTPTimeout) * time.Second},
	}
}

func (f *FinanceTool) Name() string        { return financeToolName }
func (f *FinanceTool) Description() string { return financeDescription }

func (f *FinanceTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	queryType := "stock"
	if v, ok := args["type"].(string); ok && v != "" {
		queryType = v
	}
	switch queryType {
	case "stock", "crypto", "forex":
	default:
		return nil, fmt.Errorf("unsupported type %q for %s", queryType, financeToolName)
	}

	symbol, err := stringArg(args, "symbol")
	if err != nil {
		return nil, err
	}

	data, err := f.quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"symbol": symbol,
		"type":   queryType,
		"data":   data,
		"source": "finnhub",
	}, nil
}

// WithEndpoint points the tool at a different API base. Used by tests.
func (f *FinanceTool) WithEndpoint(endpoint string) *FinanceTool {
	f.endpoint = endpoint
	return f
}

func (f *FinanceTool) quote(ctx context.Context, symbol string) (map[string]any, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("token", f.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build finnhub request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finnhub request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub request: status %d", resp.StatusCode)
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode finnhub response: %w", err)
	}
	return data, nil
}

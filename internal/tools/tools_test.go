package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/lakestreetlabs/finquill/internal/config"
)

type fakeTool struct {
	name string
}

func (f fakeTool) Name() string        { return f.name }
func (f fakeTool) Description() string { return "fake tool " + f.name }
func (f fakeTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return f.name, nil
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(fakeTool{"WebSearchTool"}, fakeTool{"FinanceTool"})

	if reg.Len() != 2 {
		t.Fatalf("Len = %d, want 2", reg.Len())
	}
	if _, ok := reg.Get("FinanceTool"); !ok {
		t.Error("Get(FinanceTool) not found")
	}
	if _, ok := reg.Get("NoSuchTool"); ok {
		t.Error("Get(NoSuchTool) unexpectedly found")
	}

	want := []string{"FinanceTool", "WebSearchTool"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v (sorted)", got, want)
	}
	list := reg.List()
	if len(list) != 2 || list[0].Name() != "FinanceTool" {
		t.Errorf("List not sorted by name: %v", reg.Names())
	}
}

func TestFinanceTool_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("path = %q, want /quote", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("symbol = %q, want AAPL", got)
		}
		if got := r.URL.Query().Get("token"); got != "fh_test" {
			t.Errorf("token = %q, want fh_test", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"c":232.10,"d":1.25,"dp":0.54,"t":1767020400}`)
	}))
	defer srv.Close()

	tool := NewFinanceTool(config.ToolsConfig{
		FinnhubAPIKey: "fh_test",
		HTTPTimeout:   5,
	}).WithEndpoint(srv.URL)

	out, err := tool.Execute(context.Background(), map[string]any{"type": "stock", "symbol": "AAPL"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("result type = %T, want map", out)
	}
	if result["symbol"] != "AAPL" || result["source"] != "finnhub" {
		t.Errorf("result = %v, want symbol AAPL from finnhub", result)
	}
	data, ok := result["data"].(map[string]any)
	if !ok || data["c"] != 232.10 {
		t.Errorf("data = %v, want quote with c=232.10", result["data"])
	}
}

func TestFinanceTool_Execute_DefaultsToStock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"c":1.0}`)
	}))
	defer srv.Close()

	tool := NewFinanceTool(config.ToolsConfig{HTTPTimeout: 5}).WithEndpoint(srv.URL)
	out, err := tool.Execute(context.Background(), map[string]any{"symbol": "MSFT"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.(map[string]any)["type"] != "stock" {
		t.Errorf("type = %v, want stock", out.(map[string]any)["type"])
	}
}

func TestFinanceTool_Execute_MissingSymbol(t *testing.T) {
	tool := NewFinanceTool(config.ToolsConfig{HTTPTimeout: 5})
	_, err := tool.Execute(context.Background(), map[string]any{"type": "stock"})
	if !errors.Is(err, ErrMissingArgument) {
		t.Errorf("err = %v, want ErrMissingArgument", err)
	}
}

func TestFinanceTool_Execute_UnsupportedType(t *testing.T) {
	tool := NewFinanceTool(config.ToolsConfig{HTTPTimeout: 5})
	_, err := tool.Execute(context.Background(), map[string]any{"type": "bond", "symbol": "X"})
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestFinanceTool_Execute_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tool := NewFinanceTool(config.ToolsConfig{HTTPTimeout: 5}).WithEndpoint(srv.URL)
	_, err := tool.Execute(context.Background(), map[string]any{"symbol": "AAPL"})
	if err == nil {
		t.Fatal("expected error from upstream 429")
	}
}

func TestWebSearchTool_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "Q3 earnings news" {
			t.Errorf("q = %q, want query text", q.Get("q"))
		}
		if q.Get("key") != "g_test" || q.Get("cx") != "cse_test" {
			t.Errorf("credentials = (%q, %q)", q.Get("key"), q.Get("cx"))
		}
		if q.Get("num") != "3" {
			t.Errorf("num = %q, want 3", q.Get("num"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"title":"Q3 roundup","snippet":"Earnings beat expectations","link":"https://example.com/a"},
			{"title":"Tech Q3","snippet":"Mixed results","link":"https://example.com/b"}
		]}`)
	}))
	defer srv.Close()

	tool := NewWebSearchTool(config.ToolsConfig{
		GoogleAPIKey: "g_test",
		GoogleCSEID:  "cse_test",
		HTTPTimeout:  5,
	}).WithEndpoint(srv.URL)

	out, err := tool.Execute(context.Background(), map[string]any{
		"query":       "Q3 earnings news",
		"num_results": float64(3), // decoded JSON numbers are float64
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result := out.(map[string]any)
	results := result["results"].([]map[string]any)
	if len(results) != 2 {
		t.Fatalf("results = %d entries, want 2", len(results))
	}
	if results[0]["title"] != "Q3 roundup" {
		t.Errorf("first title = %v", results[0]["title"])
	}
	if result["source"] != "google_custom_search_api" {
		t.Errorf("source = %v", result["source"])
	}
}

func TestWebSearchTool_Execute_MissingQuery(t *testing.T) {
	tool := NewWebSearchTool(config.ToolsConfig{HTTPTimeout: 5})
	_, err := tool.Execute(context.Background(), map[string]any{})
	if !errors.Is(err, ErrMissingArgument) {
		t.Errorf("err = %v, want ErrMissingArgument", err)
	}
}

func TestWebSearchTool_Execute_ClampsNumResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("num"); got != "10" {
			t.Errorf("num = %q, want clamped to 10", got)
		}
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	tool := NewWebSearchTool(config.ToolsConfig{HTTPTimeout: 5}).WithEndpoint(srv.URL)
	if _, err := tool.Execute(context.Background(), map[string]any{
		"query":       "anything",
		"num_results": float64(50),
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

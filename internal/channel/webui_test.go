package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/lakestreetlabs/finquill/internal/agent"
	"github.com/lakestreetlabs/finquill/internal/config"
)

func startWebUI(t *testing.T, port int, r Responder) *WebUIChannel {
	t.Helper()
	ch, err := NewWebUIChannel(config.WebUIConfig{Enabled: true}, config.GatewayConfig{Host: "127.0.0.1", Port: port}, r)
	if err != nil {
		t.Fatalf("NewWebUIChannel: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := ch.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { ch.Stop() })
	time.Sleep(100 * time.Millisecond)
	return ch
}

func TestNewWebUIChannel(t *testing.T) {
	ch, err := NewWebUIChannel(config.WebUIConfig{Enabled: true}, config.GatewayConfig{}, &fakeResponder{})
	if err != nil {
		t.Fatalf("NewWebUIChannel: %v", err)
	}
	if ch.Name() != "webui" {
		t.Errorf("Name() = %q, want %q", ch.Name(), "webui")
	}
	if ch.port != config.DefaultPort {
		t.Errorf("port = %d, want default %d", ch.port, config.DefaultPort)
	}
}

func TestNewWebUIChannel_NilResponder(t *testing.T) {
	if _, err := NewWebUIChannel(config.WebUIConfig{}, config.GatewayConfig{}, nil); err == nil {
		t.Fatal("expected error for nil responder")
	}
}

func TestWebUIChannel_ServesFrontend(t *testing.T) {
	startWebUI(t, 19621, &fakeResponder{})

	resp, err := http.Get("http://127.0.0.1:19621/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("GET / status = %d, want 200", resp.StatusCode)
	}
}

func TestWebUIChannel_Query(t *testing.T) {
	responder := &fakeResponder{result: &agent.Result{
		FinalResponse: "AAPL is at $232.10.",
		Plans:         []agent.Plan{{Tool: "FinanceTool", Args: map[string]any{"symbol": "AAPL"}}},
		ToolResults:   map[string]any{"FinanceTool": map[string]any{"c": 232.1}},
	}}
	startWebUI(t, 19622, responder)

	body, _ := json.Marshal(map[string]string{"prompt": "how is AAPL"})
	resp, err := http.Post("http://127.0.0.1:19622/query", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /query: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.OriginalPrompt != "how is AAPL" {
		t.Errorf("originalPrompt = %q", out.OriginalPrompt)
	}
	if out.FinalResponse != "AAPL is at $232.10." {
		t.Errorf("finalResponse = %q", out.FinalResponse)
	}
	if len(out.ToolPlan) != 1 || out.ToolPlan[0].Tool != "FinanceTool" {
		t.Errorf("toolPlan = %+v", out.ToolPlan)
	}
	if _, ok := out.ToolResults["FinanceTool"]; !ok {
		t.Errorf("toolResults = %v, want FinanceTool entry", out.ToolResults)
	}
}

func TestWebUIChannel_Query_MissingPrompt(t *testing.T) {
	startWebUI(t, 19623, &fakeResponder{})

	resp, err := http.Post("http://127.0.0.1:19623/query", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("POST /query: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebUIChannel_Query_ResponderError(t *testing.T) {
	startWebUI(t, 19624, &fakeResponder{err: fmt.Errorf("provider down")})

	body, _ := json.Marshal(map[string]string{"prompt": "hi"})
	resp, err := http.Post("http://127.0.0.1:19624/query", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /query: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestWebUIChannel_WebSocketStream(t *testing.T) {
	responder := &fakeResponder{
		events: []agent.Event{
			{Status: agent.StatusThinking, Message: "Analyzing your request..."},
			{Status: agent.StatusPlan, Data: []agent.Plan{{Tool: "FinanceTool"}}},
			{Status: agent.StatusStreamStart},
			{Status: agent.StatusDone},
		},
		chunks: []string{"AAPL is ", "up today."},
	}
	startWebUI(t, 19625, responder)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://127.0.0.1:19625/ws?prompt=how+is+AAPL", nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.CloseNow()

	var statuses []string
	var text string
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break // server closes after done
		}
		var ev agent.Event
		if jsonErr := json.Unmarshal(data, &ev); jsonErr == nil && ev.Status != "" {
			statuses = append(statuses, ev.Status)
			if ev.Status == agent.StatusDone {
				break
			}
			continue
		}
		text += string(data)
	}

	wantStatuses := []string{agent.StatusThinking, agent.StatusPlan, agent.StatusStreamStart, agent.StatusDone}
	if len(statuses) != len(wantStatuses) {
		t.Fatalf("statuses = %v, want %v", statuses, wantStatuses)
	}
	for i := range wantStatuses {
		if statuses[i] != wantStatuses[i] {
			t.Errorf("status[%d] = %q, want %q", i, statuses[i], wantStatuses[i])
		}
	}
	if text != "AAPL is up today." {
		t.Errorf("streamed text = %q, want %q", text, "AAPL is up today.")
	}
}

func TestWebUIChannel_WebSocket_MissingPrompt(t *testing.T) {
	startWebUI(t, 19626, &fakeResponder{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, _, err := websocket.Dial(ctx, "ws://127.0.0.1:19626/ws", nil); err == nil {
		t.Fatal("expected dial failure without prompt parameter")
	}
}

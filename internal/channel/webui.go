package channel

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/lakestreetlabs/finquill/internal/agent"
	"github.com/lakestreetlabs/finquill/internal/config"
)

//go:embed static
var staticFiles embed.FS

const webUIChannelName = "webui"

type queryRequest struct {
	Prompt string `json:"prompt"`
}

type queryResponse struct {
	OriginalPrompt string         `json:"originalPrompt"`
	FinalResponse  string         `json:"finalResponse"`
	ToolPlan       []agent.Plan   `json:"toolPlan,omitempty"`
	ToolResults    map[string]any `json:"toolResults,omitempty"`
}

// WebUIChannel serves the embedded frontend, a synchronous /query endpoint
// and a /ws endpoint that streams the agent's progress events.
type WebUIChannel struct {
	BaseChannel
	host      string
	port      int
	responder Responder
	server    *http.Server
	nextID    atomic.Int64
}

func NewWebUIChannel(cfg config.WebUIConfig, gwCfg config.GatewayConfig, r Responder) (*WebUIChannel, error) {
	if r == nil {
		return nil, errors.New("webui channel requires a responder")
	}
	port := gwCfg.Port
	if port == 0 {
		port = config.DefaultPort
	}
	return &WebUIChannel{
		BaseChannel: NewBaseChannel(webUIChannelName, cfg.AllowFrom),
		host:        gwCfg.Host,
		port:        port,
		responder:   r,
	}, nil
}

func (w *WebUIChannel) Start(ctx context.Context) error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("embed static fs: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/query", w.handleQuery)
	mux.HandleFunc("/ws", w.handleWS)

	w.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", w.host, w.port),
		Handler: mux,
	}

	go func() {
		log.Printf("[webui] listening on %s", w.server.Addr)
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[webui] server error: %v", err)
		}
	}()

	return nil
}

func (w *WebUIChannel) handleQuery(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(wr, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		writeJSON(wr, http.StatusBadRequest, map[string]string{"error": "missing prompt"})
		return
	}

	log.Printf("[webui] query: %.80s", req.Prompt)
	res, err := w.responder.Respond(r.Context(), req.Prompt)
	if err != nil {
		log.Printf("[webui] respond error: %v", err)
		writeJSON(wr, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(wr, http.StatusOK, queryResponse{
		OriginalPrompt: req.Prompt,
		FinalResponse:  res.FinalResponse,
		ToolPlan:       res.Plans,
		ToolResults:    res.ToolResults,
	})
}

func (w *WebUIChannel) handleWS(wr http.ResponseWriter, r *http.Request) {
	prompt := r.URL.Query().Get("prompt")
	if prompt == "" {
		http.Error(wr, "missing prompt parameter", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(wr, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[webui] websocket accept error: %v", err)
		return
	}

	clientID := fmt.Sprintf("webui-%d", w.nextID.Add(1))
	log.Printf("[webui] client connected: %s", clientID)
	defer func() {
		conn.Close(websocket.StatusNormalClosure, "")
		log.Printf("[webui] client disconnected: %s", clientID)
	}()

	if !w.IsAllowed(clientID) {
		log.Printf("[webui] rejected client %s", clientID)
		return
	}

	sink := &wsSink{conn: conn}
	// Send failures inside the pipeline mean the peer went away; the run
	// already stopped, nothing more to do here.
	if err := w.responder.RespondStreaming(r.Context(), prompt, sink); err != nil {
		log.Printf("[webui] stream for %s ended with error: %v", clientID, err)
	}
}

// wsSink forwards agent events as JSON text frames and raw answer chunks
// as plain text frames.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) SendEvent(ctx context.Context, ev agent.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.write(ctx, data)
}

func (s *wsSink) SendText(ctx context.Context, chunk string) error {
	return s.write(ctx, []byte(chunk))
}

func (s *wsSink) write(ctx context.Context, data []byte) error {
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.conn.Write(wctx, websocket.MessageText, data)
}

func writeJSON(wr http.ResponseWriter, status int, body any) {
	wr.Header().Set("Content-Type", "application/json")
	wr.WriteHeader(status)
	_ = json.NewEncoder(wr).Encode(body)
}

func (w *WebUIChannel) Stop() error {
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.server.Shutdown(ctx); err != nil {
			log.Printf("[webui] shutdown error: %v", err)
		}
	}
	log.Printf("[webui] stopped")
	return nil
}

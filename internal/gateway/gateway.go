// Package gateway wires the provider client, tools, agent, channels and
// schedules together and runs the message loop.
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lakestreetlabs/finquill/internal/agent"
	"github.com/lakestreetlabs/finquill/internal/bus"
	"github.com/lakestreetlabs/finquill/internal/channel"
	"github.com/lakestreetlabs/finquill/internal/config"
	"github.com/lakestreetlabs/finquill/internal/llm"
	"github.com/lakestreetlabs/finquill/internal/schedule"
	"github.com/lakestreetlabs/finquill/internal/tools"
)

// Options for creating a Gateway
type Options struct {
	Responder  channel.Responder
	SignalChan chan os.Signal // for testing signal handling
}

type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	responder  channel.Responder
	channels   *channel.Manager
	sched      *schedule.Service
	signalChan chan os.Signal // for testing
}

// NewResponder builds the default agent pipeline from the config: the
// provider client, the tool registry and the agent on top of them.
func NewResponder(cfg *config.Config) (channel.Responder, error) {
	client, err := llm.NewGroqClient(cfg)
	if err != nil {
		return nil, err
	}
	registry := buildRegistry(cfg.Tools)
	return agent.New(client, registry, cfg.Agent), nil
}

func buildRegistry(cfg config.ToolsConfig) *tools.Registry {
	var ts []tools.Tool
	if cfg.FinnhubAPIKey != "" {
		ts = append(ts, tools.NewFinanceTool(cfg))
	}
	if cfg.GoogleAPIKey != "" && cfg.GoogleCSEID != "" {
		ts = append(ts, tools.NewWebSearchTool(cfg))
	}
	registry := tools.NewRegistry(ts...)
	if registry.Len() == 0 {
		log.Printf("[gateway] no tools configured, agent will answer from model knowledge only")
	}
	return registry
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	g.bus = bus.NewMessageBus(cfg.Gateway.BufSize)

	responder := opts.Responder
	if responder == nil {
		var err error
		responder, err = NewResponder(cfg)
		if err != nil {
			return nil, err
		}
	}
	g.responder = responder

	g.signalChan = opts.SignalChan

	runPrompt := func(ctx context.Context, prompt string) (string, error) {
		result, err := g.responder.Respond(ctx, prompt)
		if err != nil {
			return "", err
		}
		return result.FinalResponse, nil
	}
	g.sched = schedule.NewService(cfg.Schedules, runPrompt, g.bus)

	chMgr, err := channel.NewManager(cfg.Channels, cfg.Gateway, g.bus, g.responder)
	if err != nil {
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	return g, nil
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	if err := g.sched.Start(ctx); err != nil {
		log.Printf("[gateway] schedule start warning: %v", err)
	}

	go g.processLoop(ctx)

	log.Printf("[gateway] running on %s:%d", g.cfg.Gateway.Host, g.cfg.Gateway.Port)

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			var response string
			result, err := g.responder.Respond(ctx, msg.Content)
			if err != nil {
				log.Printf("[gateway] agent error: %v", err)
				response = "Sorry, I encountered an error processing your message."
			} else {
				response = result.FinalResponse
			}

			if response != "" {
				g.bus.Outbound <- bus.OutboundMessage{
					Channel: msg.Channel,
					ChatID:  msg.ChatID,
					Content: response,
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) Shutdown() error {
	g.sched.Stop()
	_ = g.channels.StopAll()
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

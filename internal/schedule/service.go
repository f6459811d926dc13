// Package schedule runs prompts declared in the config on a cron timetable.
// Each firing feeds the prompt through the agent and, when the entry names a
// channel, delivers the response over the message bus.
package schedule

import (
	"context"
	"log"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/lakestreetlabs/finquill/internal/bus"
	"github.com/lakestreetlabs/finquill/internal/config"
)

// Runner produces a response for a scheduled prompt.
type Runner func(ctx context.Context, prompt string) (string, error)

type Service struct {
	entries []config.ScheduleConfig
	runner  Runner
	bus     *bus.MessageBus

	mu     sync.Mutex
	cron   *rcron.Cron
	cancel context.CancelFunc
}

func NewService(entries []config.ScheduleConfig, runner Runner, b *bus.MessageBus) *Service {
	return &Service{
		entries: entries,
		runner:  runner,
		bus:     b,
	}
}

func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.cron = rcron.New(rcron.WithSeconds())

	registered := 0
	for _, entry := range s.entries {
		e := entry
		_, err := s.cron.AddFunc(e.Spec, func() {
			s.execute(runCtx, e)
		})
		if err != nil {
			log.Printf("[schedule] failed to register %s (%s): %v", e.Name, e.Spec, err)
			continue
		}
		registered++
	}

	s.cron.Start()
	s.mu.Unlock()

	log.Printf("[schedule] started with %d entries", registered)
	return nil
}

func (s *Service) execute(ctx context.Context, entry config.ScheduleConfig) {
	log.Printf("[schedule] running %s", entry.Name)

	result, err := s.runner(ctx, entry.Prompt)
	if err != nil {
		log.Printf("[schedule] %s error: %v", entry.Name, err)
		return
	}
	log.Printf("[schedule] %s result: %s", entry.Name, truncate(result, 100))

	if entry.Channel == "" || entry.ChatID == "" {
		return
	}
	select {
	case s.bus.Outbound <- bus.OutboundMessage{
		Channel: entry.Channel,
		ChatID:  entry.ChatID,
		Content: result,
	}:
	case <-ctx.Done():
	}
}

func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	cron := s.cron
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cron != nil {
		stopCtx := cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			log.Printf("[schedule] stop timeout waiting for running entries")
		}
	}
	log.Printf("[schedule] stopped")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

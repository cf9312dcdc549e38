package leads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/events"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

// FallbackEmail is reported for pushed leads without an email attribute.
const FallbackEmail = "new@lead.com"

// PullResult is what a pull reports back to the pipeline.
type PullResult struct {
	Leads    []models.Lead
	Message  string
	Degraded bool
	Source   string
}

// Syncer runs pulls and pushes against a primary backend. When the primary
// fails it answers from the local mock store instead, so the numbers it
// reports always come from real state.
type Syncer struct {
	primary     Store
	primaryName string
	local       *MemoryStore
	events      events.Publisher
	timeout     time.Duration
	logger      *zap.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

func WithEvents(p events.Publisher) Option { return func(s *Syncer) { s.events = p } }
func WithTimeout(d time.Duration) Option { return func(s *Syncer) { s.timeout = d } }
func WithLogger(l *zap.Logger) Option { return func(s *Syncer) { s.logger = l } }
func WithPrimaryName(name string) Option { return func(s *Syncer) { s.primaryName = name } }

// NewSyncer wraps primary. A nil primary means the local store is the CRM.
func NewSyncer(primary Store, local *MemoryStore, opts ...Option) *Syncer {
	if local == nil {
		local = NewMemoryStore(nil)
	}
	s := &Syncer{
		primary:     primary,
		primaryName: "remote",
		local:       local,
		events:      events.Nop{},
		logger:      zap.NewNop(),
	}
	if primary == nil {
		s.primary = local
		s.primaryName = "mock"
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Syncer) remote() bool {
	ms, ok := s.primary.(*MemoryStore)
	return !ok || ms != s.local
}

func (s *Syncer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Pull never fails. On a backend error the local store answers and the
// message says so.
func (s *Syncer) Pull(ctx context.Context, filter string) PullResult {
	callCtx, cancel := s.withTimeout(ctx)
	leads, err := s.primary.Pull(callCtx, filter)
	cancel()
	if err == nil {
		s.logger.Debug("Pulled leads", zap.String("backend", s.primaryName), zap.Int("count", len(leads)))
		return PullResult{
			Leads:   leads,
			Message: summarize(leads),
			Source:  s.primaryName,
		}
	}

	s.logger.Warn("CRM pull failed, falling back to mock store",
		zap.String("backend", s.primaryName), zap.Error(err))
	local, _ := s.local.Pull(ctx, filter)
	return PullResult{
		Leads:    local,
		Message:  fmt.Sprintf("CRM error (%v) - fallback mock: Pulled %d leads.", err, len(local)),
		Degraded: true,
		Source:   "mock",
	}
}

// Push never fails. It returns a confirmation carrying the lead's email.
func (s *Syncer) Push(ctx context.Context, lead models.Lead) string {
	email := lead.Email()
	if email == "" {
		email = FallbackEmail
	}

	callCtx, cancel := s.withTimeout(ctx)
	err := s.primary.Push(callCtx, lead)
	cancel()
	if err != nil {
		s.logger.Warn("CRM push failed, keeping lead locally",
			zap.String("backend", s.primaryName), zap.Error(err))
		_ = s.local.Push(ctx, lead)
		return fmt.Sprintf("CRM error (%v) - fallback mock: Lead pushed locally: %s", err, email)
	}

	if s.remote() {
		// Mirror remote pushes so a later fallback pull still sees them.
		_ = s.local.Push(ctx, lead)
	}
	if err := s.events.Publish(ctx, events.LeadPushed, lead); err != nil {
		s.logger.Warn("Failed to publish lead event", zap.Error(err))
	}
	s.logger.Info("Lead pushed", zap.String("backend", s.primaryName), zap.String("email", email))
	return fmt.Sprintf("Lead pushed: %s", email)
}

func summarize(leads []models.Lead) string {
	if len(leads) == 0 {
		return "Pulled 0 leads: None"
	}
	n := len(leads)
	if n > 2 {
		n = 2
	}
	preview := make([]string, n)
	for i := 0; i < n; i++ {
		preview[i] = leads[i].String()
	}
	return fmt.Sprintf("Pulled %d leads: [%s]", len(leads), strings.Join(preview, ", "))
}

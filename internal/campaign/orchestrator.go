// Package campaign sequences a single campaign run: pull leads, generate
// copy, render the page, deploy it and report.
//
// Every stage absorbs its own failures. The orchestrator only moves the run
// forward and collects what each stage produced.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/content"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/events"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/leads"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

// State is a step of the run state machine.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StatePulling    State = "pulling"
	StateGenerating State = "generating"
	StateRendering  State = "rendering"
	StateDeploying  State = "deploying"
	StateReporting  State = "reporting"
)

// Stage names used in warnings.
const (
	StageCRM     = "crm"
	StageContent = "content"
	StageRender  = "render"
	StageDeploy  = "deploy"
)

// EmptyBriefStatus is reported when a run is rejected at validation.
const EmptyBriefStatus = "Add a brief!"

// LeadSyncer pulls and pushes leads without ever failing.
type LeadSyncer interface {
	Pull(ctx context.Context, filter string) leads.PullResult
	Push(ctx context.Context, lead models.Lead) string
}

// CopyGenerator produces page copy and metadata for a brief.
type CopyGenerator interface {
	Generate(ctx context.Context, brief models.Brief) (content.Result, error)
	Fallback(brief models.Brief) models.PageCopy
	Meta(brief models.Brief) models.PageMeta
}

// PageRenderer fills the landing page template.
type PageRenderer interface {
	Render(pc models.PageCopy, meta models.PageMeta) (models.RenderedPage, error)
}

// Deployer publishes a rendered page for a brief.
type Deployer interface {
	Deploy(ctx context.Context, html string, brief models.Brief) models.DeploymentResult
}

// Observer is told about every state transition of a run.
type Observer func(runID string, state State)

// Orchestrator runs campaigns one at a time.
type Orchestrator struct {
	mu        sync.Mutex
	leads     LeadSyncer
	generator CopyGenerator
	renderer  PageRenderer
	deployer  Deployer
	events    events.Publisher
	observer  Observer
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithEvents(p events.Publisher) Option { return func(o *Orchestrator) { o.events = p } }
func WithObserver(fn Observer) Option { return func(o *Orchestrator) { o.observer = fn } }
func WithLogger(l *zap.Logger) Option { return func(o *Orchestrator) { o.logger = l } }
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// New wires the stages together.
func New(l LeadSyncer, g CopyGenerator, r PageRenderer, d Deployer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		leads:     l,
		generator: g,
		renderer:  r,
		deployer:  d,
		events:    events.Nop{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type launchEvent struct {
	RunID        string        `json:"run_id"`
	CampaignName string        `json:"campaign_name"`
	Target       models.Target `json:"target"`
	Locator      string        `json:"locator,omitempty"`
	LeadsPulled  int           `json:"leads_pulled"`
	Degraded     bool          `json:"degraded"`
	Warnings     int           `json:"warnings"`
	LaunchedAt   time.Time     `json:"launched_at"`
}

// Run executes one campaign and always returns a completed report. An empty
// goal is rejected before any stage runs.
func (o *Orchestrator) Run(ctx context.Context, brief models.Brief) models.Report {
	o.mu.Lock()
	defer o.mu.Unlock()

	run := &models.CampaignRun{
		ID:        uuid.New().String(),
		Brief:     brief,
		StartedAt: o.now(),
	}
	log := o.logger.With(zap.String("run_id", run.ID))
	defer o.enter(run.ID, StateIdle)

	o.enter(run.ID, StateValidating)
	if strings.TrimSpace(brief.Goal) == "" {
		log.Info("Rejected campaign with empty brief")
		o.enter(run.ID, StateReporting)
		run.FinishedAt = o.now()
		return models.Report{
			RunID:    run.ID,
			Status:   EmptyBriefStatus,
			Duration: run.FinishedAt.Sub(run.StartedAt),
		}
	}
	run.Brief.Goal = strings.TrimSpace(brief.Goal)
	if run.Brief.Mode == "" {
		run.Brief.Mode = models.ModeServices
	}
	if run.Brief.Target == "" {
		run.Brief.Target = models.TargetNetlify
	}
	log.Info("Starting campaign",
		zap.String("brief", run.Brief.Goal),
		zap.String("mode", string(run.Brief.Mode)),
		zap.String("target", string(run.Brief.Target)),
		zap.String("filter", run.Brief.Filter))

	o.enter(run.ID, StatePulling)
	o.pull(ctx, run)

	o.enter(run.ID, StateGenerating)
	o.generate(ctx, run, log)

	o.enter(run.ID, StateRendering)
	rendered := o.render(run, log)

	o.enter(run.ID, StateDeploying)
	if rendered {
		run.Deployment = o.deployer.Deploy(ctx, run.Page.HTML, run.Brief)
		if run.Deployment.Degraded {
			run.Warn(StageDeploy, run.Deployment.Status)
		}
	} else {
		run.Deployment = models.DeploymentResult{
			Target:   run.Brief.Target,
			Status:   "Deployment skipped - page could not be rendered.",
			Degraded: true,
		}
		run.Warn(StageDeploy, run.Deployment.Status)
	}

	o.enter(run.ID, StateReporting)
	run.FinishedAt = o.now()
	report := buildReport(run)
	o.announce(ctx, run, log)
	log.Info("Campaign finished",
		zap.Int("leads", report.LeadsPulled),
		zap.Int("warnings", len(report.Warnings)),
		zap.String("locator", report.Locator),
		zap.Duration("duration", report.Duration))
	return report
}

func (o *Orchestrator) enter(runID string, s State) {
	if o.observer != nil {
		o.observer(runID, s)
	}
}

func (o *Orchestrator) pull(ctx context.Context, run *models.CampaignRun) {
	if len(run.Brief.Lead) > 0 {
		run.PushNote = o.leads.Push(ctx, run.Brief.Lead)
	}
	res := o.leads.Pull(ctx, run.Brief.Filter)
	run.Leads = res.Leads
	run.LeadsNote = res.Message
	if res.Degraded {
		run.Warn(StageCRM, res.Message)
	}
}

func (o *Orchestrator) generate(ctx context.Context, run *models.CampaignRun, log *zap.Logger) {
	res, err := o.generator.Generate(ctx, run.Brief)
	if err != nil {
		// Validation already rejected empty briefs, so this is unexpected.
		log.Error("Content generation failed", zap.Error(err))
		run.Copy = o.generator.Fallback(run.Brief)
		run.Meta = o.generator.Meta(run.Brief)
		run.Warn(StageContent, fmt.Sprintf("Content generation failed (%v) - using defaults.", err))
		return
	}
	run.Copy = res.Copy
	run.Meta = res.Meta
	if res.Warning != "" {
		run.Warn(StageContent, res.Warning)
	}
}

func (o *Orchestrator) render(run *models.CampaignRun, log *zap.Logger) bool {
	page, err := o.renderer.Render(run.Copy, run.Meta)
	if err == nil {
		run.Page = page
		return true
	}

	log.Warn("Render failed, retrying with default copy", zap.Error(err))
	run.Warn(StageRender, fmt.Sprintf("Render failed (%v) - using default copy.", err))
	run.Copy = o.generator.Fallback(run.Brief)
	page, err = o.renderer.Render(run.Copy, run.Meta)
	if err != nil {
		log.Error("Render of default copy failed", zap.Error(err))
		run.Warn(StageRender, fmt.Sprintf("Render of default copy failed (%v).", err))
		return false
	}
	run.Page = page
	return true
}

func (o *Orchestrator) announce(ctx context.Context, run *models.CampaignRun, log *zap.Logger) {
	err := o.events.Publish(ctx, events.CampaignLaunched, launchEvent{
		RunID:        run.ID,
		CampaignName: run.Meta.CampaignName,
		Target:       run.Deployment.Target,
		Locator:      run.Deployment.Locator,
		LeadsPulled:  len(run.Leads),
		Degraded:     run.Deployment.Degraded,
		Warnings:     len(run.Warnings),
		LaunchedAt:   run.FinishedAt,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("Failed to publish campaign event", zap.Error(err))
	}
}

func buildReport(run *models.CampaignRun) models.Report {
	status := fmt.Sprintf("Campaign launched! %s Pulled %d leads.", run.Deployment.Status, len(run.Leads))
	if n := len(run.Warnings); n == 1 {
		status += " (1 warning)"
	} else if n > 1 {
		status += fmt.Sprintf(" (%d warnings)", n)
	}
	return models.Report{
		RunID:        run.ID,
		OK:           true,
		Status:       status,
		HTML:         run.Page.HTML,
		LeadsPulled:  len(run.Leads),
		LeadsNote:    run.LeadsNote,
		PushNote:     run.PushNote,
		Locator:      run.Deployment.Locator,
		Deployment:   run.Deployment,
		CampaignName: run.Meta.CampaignName,
		Warnings:     run.Warnings,
		Duration:     run.FinishedAt.Sub(run.StartedAt),
	}
}

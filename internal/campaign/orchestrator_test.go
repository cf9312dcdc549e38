package campaign

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/config"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/content"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/deploy"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/events"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/leads"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/render"
)

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

type spySyncer struct {
	pulls  []string
	pushes []models.Lead
	result leads.PullResult
}

func (s *spySyncer) Pull(_ context.Context, filter string) leads.PullResult {
	s.pulls = append(s.pulls, filter)
	return s.result
}

func (s *spySyncer) Push(_ context.Context, lead models.Lead) string {
	s.pushes = append(s.pushes, lead)
	return "Lead pushed: " + lead.Email()
}

type spyDeployer struct {
	calls int
	html  string
}

func (d *spyDeployer) Deploy(_ context.Context, html string, brief models.Brief) models.DeploymentResult {
	d.calls++
	d.html = html
	return models.DeploymentResult{Target: brief.Target, Locator: "https://x.test/" + deploy.Slug(brief.Goal), Status: "Deployed."}
}

type failingRenderer struct {
	failures int
	calls    int
}

func (r *failingRenderer) Render(pc models.PageCopy, meta models.PageMeta) (models.RenderedPage, error) {
	r.calls++
	if r.calls <= r.failures {
		return models.RenderedPage{}, render.ErrMissingValue
	}
	return render.Render(pc, meta)
}

type stubModel struct{ response string }

func (s stubModel) Complete(context.Context, string) (string, error) { return s.response, nil }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.CustomTemplates = map[string]config.Template{
		"services": {Features: []string{"Whitening", "Aligners", "Checkups"}, CTA: "Book Now"},
		"products": {Features: []string{"Brush Kit"}, CTA: "Shop Now"},
	}
	return cfg
}

func newGenerator(t *testing.T, m content.Model) *content.Generator {
	return content.NewGenerator(m, testConfig(),
		content.WithClock(func() time.Time { return fixedNow }),
		content.WithLogger(zaptest.NewLogger(t)))
}

func TestRun_EndToEndDentalScenario(t *testing.T) {
	cfg := testConfig()
	store := leads.NewMemoryStore([]models.Lead{{"email": "a@x.com", "name": "dental patient"}})
	rec := &events.Recorder{}
	o := New(
		leads.NewSyncer(nil, store),
		newGenerator(t, nil),
		render.Default,
		deploy.NewAdapter(cfg),
		WithEvents(rec),
		WithLogger(zaptest.NewLogger(t)),
		WithClock(func() time.Time { return fixedNow }),
	)

	report := o.Run(context.Background(), models.Brief{
		Goal:   "Dental Glow Up",
		Filter: "dental",
		Mode:   models.ModeServices,
		Target: models.TargetNetlify,
	})

	require.True(t, report.OK)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.LeadsPulled)
	assert.Contains(t, report.LeadsNote, "a@x.com")
	assert.Contains(t, report.HTML, `<h1 class="display-4 fw-bold">Dental Service</h1>`)
	assert.Contains(t, report.HTML, `<p class="lead">Dental Glow Up</p>`)
	assert.Equal(t, 3, strings.Count(report.HTML, `class="card feature-card`))
	assert.Contains(t, report.HTML, ">Book Now</a>")
	assert.Contains(t, report.Locator, "dental-glow-up")
	assert.Contains(t, report.Deployment.Status, "radiant_launch")
	assert.Equal(t, "services_launch_20261017", report.CampaignName)
	assert.True(t, strings.HasPrefix(report.Status, "Campaign launched! Deployed to Netlify:"))
	assert.Contains(t, report.Status, "Pulled 1 leads.")

	// Only the missing model degrades.
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, StageContent, report.Warnings[0].Stage)
	assert.Contains(t, report.Status, "(1 warning)")

	assert.Equal(t, []string{events.CampaignLaunched}, rec.Keys())
}

func TestRun_ModelCopyUsed(t *testing.T) {
	m := stubModel{response: `{"description": "Glow all fall", "features": ["Fast", "Gentle", "Bright"], "cta_text": "Reserve"}`}
	o := New(leads.NewSyncer(nil, nil), newGenerator(t, m), render.Default, deploy.NewAdapter(testConfig()))

	report := o.Run(context.Background(), models.Brief{Goal: "Fall Glow"})

	assert.Empty(t, report.Warnings)
	assert.Contains(t, report.HTML, "Glow all fall")
	assert.Contains(t, report.HTML, "Empower your services with gentle.")
	assert.NotContains(t, report.Status, "warning")
}

func TestRun_EmptyBriefRunsNoStage(t *testing.T) {
	for _, goal := range []string{"", "   ", "\n\t"} {
		syncer := &spySyncer{}
		deployer := &spyDeployer{}
		rec := &events.Recorder{}
		var states []State
		o := New(syncer, newGenerator(t, nil), render.Default, deployer,
			WithEvents(rec),
			WithObserver(func(_ string, s State) { states = append(states, s) }))

		report := o.Run(context.Background(), models.Brief{Goal: goal, Lead: models.Lead{"email": "x@y.z"}})

		assert.False(t, report.OK)
		assert.Equal(t, EmptyBriefStatus, report.Status)
		assert.Empty(t, report.HTML)
		assert.Empty(t, syncer.pulls)
		assert.Empty(t, syncer.pushes)
		assert.Zero(t, deployer.calls)
		assert.Empty(t, rec.Keys())
		assert.Equal(t, []State{StateValidating, StateReporting, StateIdle}, states)
	}
}

func TestRun_StateOrder(t *testing.T) {
	var states []State
	o := New(&spySyncer{}, newGenerator(t, nil), render.Default, &spyDeployer{},
		WithObserver(func(_ string, s State) { states = append(states, s) }))

	o.Run(context.Background(), models.Brief{Goal: "Dental Glow Up"})

	assert.Equal(t, []State{
		StateValidating, StatePulling, StateGenerating, StateRendering,
		StateDeploying, StateReporting, StateIdle,
	}, states)
}

func TestRun_PushesBriefLeadBeforePull(t *testing.T) {
	store := leads.NewMemoryStore(nil)
	o := New(leads.NewSyncer(nil, store), newGenerator(t, nil), render.Default, &spyDeployer{})

	report := o.Run(context.Background(), models.Brief{Goal: "Dental Glow Up", Lead: models.Lead{"email": "new@test.com"}})

	assert.Equal(t, "Lead pushed: new@test.com", report.PushNote)
	assert.Equal(t, 1, report.LeadsPulled)

	all, err := store.Pull(context.Background(), "")
	require.NoError(t, err)
	count := 0
	for _, l := range all {
		if l.Email() == "new@test.com" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRun_CRMDegradationIsReported(t *testing.T) {
	syncer := &spySyncer{result: leads.PullResult{
		Message:  "CRM error (connection refused) - fallback mock: Pulled 0 leads.",
		Degraded: true,
	}}
	o := New(syncer, newGenerator(t, nil), render.Default, &spyDeployer{})

	report := o.Run(context.Background(), models.Brief{Goal: "Dental Glow Up", Filter: "dental"})

	assert.True(t, report.OK)
	assert.Equal(t, []string{"dental"}, syncer.pulls)
	require.NotEmpty(t, report.Warnings)
	assert.Equal(t, StageCRM, report.Warnings[0].Stage)
	assert.Contains(t, report.Status, "Pulled 0 leads.")
}

func TestRun_RenderFailureRetriesWithDefaultCopy(t *testing.T) {
	r := &failingRenderer{failures: 1}
	deployer := &spyDeployer{}
	o := New(&spySyncer{}, newGenerator(t, nil), r, deployer)

	report := o.Run(context.Background(), models.Brief{Goal: "Dental Glow Up"})

	assert.Equal(t, 2, r.calls)
	assert.Equal(t, 1, deployer.calls)
	assert.Contains(t, report.HTML, "Dental Service")
	assert.Contains(t, warningStages(report), StageRender)
}

func TestRun_RenderFailureTwiceSkipsDeployment(t *testing.T) {
	r := &failingRenderer{failures: 2}
	deployer := &spyDeployer{}
	o := New(&spySyncer{}, newGenerator(t, nil), r, deployer)

	report := o.Run(context.Background(), models.Brief{Goal: "Dental Glow Up"})

	assert.True(t, report.OK)
	assert.Zero(t, deployer.calls)
	assert.Empty(t, report.HTML)
	assert.True(t, report.Deployment.Degraded)
	assert.Contains(t, warningStages(report), StageDeploy)
}

func TestRun_DeployDegradationIsReported(t *testing.T) {
	o := New(&spySyncer{}, newGenerator(t, nil), render.Default, deploy.NewAdapter(testConfig()))

	report := o.Run(context.Background(), models.Brief{Goal: "Dental Glow Up", Target: models.Target("ftp")})

	assert.True(t, report.OK)
	assert.NotEmpty(t, report.HTML)
	assert.Contains(t, report.Status, "page available for download")
	assert.Contains(t, warningStages(report), StageDeploy)
}

func TestRun_EventFailureDoesNotFailRun(t *testing.T) {
	o := New(&spySyncer{}, newGenerator(t, nil), render.Default, &spyDeployer{},
		WithEvents(&events.Recorder{Err: errors.New("broker down")}))

	report := o.Run(context.Background(), models.Brief{Goal: "Dental Glow Up"})

	assert.True(t, report.OK)
}

func TestRun_DefaultsModeAndTarget(t *testing.T) {
	deployer := &spyDeployer{}
	o := New(&spySyncer{}, newGenerator(t, nil), render.Default, deployer)

	report := o.Run(context.Background(), models.Brief{Goal: "  Dental Glow Up  "})

	assert.Equal(t, models.TargetNetlify, report.Deployment.Target)
	assert.Equal(t, "https://x.test/dental-glow-up", report.Locator)
	assert.Contains(t, deployer.html, "Empower your services with")
}

func warningStages(r models.Report) []string {
	stages := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		stages[i] = w.Stage
	}
	return stages
}

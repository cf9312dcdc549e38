// Package content turns a campaign brief into landing page copy.
//
// The language model is optional. Whatever it returns is parsed as strict
// JSON against a small schema; anything else, including no model at all,
// yields copy built from the brief and the mode's configured defaults.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/config"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

var (
	ErrModelUnavailable = errors.New("language model unavailable")
	ErrInvalidCopy      = errors.New("invalid page copy")
	ErrEmptyBrief       = errors.New("brief is empty")
)

// Model is a language model taking one prompt and returning raw text.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewModel builds the configured model. It returns ErrModelUnavailable when
// no provider or credentials are configured.
func NewModel(cfg config.LLMConfig, timeout time.Duration) (Model, error) {
	switch cfg.Provider {
	case "gemini":
		c, err := NewGeminiClient(cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "xai", "grok":
		c, err := NewXAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "", "none", "mock":
		return nil, ErrModelUnavailable
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrModelUnavailable, cfg.Provider)
	}
}

// Source tells where a PageCopy came from.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Result is the output of one generation.
type Result struct {
	Copy    models.PageCopy
	Meta    models.PageMeta
	Source  Source
	Warning string
}

// Generator produces PageCopy and the derived page metadata.
type Generator struct {
	model     Model
	templates map[models.Mode]config.Template
	override  string
	heroImage string
	ctaURL    string
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

func WithClock(now func() time.Time) Option { return func(g *Generator) { g.now = now } }
func WithLogger(l *zap.Logger) Option { return func(g *Generator) { g.logger = l } }
func WithTimeout(d time.Duration) Option { return func(g *Generator) { g.timeout = d } }

// NewGenerator creates a generator. model may be nil.
func NewGenerator(model Model, cfg *config.Config, opts ...Option) *Generator {
	g := &Generator{
		model: model,
		templates: map[models.Mode]config.Template{
			models.ModeServices: cfg.TemplateFor(models.ModeServices),
			models.ModeProducts: cfg.TemplateFor(models.ModeProducts),
		},
		override:  cfg.PromptOverride,
		heroImage: cfg.Content.HeroImage,
		ctaURL:    cfg.Content.CTAURL,
		timeout:   cfg.LLMTimeout(),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	if g.ctaURL == "" {
		g.ctaURL = config.DefaultCTAURL
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HasModel reports whether a language model is configured.
func (g *Generator) HasModel() bool {
	return g.model != nil
}

// Generate produces copy for brief. Only an empty brief is an error; model
// and parse failures fall back to defaults and are reported in Warning.
func (g *Generator) Generate(ctx context.Context, brief models.Brief) (Result, error) {
	if strings.TrimSpace(brief.Goal) == "" {
		return Result{}, ErrEmptyBrief
	}

	res := Result{Meta: g.Meta(brief)}

	if g.model == nil {
		res.Copy = g.Fallback(brief)
		res.Source = SourceFallback
		res.Warning = "Language model unavailable - using defaults."
		g.logger.Info("No language model configured, using default copy")
		return res, nil
	}

	prompt := BuildPrompt(brief, g.override, g.ctaURL)
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	raw, err := g.model.Complete(callCtx, prompt)
	if err != nil {
		g.logger.Warn("Model call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		res.Copy = g.Fallback(brief)
		res.Source = SourceFallback
		res.Warning = fmt.Sprintf("Model call failed (%v) - using defaults.", err)
		return res, nil
	}

	parsed, err := ParseCopy(raw, g.ctaURL)
	if err != nil {
		g.logger.Warn("Model parse failed", zap.Error(err), zap.Int("response_len", len(raw)))
		res.Copy = g.Fallback(brief)
		res.Source = SourceFallback
		res.Warning = fmt.Sprintf("Model parse failed (%v) - using defaults.", err)
		return res, nil
	}

	g.logger.Debug("Model copy accepted",
		zap.Int("features", len(parsed.Features)), zap.Duration("elapsed", time.Since(start)))
	res.Copy = parsed
	res.Source = SourceModel
	return res, nil
}

// Fallback is the copy used whenever the model path fails.
func (g *Generator) Fallback(brief models.Brief) models.PageCopy {
	tpl := g.templateFor(brief.Mode)
	return models.PageCopy{
		Description: brief.Goal,
		Features:    append([]string(nil), tpl.Features...),
		CTAText:     tpl.CTA,
		CTAURL:      g.ctaURL,
	}
}

func (g *Generator) templateFor(mode models.Mode) config.Template {
	if mode == "" {
		mode = models.ModeServices
	}
	tpl, ok := g.templates[mode]
	if !ok || len(tpl.Features) == 0 {
		tpl = config.Template{Features: config.DefaultFeatures, CTA: config.DefaultCTA}
	}
	if tpl.CTA == "" {
		tpl.CTA = config.DefaultCTA
	}
	return tpl
}

// Meta derives the fields that come from the brief rather than the model.
func (g *Generator) Meta(brief models.Brief) models.PageMeta {
	now := g.now()
	mode := brief.Mode
	if mode == "" {
		mode = models.ModeServices
	}
	return models.PageMeta{
		ServiceName:  ServiceName(brief.Goal),
		HeroImage:    g.heroImage,
		CampaignName: fmt.Sprintf("%s_launch_%s", mode, now.Format("20060102")),
		Mode:         mode,
		Year:         now.Year(),
	}
}

// ServiceName is the first word of goal, title-cased, plus " Service".
func ServiceName(goal string) string {
	fields := strings.Fields(goal)
	if len(fields) == 0 {
		return "Campaign Service"
	}
	// Casers carry state, so one per call.
	return cases.Title(language.English).String(fields[0]) + " Service"
}

// BuildPrompt assembles the instruction sent to the model.
func BuildPrompt(brief models.Brief, override, ctaURL string) string {
	audience := strings.TrimSpace(brief.Filter)
	if audience == "" {
		audience = "general"
	}
	var b strings.Builder
	b.WriteString("You are an expert marketing copywriter for small businesses. ")
	b.WriteString("Write landing page copy for the campaign below.\n\n")
	fmt.Fprintf(&b, "Brief: %s\n", strings.TrimSpace(brief.Goal))
	fmt.Fprintf(&b, "Audience: %s\n", audience)
	fmt.Fprintf(&b, "Mode: %s\n", brief.Mode.Label())
	if o := strings.TrimSpace(override); o != "" {
		b.WriteString(o)
		b.WriteString("\n")
	}
	b.WriteString("\nGenerate: a description, exactly 3 short feature phrases, and a call-to-action.\n")
	b.WriteString("Respond with ONLY a JSON object, no markdown, in this shape:\n")
	fmt.Fprintf(&b, `{"description": "...", "features": ["...", "...", "..."], "cta_text": "...", "cta_url": %q}`, ctaURL)
	return b.String()
}

type copyPayload struct {
	Description *string  `json:"description"`
	Features    []string `json:"features"`
	CTAText     *string  `json:"cta_text"`
	CTAURL      *string  `json:"cta_url"`
}

// ParseCopy extracts a PageCopy from raw model output. Code fences and
// surrounding prose are tolerated; the object itself must be valid JSON with
// a non-empty description, at least one non-empty feature and a cta_text.
// cta_url is optional and defaults to defaultCTAURL.
func ParseCopy(raw, defaultCTAURL string) (models.PageCopy, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return models.PageCopy{}, err
	}

	var p copyPayload
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return models.PageCopy{}, fmt.Errorf("%w: %v", ErrInvalidCopy, err)
	}

	if p.Description == nil || strings.TrimSpace(*p.Description) == "" {
		return models.PageCopy{}, fmt.Errorf("%w: missing description", ErrInvalidCopy)
	}
	if p.CTAText == nil || strings.TrimSpace(*p.CTAText) == "" {
		return models.PageCopy{}, fmt.Errorf("%w: missing cta_text", ErrInvalidCopy)
	}
	if len(p.Features) == 0 {
		return models.PageCopy{}, fmt.Errorf("%w: missing features", ErrInvalidCopy)
	}
	features := make([]string, 0, len(p.Features))
	for i, f := range p.Features {
		f = strings.TrimSpace(f)
		if f == "" {
			return models.PageCopy{}, fmt.Errorf("%w: feature %d is empty", ErrInvalidCopy, i)
		}
		features = append(features, f)
	}

	ctaURL := defaultCTAURL
	if p.CTAURL != nil && strings.TrimSpace(*p.CTAURL) != "" {
		ctaURL = strings.TrimSpace(*p.CTAURL)
	}

	return models.PageCopy{
		Description: strings.TrimSpace(*p.Description),
		Features:    features,
		CTAText:     strings.TrimSpace(*p.CTAText),
		CTAURL:      ctaURL,
	}, nil
}

func extractObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in model output", ErrInvalidCopy)
	}
	return s[start : end+1], nil
}

package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/config"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

type stubModel struct {
	response string
	err      error
	prompts  []string
}

func (s *stubModel) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

type blockingModel struct{}

func (blockingModel) Complete(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.CustomTemplates = map[string]config.Template{
		"services": {Features: []string{"Whitening", "Aligners"}, CTA: "Book Now"},
		"products": {Features: []string{"Brush Kit"}, CTA: "Shop Now"},
	}
	cfg.PromptOverride = "Test override"
	return cfg
}

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newTestGenerator(t *testing.T, m Model) *Generator {
	return NewGenerator(m, testConfig(),
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(zaptest.NewLogger(t)),
	)
}

func TestGenerate_ModelOutputAccepted(t *testing.T) {
	m := &stubModel{response: `{"description": "Test desc", "features": ["Test 1"], "cta_text": "Test CTA"}`}
	g := newTestGenerator(t, m)

	res, err := g.Generate(context.Background(), models.Brief{Goal: "Test brief", Mode: models.ModeServices})

	require.NoError(t, err)
	assert.Equal(t, SourceModel, res.Source)
	assert.Empty(t, res.Warning)
	assert.Equal(t, models.PageCopy{
		Description: "Test desc",
		Features:    []string{"Test 1"},
		CTAText:     "Test CTA",
		CTAURL:      config.DefaultCTAURL,
	}, res.Copy)
	assert.Equal(t, "Test Service", res.Meta.ServiceName)
	require.Len(t, m.prompts, 1)
}

func TestGenerate_MalformedOutputFallsBack(t *testing.T) {
	outputs := []string{
		"Sure! Here is some copy for you.",
		"{'description': 'python dict', 'features': ['a'], 'cta_text': 'b'}",
		`{"description": "no features", "cta_text": "Go"}`,
		`{"description": "", "features": ["a"], "cta_text": "Go"}`,
		`{"description": "x", "features": [], "cta_text": "Go"}`,
		`{"description": "x", "features": [1, 2, 3], "cta_text": "Go"}`,
		`{"description": "x", "features": ["a", "  "], "cta_text": "Go"}`,
		`{"description": "x", "features": ["a"]}`,
		`{"description": "x", "features": ["a"], "cta_text": "Go"`,
		"",
	}

	for _, out := range outputs {
		t.Run(out, func(t *testing.T) {
			g := newTestGenerator(t, &stubModel{response: out})

			res, err := g.Generate(context.Background(), models.Brief{Goal: "Dental Glow Up", Mode: models.ModeServices})

			require.NoError(t, err)
			assert.Equal(t, SourceFallback, res.Source)
			assert.Contains(t, res.Warning, "parse failed")
			assert.Equal(t, "Dental Glow Up", res.Copy.Description)
			assert.Equal(t, []string{"Whitening", "Aligners"}, res.Copy.Features)
			assert.Equal(t, "Book Now", res.Copy.CTAText)
		})
	}
}

func TestGenerate_ModelErrorFallsBack(t *testing.T) {
	g := newTestGenerator(t, &stubModel{err: errors.New("503 overloaded")})

	res, err := g.Generate(context.Background(), models.Brief{Goal: "Smile Kit", Mode: models.ModeProducts})

	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Contains(t, res.Warning, "503 overloaded")
	assert.Equal(t, []string{"Brush Kit"}, res.Copy.Features)
	assert.Equal(t, "Shop Now", res.Copy.CTAText)
}

func TestGenerate_ModelTimeoutFallsBack(t *testing.T) {
	g := NewGenerator(blockingModel{}, testConfig(), WithTimeout(20*time.Millisecond))

	res, err := g.Generate(context.Background(), models.Brief{Goal: "Dental Glow Up"})

	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Contains(t, res.Warning, context.DeadlineExceeded.Error())
}

func TestGenerate_NoModel(t *testing.T) {
	g := newTestGenerator(t, nil)

	res, err := g.Generate(context.Background(), models.Brief{Goal: "Dental Glow Up", Filter: "dental", Mode: models.ModeServices})

	require.NoError(t, err)
	assert.False(t, g.HasModel())
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, "Dental Glow Up", res.Copy.Description)
	assert.Equal(t, []string{"Whitening", "Aligners"}, res.Copy.Features)
	assert.Equal(t, "Book Now", res.Copy.CTAText)
	assert.Equal(t, config.DefaultCTAURL, res.Copy.CTAURL)
}

func TestGenerate_EmptyBrief(t *testing.T) {
	m := &stubModel{}
	g := newTestGenerator(t, m)

	_, err := g.Generate(context.Background(), models.Brief{Goal: "   "})

	assert.ErrorIs(t, err, ErrEmptyBrief)
	assert.Empty(t, m.prompts)
}

func TestMeta(t *testing.T) {
	g := newTestGenerator(t, nil)

	meta := g.Meta(models.Brief{Goal: "dental glow up", Mode: models.ModeProducts})

	assert.Equal(t, "Dental Service", meta.ServiceName)
	assert.Equal(t, "products_launch_20261017", meta.CampaignName)
	assert.Equal(t, 2026, meta.Year)
	assert.Equal(t, config.DefaultHeroImage, meta.HeroImage)
	assert.Equal(t, models.ModeProducts, meta.Mode)
}

func TestServiceName(t *testing.T) {
	tests := map[string]string{
		"Dental Glow Up":   "Dental Service",
		"DENTAL":           "Dental Service",
		"  whitening  now": "Whitening Service",
		"":                 "Campaign Service",
	}
	for in, want := range tests {
		assert.Equal(t, want, ServiceName(in), "input %q", in)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(models.Brief{Goal: "Dental Glow Up", Mode: models.ModeProducts}, "Test override", "https://x.test/book")

	assert.Contains(t, p, "Brief: Dental Glow Up")
	assert.Contains(t, p, "Audience: general")
	assert.Contains(t, p, "Mode: Products")
	assert.Contains(t, p, "Test override")
	assert.Contains(t, p, "exactly 3")
	assert.Contains(t, p, `"cta_url": "https://x.test/book"`)

	p = BuildPrompt(models.Brief{Goal: "x", Filter: "dental"}, "", "")
	assert.Contains(t, p, "Audience: dental")
}

func TestParseCopy(t *testing.T) {
	t.Run("code fence", func(t *testing.T) {
		raw := "```json\n{\"description\": \"D\", \"features\": [\"A\", \"B\", \"C\"], \"cta_text\": \"Go\", \"cta_url\": \"https://c.test\"}\n```"

		got, err := ParseCopy(raw, "https://default.test")

		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, got.Features)
		assert.Equal(t, "https://c.test", got.CTAURL)
	})

	t.Run("surrounding prose", func(t *testing.T) {
		raw := `Here you go: {"description": "D", "features": ["A"], "cta_text": "Go", "extra": true} Enjoy!`

		got, err := ParseCopy(raw, "https://default.test")

		require.NoError(t, err)
		assert.Equal(t, "D", got.Description)
		assert.Equal(t, "https://default.test", got.CTAURL)
	})

	t.Run("errors wrap ErrInvalidCopy", func(t *testing.T) {
		_, err := ParseCopy("nope", "")
		assert.ErrorIs(t, err, ErrInvalidCopy)

		_, err = ParseCopy(`{"description": 5}`, "")
		assert.ErrorIs(t, err, ErrInvalidCopy)
	})
}

func TestNewModel(t *testing.T) {
	_, err := NewModel(config.LLMConfig{Provider: "none"}, time.Second)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, err = NewModel(config.LLMConfig{Provider: "gemini"}, time.Second)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, err = NewModel(config.LLMConfig{Provider: "xai"}, time.Second)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, err = NewModel(config.LLMConfig{Provider: "llama"}, time.Second)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	m, err := NewModel(config.LLMConfig{Provider: "xai", APIKey: "k"}, time.Second)
	require.NoError(t, err)
	assert.IsType(t, &XAIClient{}, m)
}

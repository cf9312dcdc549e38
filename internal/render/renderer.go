// Package render fills the landing page template with generated page copy.
package render

import (
	_ "embed"
	"errors"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

//go:embed page.html
var pageTemplate string

// ErrMissingValue is returned when a placeholder would be left unfilled.
var ErrMissingValue = errors.New("missing template value")

var placeholderRe = regexp.MustCompile(`\$\{([a-z_]+)\}`)

// Renderer substitutes ${name} placeholders in a fixed HTML template.
type Renderer struct {
	template     string
	placeholders []string
}

// New returns a Renderer over tpl. An empty tpl selects the built-in page.
func New(tpl string) *Renderer {
	if tpl == "" {
		tpl = pageTemplate
	}
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(tpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return &Renderer{template: tpl, placeholders: names}
}

// Default renders the built-in landing page.
var Default = New("")

// Render is Default.Render.
func Render(pc models.PageCopy, meta models.PageMeta) (models.RenderedPage, error) {
	return Default.Render(pc, meta)
}

// Render produces the page. It is pure: the same copy and meta always give
// byte-identical HTML.
func (r *Renderer) Render(pc models.PageCopy, meta models.PageMeta) (models.RenderedPage, error) {
	values, err := buildValues(pc, meta)
	if err != nil {
		return models.RenderedPage{}, err
	}

	pairs := make([]string, 0, 2*len(r.placeholders))
	for _, name := range r.placeholders {
		v, ok := values[name]
		if !ok {
			return models.RenderedPage{}, fmt.Errorf("%w: no value for placeholder %s", ErrMissingValue, name)
		}
		pairs = append(pairs, "${"+name+"}", v)
	}

	return models.RenderedPage{
		HTML:         strings.NewReplacer(pairs...).Replace(r.template),
		CampaignName: meta.CampaignName,
	}, nil
}

func buildValues(pc models.PageCopy, meta models.PageMeta) (map[string]string, error) {
	required := []struct {
		name, value string
	}{
		{"service_name", meta.ServiceName},
		{"description", pc.Description},
		{"cta_url", pc.CTAURL},
		{"cta_text", pc.CTAText},
		{"campaign_name", meta.CampaignName},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%w: %s is empty", ErrMissingValue, f.name)
		}
	}
	if len(pc.Features) == 0 {
		return nil, fmt.Errorf("%w: features is empty", ErrMissingValue)
	}
	if meta.Year <= 0 {
		return nil, fmt.Errorf("%w: current_year is not set", ErrMissingValue)
	}

	hero := ""
	if meta.HeroImage != "" {
		hero = fmt.Sprintf(`<img src="%s" alt="Campaign Hero" class="img-fluid mb-3">`, html.EscapeString(meta.HeroImage))
	}

	features, err := featureCards(pc.Features, meta)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"service_name":  html.EscapeString(meta.ServiceName),
		"hero_img_tag":  hero,
		"description":   html.EscapeString(pc.Description),
		"cta_url":       html.EscapeString(pc.CTAURL),
		"cta_text":      html.EscapeString(pc.CTAText),
		"features_html": features,
		"current_year":  strconv.Itoa(meta.Year),
		"campaign_name": html.EscapeString(meta.CampaignName),
	}, nil
}

func featureCards(features []string, meta models.PageMeta) (string, error) {
	mode := meta.Mode
	if mode == "" {
		mode = models.ModeServices
	}
	modeText := html.EscapeString(strings.ToLower(string(mode)))

	var b strings.Builder
	for i, f := range features {
		if strings.TrimSpace(f) == "" {
			return "", fmt.Errorf("%w: feature %d is empty", ErrMissingValue, i)
		}
		name := html.EscapeString(f)
		b.WriteString("            <div class=\"col-md-4 mb-4\">\n")
		b.WriteString("                <div class=\"card feature-card text-center h-100\">\n")
		if meta.HeroImage != "" {
			fmt.Fprintf(&b, "                    <img src=\"%s\" class=\"card-img-top\" alt=\"%s\" style=\"height: 200px; object-fit: cover;\">\n",
				html.EscapeString(meta.HeroImage), name)
		}
		b.WriteString("                    <div class=\"card-body\">\n")
		fmt.Fprintf(&b, "                        <h5 class=\"card-title\">%s</h5>\n", name)
		fmt.Fprintf(&b, "                        <p class=\"card-text\">Empower your %s with %s.</p>\n",
			modeText, html.EscapeString(strings.ToLower(f)))
		b.WriteString("                    </div>\n")
		b.WriteString("                </div>\n")
		b.WriteString("            </div>\n")
	}
	return b.String(), nil
}

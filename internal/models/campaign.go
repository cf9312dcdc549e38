package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Mode selects which template defaults and copy tone a campaign uses.
type Mode string

const (
	ModeServices Mode = "services"
	ModeProducts Mode = "products"
)

// ParseMode accepts plain names as well as the form labels
// ("Services (Now)", "Products (Future)"). Unknown values map to services.
func ParseMode(s string) Mode {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, "("); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	switch s {
	case "products", "product":
		return ModeProducts
	default:
		return ModeServices
	}
}

// Label is the human-facing mode name used in prompts.
func (m Mode) Label() string {
	if m == ModeProducts {
		return "Products"
	}
	return "Services"
}

// Target names a deployment destination.
type Target string

const (
	TargetNetlify   Target = "netlify"
	TargetWordPress Target = "wordpress"
)

// ParseTarget accepts "Netlify", "Netlify (Free)", "WordPress" etc.
// Unknown values map to Netlify.
func ParseTarget(s string) Target {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, "("); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	switch s {
	case "wordpress", "wp":
		return TargetWordPress
	default:
		return TargetNetlify
	}
}

// Label is the display name of the target.
func (t Target) Label() string {
	switch t {
	case TargetWordPress:
		return "WordPress"
	case TargetNetlify:
		return "Netlify"
	default:
		return string(t)
	}
}

// Brief is the operator input for a single campaign run.
type Brief struct {
	Goal   string `json:"brief"`
	Filter string `json:"filter,omitempty"`
	Mode   Mode   `json:"mode"`
	Target Target `json:"target"`

	// Lead, when set, is pushed to the lead store before leads are pulled.
	Lead Lead `json:"lead,omitempty"`
}

// Lead is a structured contact record. Identity is structural.
type Lead map[string]any

// Email returns the lead's email attribute, or "" if absent.
func (l Lead) Email() string {
	if v, ok := l["email"]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// String serializes the lead as JSON with sorted keys and no HTML escaping,
// so "&", "<" and ">" appear literally. Filtering matches against this form.
func (l Lead) String() string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(l)); err != nil {
		return fmt.Sprintf("%v", map[string]any(l))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Clone returns a shallow copy so callers cannot mutate stored records.
func (l Lead) Clone() Lead {
	out := make(Lead, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// PageCopy is the structured marketing copy rendered into a page.
type PageCopy struct {
	Description string   `json:"description"`
	Features    []string `json:"features"`
	CTAText     string   `json:"cta_text"`
	CTAURL      string   `json:"cta_url"`
}

// PageMeta holds the fields derived from the brief rather than the model.
type PageMeta struct {
	ServiceName  string `json:"service_name"`
	HeroImage    string `json:"hero_image,omitempty"`
	CampaignName string `json:"campaign_name"`
	Mode         Mode   `json:"mode"`
	Year         int    `json:"year"`
}

// RenderedPage is a finished HTML document.
type RenderedPage struct {
	HTML         string `json:"html"`
	CampaignName string `json:"campaign_name"`
}

// DeploymentResult is the terminal artifact of a run.
type DeploymentResult struct {
	Target   Target `json:"target"`
	Locator  string `json:"locator"`
	Status   string `json:"status"`
	Degraded bool   `json:"degraded,omitempty"`
}

// StageWarning records a stage that took its fallback path.
type StageWarning struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// CampaignRun binds one brief to everything produced for it.
type CampaignRun struct {
	ID         string
	Brief      Brief
	Leads      []Lead
	LeadsNote  string
	PushNote   string
	Copy       PageCopy
	Meta       PageMeta
	Page       RenderedPage
	Deployment DeploymentResult
	Warnings   []StageWarning
	StartedAt  time.Time
	FinishedAt time.Time
}

// Warn appends a stage warning to the run.
func (r *CampaignRun) Warn(stage, msg string) {
	r.Warnings = append(r.Warnings, StageWarning{Stage: stage, Message: msg})
}

// Report is the consolidated outcome returned to the operator.
type Report struct {
	RunID        string           `json:"run_id,omitempty"`
	OK           bool             `json:"ok"`
	Status       string           `json:"status"`
	HTML         string           `json:"html,omitempty"`
	LeadsPulled  int              `json:"leads_pulled"`
	LeadsNote    string           `json:"leads_note,omitempty"`
	PushNote     string           `json:"push_note,omitempty"`
	Locator      string           `json:"locator,omitempty"`
	Deployment   DeploymentResult `json:"deployment"`
	CampaignName string           `json:"campaign_name,omitempty"`
	Warnings     []StageWarning   `json:"warnings,omitempty"`
	Duration     time.Duration    `json:"duration_ns,omitempty"`
}

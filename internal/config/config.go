// Package config loads the service configuration from config.yaml and the
// environment. Loading never fails: anything missing or malformed falls back
// to built-in defaults and is reported as a warning.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

// Template holds per-mode copy defaults.
type Template struct {
	Features []string `yaml:"features"`
	CTA      string   `yaml:"cta"`
}

type CRMConfig struct {
	Backend     string `yaml:"backend"` // mock, mcp, postgres
	LeadsFile   string `yaml:"leads_file"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Timeout     string `yaml:"timeout"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, xai, none
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

type ContentConfig struct {
	HeroImage string `yaml:"hero_image"`
	CTAURL    string `yaml:"cta_url"`
}

type DeployConfig struct {
	NetlifySite string `yaml:"netlify_site"`
	UTMTag      string `yaml:"utm_tag"`
	Timeout     string `yaml:"timeout"`
}

type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the full service configuration.
type Config struct {
	// EnableMCP and MCPURL are the legacy top-level switches for the remote CRM.
	EnableMCP bool   `yaml:"enable_mcp"`
	MCPURL    string `yaml:"mcp_url"`

	CRM             CRMConfig           `yaml:"crm"`
	CustomTemplates map[string]Template `yaml:"custom_templates"`
	PromptOverride  string              `yaml:"grok_prompt_override"`
	LLM             LLMConfig           `yaml:"llm"`
	Content         ContentConfig       `yaml:"content"`
	Deploy          DeployConfig        `yaml:"deploy"`
	Events          EventsConfig        `yaml:"events"`
	Server          ServerConfig        `yaml:"server"`
	Logging         LoggingConfig       `yaml:"logging"`
}

const (
	DefaultMCPURL    = "http://localhost:8080/mcp/v1"
	DefaultLeadsFile = "mock_crm.json"
	DefaultHeroImage = "https://via.placeholder.com/1200x600?text=Radiant+Glow+Up"
	DefaultCTAURL    = "https://your-site.com/book"
	DefaultCTA       = "Get Started"
	DefaultSite      = "https://your-netlify-site.netlify.app"
	DefaultUTMTag    = "radiant_launch"
	DefaultExchange  = "radiant.events"
	DefaultPort      = "8080"
)

// DefaultFeatures is used when a mode has no configured feature list.
var DefaultFeatures = []string{"Feature 1", "Feature 2", "Feature 3"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MCPURL: DefaultMCPURL,
		CRM: CRMConfig{
			Backend:   "mock",
			LeadsFile: DefaultLeadsFile,
			Timeout:   "10s",
		},
		CustomTemplates: map[string]Template{
			string(models.ModeServices): {Features: append([]string(nil), DefaultFeatures...), CTA: DefaultCTA},
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Timeout:  "30s",
		},
		Content: ContentConfig{
			HeroImage: DefaultHeroImage,
			CTAURL:    DefaultCTAURL,
		},
		Deploy: DeployConfig{
			NetlifySite: DefaultSite,
			UTMTag:      DefaultUTMTag,
			Timeout:     "30s",
		},
		Events: EventsConfig{
			Exchange: DefaultExchange,
		},
		Server: ServerConfig{
			Port: DefaultPort,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path, applies environment overrides and fills gaps with
// defaults. The returned warnings describe everything that was substituted.
func Load(path string) (*Config, []string) {
	var warnings []string
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("Config load failed (%v). Using defaults.", err))
	default:
		parsed := &Config{}
		if err := yaml.Unmarshal(data, parsed); err != nil {
			warnings = append(warnings, fmt.Sprintf("Config load failed (%v). Using defaults.", err))
		} else {
			cfg = parsed
		}
	}

	cfg.applyEnvOverrides()
	warnings = append(warnings, cfg.normalize()...)
	return cfg, warnings
}

// applyEnvOverrides lets credentials and deployment-specific endpoints come
// from the environment (or a .env file loaded by the caller).
func (c *Config) applyEnvOverrides() {
	gemini := os.Getenv("GEMINI_API_KEY")
	var xai string
	for _, key := range []string{"XAI_API_KEY", "GROK_API_KEY"} {
		if xai = os.Getenv(key); xai != "" {
			break
		}
	}
	// A key selects its provider unless another one was chosen explicitly.
	// An explicit gemini provider still yields to an xAI key when no Gemini
	// key is present.
	provider := strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	switch {
	case gemini != "" && (provider == "gemini" || (xai == "" && provider != "xai")):
		c.LLM.Provider = "gemini"
		c.LLM.APIKey = gemini
	case xai != "":
		c.LLM.Provider = "xai"
		c.LLM.APIKey = xai
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("CRM_BACKEND"); v != "" {
		c.CRM.Backend = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.CRM.PostgresDSN = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		c.Events.AMQPURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) normalize() []string {
	var warnings []string
	def := Default()

	c.CRM.Backend = strings.ToLower(strings.TrimSpace(c.CRM.Backend))
	if c.EnableMCP {
		switch c.CRM.Backend {
		case "", "mock", "mcp":
			c.CRM.Backend = "mcp"
		default:
			warnings = append(warnings, fmt.Sprintf("enable_mcp ignored, crm backend is %q", c.CRM.Backend))
		}
	}
	switch c.CRM.Backend {
	case "mock", "mcp", "postgres":
	case "":
		c.CRM.Backend = "mock"
	default:
		warnings = append(warnings, fmt.Sprintf("unknown crm backend %q, using mock", c.CRM.Backend))
		c.CRM.Backend = "mock"
	}
	if c.MCPURL == "" {
		c.MCPURL = def.MCPURL
	}
	if c.CRM.LeadsFile == "" {
		c.CRM.LeadsFile = def.CRM.LeadsFile
	}
	if c.CRM.Backend == "postgres" && c.CRM.PostgresDSN == "" {
		warnings = append(warnings, "crm backend postgres needs postgres_dsn, using mock")
		c.CRM.Backend = "mock"
	}

	if c.CustomTemplates == nil {
		c.CustomTemplates = map[string]Template{}
	}
	for _, mode := range []models.Mode{models.ModeServices, models.ModeProducts} {
		tpl := c.CustomTemplates[string(mode)]
		var features []string
		for _, f := range tpl.Features {
			if strings.TrimSpace(f) != "" {
				features = append(features, f)
			}
		}
		if len(features) == 0 {
			features = append([]string(nil), DefaultFeatures...)
		}
		tpl.Features = features
		if strings.TrimSpace(tpl.CTA) == "" {
			tpl.CTA = DefaultCTA
		}
		c.CustomTemplates[string(mode)] = tpl
	}

	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = def.LLM.Provider
	}

	if c.Content.HeroImage == "" {
		c.Content.HeroImage = def.Content.HeroImage
	}
	if c.Content.CTAURL == "" {
		c.Content.CTAURL = def.Content.CTAURL
	}
	if c.Deploy.NetlifySite == "" {
		c.Deploy.NetlifySite = def.Deploy.NetlifySite
	}
	c.Deploy.NetlifySite = strings.TrimRight(c.Deploy.NetlifySite, "/")
	if c.Deploy.UTMTag == "" {
		c.Deploy.UTMTag = def.Deploy.UTMTag
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = def.Events.Exchange
	}
	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}

	for _, d := range []struct {
		name string
		val  *string
		def  string
	}{
		{"crm.timeout", &c.CRM.Timeout, def.CRM.Timeout},
		{"llm.timeout", &c.LLM.Timeout, def.LLM.Timeout},
		{"deploy.timeout", &c.Deploy.Timeout, def.Deploy.Timeout},
	} {
		if *d.val == "" {
			*d.val = d.def
			continue
		}
		if dur, err := time.ParseDuration(*d.val); err != nil || dur <= 0 {
			warnings = append(warnings, fmt.Sprintf("invalid %s %q, using %s", d.name, *d.val, d.def))
			*d.val = d.def
		}
	}
	return warnings
}

// TemplateFor returns the defaults for mode. It always has at least one feature.
func (c *Config) TemplateFor(mode models.Mode) Template {
	tpl, ok := c.CustomTemplates[string(mode)]
	if !ok || len(tpl.Features) == 0 {
		return Template{Features: append([]string(nil), DefaultFeatures...), CTA: DefaultCTA}
	}
	return tpl
}

// CRMTimeout, LLMTimeout and DeployTimeout parse the normalized durations.
func (c *Config) CRMTimeout() time.Duration { return mustDuration(c.CRM.Timeout, 10*time.Second) }
func (c *Config) LLMTimeout() time.Duration { return mustDuration(c.LLM.Timeout, 30*time.Second) }
func (c *Config) DeployTimeout() time.Duration { return mustDuration(c.Deploy.Timeout, 30*time.Second) }

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Package deploy publishes rendered pages to a hosting target.
//
// The shipped backends are stubs that compute where the page would live.
// Real uploads plug in behind Backend.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/config"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

var (
	ErrUnknownTarget = errors.New("unknown deployment target")
	ErrEmptyPage     = errors.New("nothing to deploy")
)

// Backend publishes one HTML document under slug.
type Backend interface {
	Publish(ctx context.Context, html, slug string) (locator, status string, err error)
}

// NetlifyStub reports the URL the page would be served from.
type NetlifyStub struct {
	Site   string
	UTMTag string
}

func (n NetlifyStub) Publish(ctx context.Context, _ string, slug string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	site := strings.TrimRight(n.Site, "/")
	if site == "" {
		site = config.DefaultSite
	}
	tag := n.UTMTag
	if tag == "" {
		tag = config.DefaultUTMTag
	}
	u := site + "/" + slug
	return u, fmt.Sprintf("Deployed to Netlify: %s (UTM: %s)", u, tag), nil
}

// WordPressStub acknowledges the page without a URL.
type WordPressStub struct{}

func (WordPressStub) Publish(ctx context.Context, _ string, _ string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	const msg = "Deployed to WordPress!"
	return msg, msg, nil
}

// Adapter picks the backend for a brief's target and never fails.
type Adapter struct {
	backends map[models.Target]Backend
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

func WithTimeout(d time.Duration) Option { return func(a *Adapter) { a.timeout = d } }
func WithLogger(l *zap.Logger) Option { return func(a *Adapter) { a.logger = l } }

// WithBackend registers or replaces the backend for target.
func WithBackend(target models.Target, b Backend) Option {
	return func(a *Adapter) { a.backends[target] = b }
}

// NewAdapter wires the stub backends from cfg.
func NewAdapter(cfg *config.Config, opts ...Option) *Adapter {
	a := &Adapter{
		backends: map[models.Target]Backend{
			models.TargetNetlify:   NetlifyStub{Site: cfg.Deploy.NetlifySite, UTMTag: cfg.Deploy.UTMTag},
			models.TargetWordPress: WordPressStub{},
		},
		timeout: cfg.DeployTimeout(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Slug turns a campaign goal into a URL path segment.
func Slug(goal string) string {
	return url.PathEscape(strings.Join(strings.Fields(strings.ToLower(goal)), "-"))
}

// Deploy publishes html for brief. Failures come back as a degraded result
// telling the operator the page is still available for download.
func (a *Adapter) Deploy(ctx context.Context, html string, brief models.Brief) models.DeploymentResult {
	target := brief.Target
	if target == "" {
		target = models.TargetNetlify
	}

	locator, status, err := a.publish(ctx, html, target, Slug(brief.Goal))
	if err != nil {
		a.logger.Warn("Deployment failed", zap.String("target", string(target)), zap.Error(err))
		return models.DeploymentResult{
			Target:   target,
			Status:   fmt.Sprintf("Deployment to %s failed (%v) - page available for download.", target.Label(), err),
			Degraded: true,
		}
	}

	a.logger.Info("Page deployed", zap.String("target", string(target)), zap.String("locator", locator))
	return models.DeploymentResult{Target: target, Locator: locator, Status: status}
}

func (a *Adapter) publish(ctx context.Context, html string, target models.Target, slug string) (string, string, error) {
	backend, ok := a.backends[target]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	if strings.TrimSpace(html) == "" {
		return "", "", ErrEmptyPage
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return backend.Publish(ctx, html, slug)
}

// Package browser drives a Chromium instance through go-rod and exposes it
// as the agent's screen: it captures observations and executes UI actions.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"

	"github.com/deskpilot-core/deskpilot/internal/scopeguard"
)

type Options struct {
	Headless       bool
	UserDataDir    string
	ViewportWidth  int
	ViewportHeight int
	StartURL       string
	// Scope, when set, restricts navigation targets.
	Scope *scopeguard.Policy
}

type Service struct {
	browser *rod.Browser
	scope   *scopeguard.Policy
	log     zerolog.Logger

	mu   sync.Mutex
	page *rod.Page
}

func NewService(ctx context.Context, opts Options, log zerolog.Logger) (*Service, error) {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 1440
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = 900
	}

	launch := launcher.New().
		Leakless(true).
		Headless(opts.Headless)
	if opts.UserDataDir != "" {
		launch = launch.UserDataDir(opts.UserDataDir)
	}
	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	scale := 1.0
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  opts.ViewportWidth,
		Height: opts.ViewportHeight,
		Scale:  &scale,
	}); err != nil {
		log.Warn().Err(err).Msg("set viewport failed")
	}

	s := &Service{browser: b, page: page, scope: opts.Scope, log: log}
	if opts.StartURL != "" {
		if err := s.navigate(ctx, opts.StartURL); err != nil {
			log.Warn().Err(err).Str("url", opts.StartURL).Msg("start navigation failed")
		}
	}
	return s, nil
}

func (s *Service) Close() error {
	if s.browser == nil {
		return nil
	}
	return s.browser.Close()
}

// currentPage returns a live page, reviving the tab if the model closed it.
func (s *Service) currentPage(ctx context.Context) (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		if _, err := s.page.Context(ctx).Info(); err == nil {
			return s.page, nil
		}
		s.log.Debug().Msg("active tab is dead, switching")
		s.page = nil
	}

	pages, err := s.browser.Pages()
	if err == nil && len(pages) > 0 {
		s.page = pages[0]
		return s.page, nil
	}
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.page = page
	return page, nil
}

func (s *Service) navigate(ctx context.Context, url string) error {
	if err := s.scope.CheckURL(url); err != nil {
		return err
	}
	page, err := s.currentPage(ctx)
	if err != nil {
		return err
	}
	navCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	s.waitSettled(ctx, page, 5*time.Second)
	return nil
}

// waitSettled waits for load without letting a hung page hang the agent.
func (s *Service) waitSettled(ctx context.Context, page *rod.Page, timeout time.Duration) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := page.Context(waitCtx).WaitLoad(); err != nil {
		s.log.Debug().Err(err).Msg("page load wait ended early")
	}
}

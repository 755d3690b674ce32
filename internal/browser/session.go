// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/internal/config"
)

// Session owns one browser instance and the tab the replay runs against.
// The View and Transport it hands out share the session's master context;
// operational contexts passed by callers only bound individual operations.
type Session struct {
	logger      *zap.Logger
	cfg         config.BrowserConfig
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewSession launches the browser and opens a fresh tab.
func NewSession(parent context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 90 * time.Second
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 10 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	for _, arg := range cfg.Args {
		name, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if found {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Materialize the browser process now rather than on first action, so
	// launch failures surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return &Session{
		logger:      logger.Named("browser"),
		cfg:         cfg,
		allocCancel: allocCancel,
		ctx:         tabCtx,
		cancel:      tabCancel,
	}, nil
}

// Navigate loads a URL and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	err := s.run(opCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	s.logger.Info("navigation complete", zap.String("url", url))
	return nil
}

// View returns the live DocumentView over the session's tab.
func (s *Session) View() *View {
	return &View{session: s, logger: s.logger}
}

// Transport returns the CDP-backed action transport for the tab.
func (s *Session) Transport() *Transport {
	return &Transport{session: s, logger: s.logger}
}

// run executes chromedp actions against the session tab, bounded by the
// caller's operational context. The tab context carries the CDP target; the
// operational context only contributes cancellation and deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		var dlCancel context.CancelFunc
		runCtx, dlCancel = context.WithDeadline(runCtx, deadline)
		defer dlCancel()
	}

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		// Report the caller's cancellation, not the derived context's.
		return ctx.Err()
	}
	return err
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	rodstealth "github.com/go-rod/stealth"
	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/stealth"
)

// engine is the browser process behind a Session
type engine interface {
	newPage(ctx context.Context) (core.Page, error)
	cookies(ctx context.Context) ([]*proto.NetworkCookie, error)
	setCookies(ctx context.Context, cookies []*proto.NetworkCookieParam) error
	close() error
}

// rodEngine is a Chromium instance driven through rod
type rodEngine struct {
	browser *rod.Browser
	cfg     core.BrowserConfig
	human   *stealth.Humanizer
	logger  *zap.Logger
}

// launchRod starts Chromium bound to the persistent profile directory
func launchRod(ctx context.Context, cfg core.BrowserConfig, human *stealth.Humanizer, dir string, logger *zap.Logger) (engine, error) {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		UserDataDir(dir).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-features", "IsolateOrigins,site-per-process")

	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	} else if path, has := launcher.LookPath(); has {
		l = l.Bin(path)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Trace(cfg.Trace)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	logger.Info("Browser launched",
		zap.Bool("headless", cfg.Headless),
		zap.String("profile_dir", dir),
	)
	return &rodEngine{browser: b, cfg: cfg, human: human, logger: logger}, nil
}

func (e *rodEngine) newPage(ctx context.Context) (core.Page, error) {
	pg, err := rodstealth.Page(e.browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	width, height := e.cfg.ViewportWidth, e.cfg.ViewportHeight
	if width <= 0 || height <= 0 {
		width, height = 1366, 768
	}
	err = pg.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	return &rodPage{
		page:   pg,
		human:  e.human,
		logger: e.logger,
		mouse:  stealth.Point{X: float64(width) / 2, Y: float64(height) / 2},
	}, nil
}

func (e *rodEngine) cookies(ctx context.Context) ([]*proto.NetworkCookie, error) {
	return e.browser.Context(ctx).GetCookies()
}

func (e *rodEngine) setCookies(ctx context.Context, cookies []*proto.NetworkCookieParam) error {
	return e.browser.Context(ctx).SetCookies(cookies)
}

func (e *rodEngine) close() error {
	if err := e.browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// rodPage implements core.Page on a rod page
type rodPage struct {
	page   *rod.Page
	human  *stealth.Humanizer
	logger *zap.Logger
	mouse  stealth.Point
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	if err := p.human.Pause(ctx); err != nil {
		return err
	}
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("failed to get page info: %w", err)
	}
	return info.URL, nil
}

func (p *rodPage) WaitIdle(ctx context.Context, timeout time.Duration) error {
	return p.page.Context(ctx).WaitIdle(timeout)
}

// Scroll dispatches wheel events, stepped by the humanizer when enabled
func (p *rodPage) Scroll(ctx context.Context, distance int) error {
	steps := []stealth.ScrollStep{{Delta: distance}}
	if p.human.Enabled() {
		steps = p.human.Scroll(distance)
	}

	pg := p.page.Context(ctx)
	for _, step := range steps {
		err := proto.InputDispatchMouseEvent{
			Type:   proto.InputDispatchMouseEventTypeMouseWheel,
			X:      p.mouse.X,
			Y:      p.mouse.Y,
			DeltaY: float64(step.Delta),
		}.Call(pg)
		if err != nil {
			p.logger.Debug("Wheel event failed, falling back to keyboard", zap.Error(err))
			key := input.ArrowDown
			if step.Delta < 0 {
				key = input.ArrowUp
			}
			if err := pg.Keyboard.Press(key); err != nil {
				return fmt.Errorf("failed to scroll: %w", err)
			}
		}
		if err := stealth.Sleep(ctx, step.Delay); err != nil {
			return err
		}
	}
	return nil
}

func (p *rodPage) Elements(ctx context.Context, selector string) ([]core.Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	return p.wrap(els), nil
}

func (p *rodPage) wrap(els rod.Elements) []core.Element {
	out := make([]core.Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el, page: p}
	}
	return out
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

// rodElement implements core.Element on a rod element
type rodElement struct {
	el   *rod.Element
	page *rodPage
}

func (e *rodElement) Elements(ctx context.Context, selector string) ([]core.Element, error) {
	els, err := e.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	return e.page.wrap(els), nil
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("failed to get attribute %s: %w", name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *rodElement) Checked(ctx context.Context) (bool, error) {
	v, err := e.el.Context(ctx).Property("checked")
	if err != nil {
		return false, fmt.Errorf("failed to read checked: %w", err)
	}
	return v.Bool(), nil
}

// Click moves the mouse along a humanised path and presses it over the
// element. With stealth disabled it falls back to rod's own click.
func (e *rodElement) Click(ctx context.Context) error {
	el := e.el.Context(ctx)
	if !e.page.human.Enabled() {
		return el.Click(proto.InputMouseButtonLeft, 1)
	}

	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("failed to scroll element into view: %w", err)
	}
	shape, err := el.Shape()
	if err != nil {
		return fmt.Errorf("failed to get element position: %w", err)
	}
	pt := shape.OnePointInside()
	if pt == nil {
		return fmt.Errorf("element has no clickable area")
	}

	pg := e.page.page.Context(ctx)
	target := stealth.Point{X: pt.X, Y: pt.Y}
	for _, step := range e.page.human.MousePath(e.page.mouse, target) {
		err := proto.InputDispatchMouseEvent{
			Type: proto.InputDispatchMouseEventTypeMouseMoved,
			X:    step.X,
			Y:    step.Y,
		}.Call(pg)
		if err != nil {
			e.page.logger.Debug("Failed to move mouse", zap.Error(err))
		}
		if err := stealth.Sleep(ctx, e.page.human.StepDelay()); err != nil {
			return err
		}
	}
	e.page.mouse = target

	for _, typ := range []proto.InputDispatchMouseEventType{
		proto.InputDispatchMouseEventTypeMousePressed,
		proto.InputDispatchMouseEventTypeMouseReleased,
	} {
		err := proto.InputDispatchMouseEvent{
			Type:       typ,
			X:          target.X,
			Y:          target.Y,
			Button:     proto.InputMouseButtonLeft,
			ClickCount: 1,
		}.Call(pg)
		if err != nil {
			return fmt.Errorf("failed to dispatch %s: %w", typ, err)
		}
		if err := stealth.Sleep(ctx, time.Duration(50+e.page.human.StepDelay().Milliseconds()*4)*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// Fill selects the current value and types text over it
func (e *rodElement) Fill(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to select existing text: %w", err)
	}
	if text == "" {
		return e.page.page.Context(ctx).Keyboard.Press(input.Backspace)
	}
	if !e.page.human.Enabled() {
		return el.Input(text)
	}

	pg := e.page.page.Context(ctx)
	for _, action := range e.page.human.Typing(text) {
		var err error
		if action.Backspace {
			err = pg.Keyboard.Press(input.Backspace)
		} else {
			err = el.Input(action.Key)
		}
		if err != nil {
			return fmt.Errorf("failed to type: %w", err)
		}
		if err := stealth.Sleep(ctx, action.Delay); err != nil {
			return err
		}
	}
	return nil
}

package browser

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/cfressle/webshelf/internal/logging"
)

const (
	// DefaultViewportWidth is the viewport width used when none is requested
	DefaultViewportWidth = 1280
	// DefaultViewportHeight is the viewport height used when none is requested
	DefaultViewportHeight = 720
)

// Session is a lazily-started Chromium session. The first operation starts
// Playwright and opens the page; the session then lives until Shutdown.
type Session struct {
	mu sync.Mutex

	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page

	console     *ConsoleLog
	screenshots *ScreenshotStore
	logger      *slog.Logger
}

// NewSession creates a session. No browser process is started until the
// first operation needs one.
func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		console:     NewConsoleLog(DefaultConsoleCapacity),
		screenshots: NewScreenshotStore(),
		logger:      logging.WithComponent(logger, "browser"),
	}
}

// Console returns the console message ring for this session.
func (s *Session) Console() *ConsoleLog {
	return s.console
}

// Screenshots returns the screenshot store for this session.
func (s *Session) Screenshots() *ScreenshotStore {
	return s.screenshots
}

// ensurePage starts Playwright and opens the page on first use.
// Callers must hold s.mu.
func (s *Session) ensurePage() (playwright.Page, error) {
	if s.page != nil {
		return s.page, nil
	}

	// Keep driver output off stdio; the MCP transport owns those streams.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.OnConsole(func(msg playwright.ConsoleMessage) {
		s.console.Append(msg.Type(), msg.Text())
	})

	s.pw = pw
	s.browser = browser
	s.page = page
	s.logger.Debug("browser session started")
	return page, nil
}

// Navigate loads the given URL and waits for the load event.
func (s *Session) Navigate(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := s.ensurePage()
	if err != nil {
		return err
	}

	waitUntil := playwright.WaitUntilStateLoad
	if _, err := page.Goto(url, playwright.PageGotoOptions{WaitUntil: waitUntil}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Screenshot captures the page, or a single element when selector is set,
// as PNG. The image is stored under name and also returned.
func (s *Session) Screenshot(name, selector string, width, height int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := s.ensurePage()
	if err != nil {
		return nil, err
	}

	if width <= 0 {
		width = DefaultViewportWidth
	}
	if height <= 0 {
		height = DefaultViewportHeight
	}
	if err := page.SetViewportSize(width, height); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	var png []byte
	if selector != "" {
		element, err := page.QuerySelector(selector)
		if err != nil {
			return nil, fmt.Errorf("selector query failed: %w", err)
		}
		if element == nil {
			return nil, fmt.Errorf("no element found matching selector: %s", selector)
		}
		png, err = element.Screenshot()
		if err != nil {
			return nil, fmt.Errorf("element screenshot failed: %w", err)
		}
	} else {
		png, err = page.Screenshot(playwright.PageScreenshotOptions{
			FullPage: playwright.Bool(false),
		})
		if err != nil {
			return nil, fmt.Errorf("screenshot failed: %w", err)
		}
	}

	s.screenshots.Put(name, png)
	return png, nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := s.ensurePage()
	if err != nil {
		return err
	}

	if err := page.Click(selector); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Fill fills an input element with the given value.
func (s *Session) Fill(selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := s.ensurePage()
	if err != nil {
		return err
	}

	if err := page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// SelectOption selects the option with the given value in a select element.
func (s *Session) SelectOption(selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := s.ensurePage()
	if err != nil {
		return err
	}

	if _, err := page.SelectOption(selector, playwright.SelectOptionValues{
		Values: playwright.StringSlice(value),
	}); err != nil {
		return fmt.Errorf("select failed: %w", err)
	}
	return nil
}

// Hover hovers over the first element matching the selector.
func (s *Session) Hover(selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := s.ensurePage()
	if err != nil {
		return err
	}

	if err := page.Hover(selector); err != nil {
		return fmt.Errorf("hover failed: %w", err)
	}
	return nil
}

// Evaluate runs a JavaScript expression in the page and returns its result.
func (s *Session) Evaluate(script string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := s.ensurePage()
	if err != nil {
		return nil, err
	}

	result, err := page.Evaluate(script)
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return result, nil
}

// Shutdown closes the page, browser and Playwright driver. Safe to call
// when the session never started.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return nil
	}

	_ = s.page.Close()
	_ = s.browser.Close()
	err := s.pw.Stop()

	s.page = nil
	s.browser = nil
	s.pw = nil

	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

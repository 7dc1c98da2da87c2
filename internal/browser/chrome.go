package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// Config selects where the browser runs. With RemoteWS set the session
// attaches to a cloud browser over CDP; otherwise a local Chrome is launched.
type Config struct {
	Headful     bool
	RemoteWS    string
	RemoteToken string
}

const actionTimeout = 60 * time.Second

// Snapshot script: tags every visible interactive element with a stable id
// attribute and returns a JSON summary. The planner refers to elements by
// that id, so clicks survive pages with no usable selectors.
const snapshotJS = `(() => {
	const MAX = 40;
	const out = [];
	const nodes = document.querySelectorAll('a[href], button, input, textarea, select, [role="button"], [contenteditable]');
	let next = 0;
	for (const el of nodes) {
		if (out.length >= MAX) break;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		if (rect.width < 2 || rect.height < 2 || style.visibility === 'hidden' || style.display === 'none') continue;
		const id = next++;
		el.setAttribute('data-khoji-id', String(id));
		out.push({
			id: id,
			tag: el.tagName.toLowerCase(),
			type: el.getAttribute('type') || '',
			text: (el.innerText || el.value || '').trim().slice(0, 80),
			label: el.getAttribute('aria-label') || el.getAttribute('placeholder') || el.getAttribute('name') || '',
		});
	}
	return JSON.stringify(out);
})()`

// pageElement is one entry of the interactive-element snapshot.
type pageElement struct {
	ID    int    `json:"id"`
	Tag   string `json:"tag"`
	Type  string `json:"type,omitempty"`
	Text  string `json:"text,omitempty"`
	Label string `json:"label,omitempty"`
}

func elementSelector(id int) string {
	return fmt.Sprintf(`[data-khoji-id="%d"]`, id)
}

// chromeDriver owns one Chrome instance for the lifetime of a session.
type chromeDriver struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func newChromeDriver(cfg Config) (*chromeDriver, error) {
	d := &chromeDriver{}

	if cfg.RemoteWS != "" {
		d.allocCtx, d.allocCancel = chromedp.NewRemoteAllocator(context.Background(), remoteURL(cfg))
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.NoSandbox,
			chromedp.Flag("headless", !cfg.Headful),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("no-default-browser-check", true),
		)
		d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	d.browserCtx, d.browserCancel = chromedp.NewContext(d.allocCtx)
	if err := chromedp.Run(d.browserCtx); err != nil {
		d.close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return d, nil
}

func remoteURL(cfg Config) string {
	if cfg.RemoteToken == "" {
		return cfg.RemoteWS
	}
	sep := "?"
	if u, err := url.Parse(cfg.RemoteWS); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return cfg.RemoteWS + sep + "token=" + url.QueryEscape(cfg.RemoteToken)
}

// run executes actions under the per-action budget. The session context, not
// the caller's, parents the run: chromedp actions must descend from the
// browser context.
func (d *chromeDriver) run(actions ...chromedp.Action) error {
	actionCtx, cancel := context.WithTimeout(d.browserCtx, actionTimeout)
	defer cancel()
	return chromedp.Run(actionCtx, actions...)
}

func (d *chromeDriver) navigate(ctx context.Context, pageURL string) error {
	return d.run(
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (d *chromeDriver) click(ctx context.Context, selector string) error {
	return d.run(chromedp.Click(selector, chromedp.ByQuery))
}

func (d *chromeDriver) typeInto(ctx context.Context, selector, text string) error {
	return d.run(
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (d *chromeDriver) press(ctx context.Context, key string) error {
	return d.run(chromedp.KeyEvent(keyChord(key)))
}

// keyChord maps spoken key names onto the chords chromedp expects. Unknown
// names pass through so plain characters still work.
func keyChord(name string) string {
	switch name {
	case "Enter", "enter", "Return", "return":
		return kb.Enter
	case "Tab", "tab":
		return kb.Tab
	case "Escape", "escape", "Esc", "esc":
		return kb.Escape
	case "Backspace", "backspace":
		return kb.Backspace
	default:
		return name
	}
}

func (d *chromeDriver) snapshotElements(ctx context.Context) ([]pageElement, error) {
	var raw string
	if err := d.run(chromedp.Evaluate(snapshotJS, &raw)); err != nil {
		return nil, fmt.Errorf("failed to snapshot page elements: %w", err)
	}
	var elements []pageElement
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return nil, fmt.Errorf("failed to decode element snapshot: %w", err)
	}
	return elements, nil
}

// pageContent returns the rendered document and its URL.
func (d *chromeDriver) pageContent(ctx context.Context) (string, string, error) {
	var html, location string
	err := d.run(
		chromedp.Location(&location),
		chromedp.ActionFunc(func(ctx context.Context) error {
			node, err := dom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return "", "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, location, nil
}

func (d *chromeDriver) close() error {
	if d.browserCancel != nil {
		d.browserCancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
	return nil
}

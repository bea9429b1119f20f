// Package linkedin implements the platform driver against LinkedIn
// using a CDP-controlled browser. It only automates the operations the
// orchestration core needs: pulling prospect pages off a people-search
// result list and performing sends on a profile page.
package linkedin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/prospectly/outreachd/internal/driver"
)

// Options configures the browser-backed driver.
type Options struct {
	// ControlURL attaches to an already-running browser. When empty a
	// browser is launched locally.
	ControlURL string
	Headless   bool
	// PageTimeout bounds element lookups on a page.
	PageTimeout time.Duration
}

// Driver drives LinkedIn through a real browser page. It implements
// driver.Driver.
type Driver struct {
	browser *rod.Browser
	opts    Options
	log     *slog.Logger
}

// New connects to (or launches) a browser and returns a ready driver.
// The caller owns an authenticated browser profile; this driver does
// not handle credentials.
func New(opts Options) (*Driver, error) {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 15 * time.Second
	}

	controlURL := opts.ControlURL
	if controlURL == "" {
		u, err := launcher.New().Headless(opts.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &Driver{
		browser: browser,
		opts:    opts,
		log:     slog.Default().With("component", "linkedin_driver"),
	}, nil
}

// Close releases the underlying browser connection.
func (d *Driver) Close() error {
	return d.browser.Close()
}

// FetchProspectPage navigates to page N of a people-search result list
// and extracts the visible prospect cards.
func (d *Driver) FetchProspectPage(ctx context.Context, sourceURL string, page int) (*driver.ProspectPage, error) {
	pageURL, err := withPageParam(sourceURL, page)
	if err != nil {
		return nil, driver.Fatalf("fetch_page", err)
	}

	p, err := d.newPage(ctx)
	if err != nil {
		return nil, driver.Transientf("fetch_page", err)
	}
	defer p.Close()

	if err := p.Navigate(pageURL); err != nil {
		return nil, driver.Transientf("fetch_page", err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, driver.Transientf("fetch_page", err)
	}
	if d.hitAuthWall(p) {
		return nil, driver.Fatalf("fetch_page", errors.New("authentication wall, session cookie expired"))
	}

	if _, err := p.Timeout(d.opts.PageTimeout).Element(".search-results-container"); err != nil {
		// A results page with no container usually means the list is
		// exhausted rather than broken.
		return &driver.ProspectPage{HasMore: false}, nil
	}

	cards, err := p.Elements(`.search-results-container a[href*="/in/"]`)
	if err != nil {
		return nil, driver.Transientf("fetch_page", err)
	}

	seen := make(map[string]bool)
	var prospects []driver.ScrapedProspect
	for _, card := range cards {
		href, err := card.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		profileURL := normalizeProfileURL(*href)
		if profileURL == "" || seen[profileURL] {
			continue
		}
		seen[profileURL] = true

		sp := driver.ScrapedProspect{ProfileURL: profileURL}
		if text, err := card.Text(); err == nil {
			sp.FirstName, sp.LastName = splitName(strings.TrimSpace(text))
		}
		prospects = append(prospects, sp)
	}

	hasMore := len(prospects) > 0
	d.log.Info("fetched prospect page", "url", pageURL, "count", len(prospects), "has_more", hasMore)

	return &driver.ProspectPage{Prospects: prospects, HasMore: hasMore}, nil
}

// SendMessage opens the prospect's profile, opens the message composer
// and submits the content.
func (d *Driver) SendMessage(ctx context.Context, ref driver.ProspectRef, content string) error {
	p, err := d.openProfile(ctx, ref)
	if err != nil {
		return err
	}
	defer p.Close()

	msgBtn, err := p.Timeout(d.opts.PageTimeout).ElementR("button", "^Message$")
	if err != nil {
		// No composer on the profile means we cannot message this
		// prospect at all; retrying will not change that.
		return driver.Permanentf("send_message", errors.New("message button not found"))
	}
	if err := msgBtn.Click("left", 1); err != nil {
		return driver.Transientf("send_message", err)
	}

	input, err := p.Timeout(d.opts.PageTimeout).Element(`div.msg-form__contenteditable`)
	if err != nil {
		return driver.Transientf("send_message", err)
	}
	if err := input.Input(content); err != nil {
		return driver.Transientf("send_message", err)
	}

	sendBtn, err := p.Timeout(d.opts.PageTimeout).Element(`button.msg-form__send-button`)
	if err != nil {
		return driver.Transientf("send_message", err)
	}
	if err := sendBtn.Click("left", 1); err != nil {
		return driver.Transientf("send_message", err)
	}

	d.log.Info("message sent", "profile", ref.ProfileURL)
	return nil
}

// SendConnectionRequest opens the prospect's profile and submits a
// plain invitation without a note.
func (d *Driver) SendConnectionRequest(ctx context.Context, ref driver.ProspectRef) error {
	p, err := d.openProfile(ctx, ref)
	if err != nil {
		return err
	}
	defer p.Close()

	connectBtn, err := p.Timeout(d.opts.PageTimeout).ElementR("button", "^Connect$")
	if err != nil {
		return driver.Permanentf("send_connection", errors.New("connect button not found"))
	}
	if err := connectBtn.Click("left", 1); err != nil {
		return driver.Transientf("send_connection", err)
	}

	// The confirmation modal offers "Send without a note".
	confirm, err := p.Timeout(d.opts.PageTimeout).ElementR("button", "Send")
	if err != nil {
		return driver.Transientf("send_connection", err)
	}
	if err := confirm.Click("left", 1); err != nil {
		return driver.Transientf("send_connection", err)
	}

	d.log.Info("connection request sent", "profile", ref.ProfileURL)
	return nil
}

// CheckConnection reports whether the prospect accepted a previous
// invitation. A Message button on the profile implies an existing
// connection.
func (d *Driver) CheckConnection(ctx context.Context, ref driver.ProspectRef) (bool, error) {
	p, err := d.openProfile(ctx, ref)
	if err != nil {
		return false, err
	}
	defer p.Close()

	_, err = p.Timeout(5 * time.Second).ElementR("button", "^Message$")
	return err == nil, nil
}

func (d *Driver) newPage(ctx context.Context) (*rod.Page, error) {
	p, err := d.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	return p.Context(ctx), nil
}

func (d *Driver) openProfile(ctx context.Context, ref driver.ProspectRef) (*rod.Page, error) {
	p, err := d.newPage(ctx)
	if err != nil {
		return nil, driver.Transientf("open_profile", err)
	}
	if err := p.Navigate(ref.ProfileURL); err != nil {
		p.Close()
		return nil, driver.Transientf("open_profile", err)
	}
	if err := p.WaitLoad(); err != nil {
		p.Close()
		return nil, driver.Transientf("open_profile", err)
	}
	if d.hitAuthWall(p) {
		p.Close()
		return nil, driver.Fatalf("open_profile", errors.New("authentication wall, session cookie expired"))
	}
	return p, nil
}

// hitAuthWall detects the logged-out redirect.
func (d *Driver) hitAuthWall(p *rod.Page) bool {
	info, err := p.Info()
	if err != nil {
		return false
	}
	return strings.Contains(info.URL, "/authwall") || strings.Contains(info.URL, "/login")
}

func withPageParam(sourceURL string, page int) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	q := u.Query()
	q.Set("page", fmt.Sprintf("%d", page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func normalizeProfileURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if !strings.HasPrefix(u.Path, "/in/") {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func splitName(full string) (first, last string) {
	// Search cards repeat the name for screen readers; keep the first
	// line only.
	if i := strings.IndexByte(full, '\n'); i >= 0 {
		full = full[:i]
	}
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// Package discovery scrapes a procurement landing page for period-keyed
// ZIP download links.
package discovery

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"sppd/internal/errs"
)

// periodSuffixPattern matches the trailing "_<digits>.zip" of a ZIP href's
// final path segment, capturing the digits as the period identifier.
const periodSuffixPattern = `_(\d+)\.zip$`

// anchorSelectorPattern selects every anchor with an href attribute.
const anchorSelectorPattern = `a[href]`

// LinkMap maps period identifier to absolute download URL.
type LinkMap map[string]string

// Periods returns the map's keys sorted by their string representation,
// the deterministic iteration order spec.md §3 requires.
func (m LinkMap) Periods() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Client fetches and parses a landing page using a regex and CSS selector
// compiled once at construction time, read-only thereafter.
type Client struct {
	HTTP         *http.Client
	periodSuffix *regexp.Regexp
	anchorSel    cascadia.Selector
}

// NewClient returns a discovery Client with a sane default timeout. It
// compiles the package's static regex and CSS selector, surfacing any
// failure as a RegexError/SelectorError — both patterns are hardcoded and
// known-valid, so this only matters if the pattern is ever changed.
func NewClient() (*Client, error) {
	re, err := regexp.Compile(periodSuffixPattern)
	if err != nil {
		return nil, &errs.RegexError{Pattern: periodSuffixPattern, Err: err}
	}
	sel, err := cascadia.Compile(anchorSelectorPattern)
	if err != nil {
		return nil, &errs.SelectorError{Selector: anchorSelectorPattern, Err: err}
	}
	return &Client{
		HTTP:         &http.Client{Timeout: 60 * time.Second},
		periodSuffix: re,
		anchorSel:    sel,
	}, nil
}

// Discover fetches landingURL, selects every anchor whose href ends in
// ".zip", resolves it against the page URL, and extracts the period from
// its final path segment via periodSuffix. Collisions replace (last write
// wins); the returned map is read back in sorted-key order by Periods.
func (c *Client) Discover(landingURL string) (LinkMap, error) {
	base, err := url.Parse(landingURL)
	if err != nil {
		return nil, &errs.UrlError{Raw: landingURL, Err: err}
	}

	req, err := http.NewRequest(http.MethodGet, landingURL, nil)
	if err != nil {
		return nil, &errs.UrlError{Raw: landingURL, Err: err}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &errs.NetworkError{URL: landingURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &errs.NetworkError{URL: landingURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &errs.ParseError{Source: landingURL, Err: err}
	}

	links := make(LinkMap)
	doc.FindMatcher(c.anchorSel).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !strings.HasSuffix(strings.ToLower(href), ".zip") {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		segments := strings.Split(resolved.Path, "/")
		last := segments[len(segments)-1]
		m := c.periodSuffix.FindStringSubmatch(last)
		if m == nil {
			return
		}
		links[m[1]] = resolved.String()
	})

	return links, nil
}

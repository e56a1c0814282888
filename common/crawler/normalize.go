package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

var ErrUnusableURL = errors.New("unusable url")

var trackingParams = map[string]bool{
	"ref":     true,
	"ref_src": true,
	"fbclid":  true,
	"gclid":   true,
	"dclid":   true,
	"yclid":   true,
	"msclkid": true,
	"igshid":  true,
	"mc_cid":  true,
	"mc_eid":  true,
	"_ga":     true,
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	return strings.HasPrefix(key, "utm_") || trackingParams[key]
}

// NormalizeURL resolves href against base, drops the fragment and tracking
// query parameters, and lowercases the host.
func NormalizeURL(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return "", fmt.Errorf("%w: %q", ErrUnusableURL, href)
	}

	u, err := base.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrUnusableURL, href, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrUnusableURL, u.Scheme)
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		stripped := false
		for key := range q {
			if isTrackingParam(key) {
				q.Del(key)
				stripped = true
			}
		}
		if stripped {
			u.RawQuery = q.Encode()
		}
	}

	return u.String(), nil
}

// Date.toString() output, e.g. "Thu Jul 24 2025 19:27:23 GMT+0000 (Coordinated Universal Time)"
var jsDatePattern = regexp.MustCompile(`^(?:[A-Za-z]{3},?\s+)?([A-Za-z]{3})\s+(\d{1,2})\s+(\d{4})\s+(\d{1,2}:\d{2}:\d{2})\s+GMT([+-]\d{4})`)

var relativePattern = regexp.MustCompile(`(?i)^(\d+)\s*(s|secs?|seconds?|m|mins?|minutes?|h|hrs?|hours?|d|days?|w|weeks?)(?:\s+ago)?$`)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	"Jan 2, 2006 15:04",
	"2006-01-02",
}

// ParseDateTime reads a publish time. Absolute values are converted to UTC,
// values without a zone are taken as UTC, and relative ones ("5min", "2h ago",
// "now") are resolved against ref. Anything else is None.
func ParseDateTime(value string, ref time.Time) mo.Option[time.Time] {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return mo.None[time.Time]()
	}

	if m := jsDatePattern.FindStringSubmatch(value); m != nil {
		t, err := time.Parse("Jan 2 2006 15:04:05 -0700", fmt.Sprintf("%s %s %s %s %s", m[1], m[2], m[3], m[4], m[5]))
		if err == nil {
			return mo.Some(t.UTC())
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return mo.Some(t.UTC())
		}
	}

	return parseRelative(value, ref)
}

func parseRelative(value string, ref time.Time) mo.Option[time.Time] {
	lower := strings.ToLower(value)
	if lower == "now" || lower == "just now" {
		return mo.Some(ref.UTC())
	}

	m := relativePattern.FindStringSubmatch(value)
	if m == nil {
		return mo.None[time.Time]()
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return mo.None[time.Time]()
	}

	var unit time.Duration
	switch strings.ToLower(m[2])[0] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	}

	return mo.Some(ref.Add(-time.Duration(n) * unit).UTC())
}

const (
	minTitleLength = 5
	maxTitleLength = 200
)

var excludedTitles = []string{"***", "Press", "Sponsored"}

var domainHints = []string{".com", ".org", ".io", ".net"}

var timeHints = []string{"min", "hour", "h", "ago"}

// CleanTitle returns the first line of text that reads like a headline.
// Labels, handles, bare domains and relative times are rejected.
func CleanTitle(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if isHeadline(line) {
			return line, true
		}
	}
	return "", false
}

func isHeadline(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < minTitleLength || n > maxTitleLength {
		return false
	}
	if strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		return false
	}
	if lo.Contains(excludedTitles, s) || strings.HasPrefix(s, "@") || strings.HasSuffix(s, "min") {
		return false
	}

	lower := strings.ToLower(s)
	if n < 30 && lo.SomeBy(domainHints, func(h string) bool { return strings.Contains(lower, h) }) {
		return false
	}
	if n < 10 && lo.SomeBy(timeHints, func(h string) bool { return strings.Contains(lower, h) }) {
		return false
	}
	return true
}

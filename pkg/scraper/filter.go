package scraper

import (
	"net/url"
	"regexp"
	"strings"
)

// nonContentTokens mark wiki namespaces and script paths that never hold
// article content.
var nonContentTokens = []string{
	"user:",
	"user_talk:",
	"talk:",
	"special:",
	"file:",
	"image:",
	"category:",
	"template:",
	"help:",
	"portal:",
	"wikipedia:",
	"/w/",
	"index.php",
	"main_page",
}

var (
	utilityPath   = regexp.MustCompile(`(?i)/(edit|history|users?|search)(/|$)`)
	utilityParams = []string{"action=", "oldid=", "printable=", "search="}
)

type FilterConfig struct {
	// IgnorePatterns are substrings; a resolved URL containing any is dropped.
	IgnorePatterns []string
}

// LinkFilter narrows a page's outbound links to same-host content pages.
type LinkFilter struct {
	config FilterConfig
}

func NewLinkFilter(config FilterConfig) *LinkFilter {
	return &LinkFilter{config: config}
}

var defaultFilter = NewLinkFilter(FilterConfig{})

// FilterDeterministic applies the default rules with no extra ignore patterns.
func FilterDeterministic(baseURL string, hrefs []string) []string {
	return defaultFilter.Filter(baseURL, hrefs)
}

// Filter resolves hrefs against baseURL and keeps those that pass every
// rule. Survivors lose their fragment, are de-duplicated, and keep input
// order. The output is always a subset of baseURL's host.
func (f *LinkFilter) Filter(baseURL string, hrefs []string) []string {
	out := make([]string, 0, len(hrefs))

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return out
	}

	seen := make(map[string]bool, len(hrefs))
	for _, href := range hrefs {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)

		if !f.shouldProcessURL(base, resolved) {
			continue
		}

		s := canonical(resolved)
		if f.ignored(s) || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Normalize puts an absolute URL in the form Filter emits: no fragment,
// and "/" for an empty path. Unparsable input is returned unchanged.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return canonical(u)
}

func canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" && c.Opaque == "" && c.Host != "" {
		c.Path = "/"
		c.RawPath = ""
	}
	return c.String()
}

func (f *LinkFilter) shouldProcessURL(base, u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	// Check if URL is from the same host
	if !strings.EqualFold(u.Host, base.Host) {
		return false
	}

	path := strings.ToLower(u.Path)
	for _, token := range nonContentTokens {
		if strings.Contains(path, token) {
			return false
		}
	}

	if utilityPath.MatchString(u.Path) {
		return false
	}
	query := strings.ToLower(u.RawQuery)
	for _, param := range utilityParams {
		if strings.Contains(path, param) || strings.Contains(query, param) {
			return false
		}
	}

	// Anchors back into the base page itself
	if u.Fragment != "" && samePath(u.Path, base.Path) && u.RawQuery == base.RawQuery {
		return false
	}

	return true
}

func (f *LinkFilter) ignored(u string) bool {
	for _, pattern := range f.config.IgnorePatterns {
		if pattern != "" && strings.Contains(u, pattern) {
			return true
		}
	}
	return false
}

func samePath(a, b string) bool {
	if a == "" {
		a = "/"
	}
	if b == "" {
		b = "/"
	}
	return a == b
}

// Package text normalizes inbound media links pasted by users before they are classified.
package text

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	urlRegex        = regexp.MustCompile(`https?://\S+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	trackingParams = []string{"si", "feature", "fbclid", "gclid"}
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// NormalizeURL returns the first http(s) URL found in input with tracking parameters removed.
// Input without an http(s) URL is returned normalized and trimmed so scheme-less links like
// "youtu.be/abc" still reach classification.
func (p *Parser) NormalizeURL(input string) string {
	text := p.normalizeText(input)
	if urls := p.ExtractURLs(text); len(urls) > 0 {
		return urls[0]
	}
	return text
}

func (p *Parser) normalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ExtractURLs returns every well-formed http(s) URL in text, in order of appearance.
func (p *Parser) ExtractURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)
	var cleanURLs []string

	for _, match := range matches {
		cleanURL := p.cleanURL(match)
		if cleanURL != "" {
			cleanURLs = append(cleanURLs, cleanURL)
		}
	}

	return cleanURLs
}

func (p *Parser) cleanURL(rawURL string) string {
	rawURL = strings.TrimRight(rawURL, ".,!?;)")

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}

	if u.RawQuery == "" {
		return u.String()
	}

	q := u.Query()
	for key := range q {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	for _, param := range trackingParams {
		q.Del(param)
	}

	u.RawQuery = q.Encode()

	return u.String()
}

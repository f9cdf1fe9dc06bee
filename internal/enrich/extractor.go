package enrich

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Pragmatic RFC 5322 address grammar. Matches are trimmed of stray
// punctuation afterwards.
var emailPattern = regexp.MustCompile(
	"(?i)[a-z0-9!#$%&'*+/=?^_`{|}~-]+" +
		"(?:\\.[a-z0-9!#$%&'*+/=?^_`{|}~-]+)*" +
		"@" +
		"[a-z0-9](?:[a-z0-9-]*[a-z0-9])?" +
		"(?:\\.[a-z0-9](?:[a-z0-9-]*[a-z0-9])?)+",
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".bmp", ".ico"}

// Domains that never belong in output: documentation placeholders and
// disposable mailbox providers that show up in page templates.
var droppedDomains = map[string]struct{}{
	"example.com":       {},
	"example.org":       {},
	"example.net":       {},
	"test.com":          {},
	"domain.com":        {},
	"yourdomain.com":    {},
	"mailinator.com":    {},
	"guerrillamail.com": {},
	"10minutemail.com":  {},
	"tempmail.com":      {},
	"yopmail.com":       {},
}

// Extractor pulls candidate addresses out of fetched page bodies.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract scans a page body (visible text plus mailto: hrefs) and
// returns filtered candidates. Addresses embedded in image filenames
// and addresses on placeholder/disposable domains are dropped. The
// original casing is preserved; dedup within the page is
// case-insensitive.
func (e *Extractor) Extract(page PageResult) []EmailCandidate {
	if page.Status != FetchOK || len(page.Body) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var out []EmailCandidate

	add := func(raw string) {
		addr := strings.Trim(strings.TrimPrefix(raw, "mailto:"), ".,;:")
		if !e.keep(addr) {
			return
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, EmailCandidate{
			Address:   addr,
			SourceURL: page.URL,
			Depth:     page.Depth,
		})
	}

	for _, m := range emailPattern.FindAllString(string(page.Body), -1) {
		add(m)
	}
	for _, href := range mailtoHrefs(page.Body) {
		if m := emailPattern.FindString(href); m != "" {
			add(m)
		}
	}
	return out
}

func (e *Extractor) keep(addr string) bool {
	lower := strings.ToLower(addr)
	at := strings.LastIndex(lower, "@")
	if at <= 0 || at == len(lower)-1 {
		return false
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	if _, dropped := droppedDomains[lower[at+1:]]; dropped {
		return false
	}
	return true
}

func mailtoHrefs(body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var hrefs []string
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

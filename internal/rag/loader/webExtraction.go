package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	readability "github.com/go-shiori/go-readability"
)

var (
	genericNoiseTags = "script, style, noscript, nav, footer, header, aside, form, button, input, select, textarea, iframe"

	wikiNoise = "table.navbox, div.navbox, div.hatnote, div.dablink, div.sistersitebox, div.ambox, div.mbox-small, " +
		"div.infobox, table.infobox, div.thumb, div.printfooter, div.catlinks, div#toc"

	// matched against each class token and the id
	noiseAttrPattern = regexp.MustCompile(`(?i)advertisement|(^|[-_])ads?([-_]|$)|promo|social|share|comments?|popup|modal`)

	contentAttrPattern = regexp.MustCompile(`(?i)content|main|body`)

	blankRunPattern  = regexp.MustCompile(`\n[ \t]*\n([ \t]*\n)+`)
	emptyLinkPattern = regexp.MustCompile(`\[\s*\]\([^)]*\)`)
	emptyHeadPattern = regexp.MustCompile(`(?m)^#+[ \t]*$`)
	ruleRunPattern   = regexp.MustCompile(`-{3,}`)
)

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, loadError(rawURL, "invalid url", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return nil, loadError(rawURL, "invalid url", nil)
	}
	return parsed, nil
}

// FilenameFromURL uses the last path segment when it carries an extension,
// otherwise <domain>.html.
func FilenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "web_content.html"
	}
	if segment := path.Base(parsed.Path); segment != "." && segment != "/" && path.Ext(segment) != "" {
		return segment
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.") + ".html"
}

func (l *Loader) fetch(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.opts.WebTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, loadError(target, "invalid url", err)
	}
	req.Header.Set("User-Agent", l.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, loadError(target, "fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, loadError(target, fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return nil, loadError(target, fmt.Sprintf("content type %q is not html", contentType), nil)
	}

	if resp.ContentLength > l.opts.WebMaxBytes {
		return nil, loadError(target, fmt.Sprintf("content length %d exceeds %d bytes", resp.ContentLength, l.opts.WebMaxBytes), nil)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, l.opts.WebMaxBytes+1))
	if err != nil {
		return nil, loadError(target, "read error", err)
	}
	if int64(len(body)) > l.opts.WebMaxBytes {
		return nil, loadError(target, fmt.Sprintf("content exceeds %d bytes", l.opts.WebMaxBytes), nil)
	}
	return body, nil
}

func (l *Loader) extractHTMLFile(filePath string, base map[string]any) ([]commonModels.Unit, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, loadError(filePath, "failed to read file", err)
	}
	unit, err := l.extractHTML(data, &url.URL{Path: filePath})
	if err != nil {
		return nil, err
	}
	for k, v := range base {
		unit.Metadata[k] = v
	}
	return []commonModels.Unit{unit}, nil
}

func (l *Loader) extractHTML(body []byte, source *url.URL) (commonModels.Unit, error) {
	sourceName := source.String()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return commonModels.Unit{}, loadError(sourceName, "unparseable html", err)
	}

	metadata := extractMetadata(doc, sourceName)

	var root *goquery.Selection
	if isWikiHost(source.Hostname()) {
		root = wikiContentRoot(doc)
	} else {
		root = genericContentRoot(doc)
	}
	root.Find("img, picture, svg").Remove()

	text := ""
	if fragment, err := goquery.OuterHtml(root); err == nil {
		if markdown, err := htmltomarkdown.ConvertString(fragment); err == nil {
			text = CleanMarkdown(markdown)
		} else {
			l.logger.Warn("markdown conversion failed", "source", sourceName, "error", err)
		}
	}

	if text == "" {
		text = readabilityFallback(body, source)
	}
	if text == "" {
		return commonModels.Unit{}, loadError(sourceName, "no content after cleaning", nil)
	}
	return commonModels.Unit{Text: text, Metadata: metadata}, nil
}

func extractMetadata(doc *goquery.Document, source string) map[string]any {
	metadata := map[string]any{
		"source": source,
		"type":   "web_content",
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		metadata["title"] = title
	}
	setMeta := func(key, selector string) {
		if value, ok := doc.Find(selector).First().Attr("content"); ok && strings.TrimSpace(value) != "" {
			metadata[key] = strings.TrimSpace(value)
		}
	}
	setMeta("description", `meta[name="description"]`)
	setMeta("og_title", `meta[property="og:title"]`)
	setMeta("og_description", `meta[property="og:description"]`)
	if lang, ok := doc.Find("html").First().Attr("lang"); ok && lang != "" {
		metadata["language"] = lang
	}
	return metadata
}

func isWikiHost(host string) bool {
	return strings.Contains(strings.ToLower(host), "wikipedia.org")
}

func genericContentRoot(doc *goquery.Document) *goquery.Selection {
	doc.Find(genericNoiseTags).Remove()
	doc.Find("[class], [id]").Not("html, body").Each(func(_ int, s *goquery.Selection) {
		if matchesAttr(s, noiseAttrPattern) {
			s.Remove()
		}
	})

	for _, selector := range []string{"main", "article", "div#mw-content-text", "div.mw-parser-output"} {
		if found := doc.Find(selector).First(); found.Length() > 0 {
			return found
		}
	}
	if found := doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return matchesAttr(s, contentAttrPattern)
	}).First(); found.Length() > 0 {
		return found
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

func wikiContentRoot(doc *goquery.Document) *goquery.Selection {
	doc.Find(genericNoiseTags).Remove()
	doc.Find(wikiNoise).Remove()

	for _, selector := range []string{"div#mw-content-text", "main", "div.mw-parser-output", "body"} {
		if found := doc.Find(selector).First(); found.Length() > 0 {
			return found
		}
	}
	return doc.Selection
}

func matchesAttr(s *goquery.Selection, pattern *regexp.Regexp) bool {
	if id, ok := s.Attr("id"); ok && pattern.MatchString(id) {
		return true
	}
	if class, ok := s.Attr("class"); ok {
		for _, token := range strings.Fields(class) {
			if pattern.MatchString(token) {
				return true
			}
		}
	}
	return false
}

// CleanMarkdown collapses blank runs, drops empty links and bare heading markers.
func CleanMarkdown(markdown string) string {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	markdown = emptyLinkPattern.ReplaceAllString(markdown, "")
	markdown = emptyHeadPattern.ReplaceAllString(markdown, "")
	markdown = ruleRunPattern.ReplaceAllString(markdown, "---")
	markdown = blankRunPattern.ReplaceAllString(markdown, "\n\n")
	return strings.TrimSpace(markdown)
}

func readabilityFallback(body []byte, source *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), source)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

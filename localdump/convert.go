package localdump

import (
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	mdplugin "github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/toothbrush/confluence-export/confluence"
	"gopkg.in/yaml.v3"
)

var (
	cdataSection = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

	// The HTML parser ignores "/>" on unknown elements, so <ri:page .../> would swallow its
	// siblings.
	selfClosingTag = regexp.MustCompile(`<((?:ac|ri):[\w-]+|time)(\s[^<>]*?)?\s*/>`)
)

// Conversion is the result of converting one storage-format body.
type Conversion struct {
	Markdown string

	// Human-readable notes about content that couldn't be represented faithfully.
	Degradations []string
}

// Converter turns Confluence storage markup into GitHub-flavoured Markdown.
type Converter struct {
	// Root-relative links (/wiki/spaces/...) are made absolute against this.  May be nil.
	BaseURI *url.URL

	// Prepend YAML front matter when rendering pages.
	FrontMatter bool

	Logger *slog.Logger
}

func NewConverter(baseURI *url.URL, frontMatter bool, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{BaseURI: baseURI, FrontMatter: frontMatter, Logger: logger}
}

// Convert never fails.  Unsupported markup is reduced to its text, and if the Markdown converter
// itself errors the plain text of the whole document is returned.  Page links point at bare file
// names; use ConvertPage to link relative to the exported tree.
func (c *Converter) Convert(storage string) Conversion {
	return c.ConvertPage(storage, ExportTarget{}, nil)
}

// ConvertPage converts the body of the page exported at from.  Links to pages in links become
// relative paths from that page.
func (c *Converter) ConvertPage(storage string, from ExportTarget, links PageLinks) Conversion {
	var conv Conversion

	prepared := cdataSection.ReplaceAllStringFunc(storage, func(m string) string {
		return html.EscapeString(cdataSection.FindStringSubmatch(m)[1])
	})
	prepared = selfClosingTag.ReplaceAllString(prepared, "<$1$2></$1>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(prepared))
	if err != nil {
		// Only possible on a reader error, but be safe and keep the raw text.
		conv.Degradations = append(conv.Degradations, fmt.Sprintf("unparseable markup: %v", err))
		conv.Markdown = strings.TrimSpace(stripTags(storage))
		return conv
	}

	rw := rewriter{from: from, links: links}
	rw.rewrite(doc)
	conv.Degradations = append(conv.Degradations, rw.degradations...)

	body, err := doc.Find("body").Html()
	if err != nil {
		conv.Degradations = append(conv.Degradations, fmt.Sprintf("couldn't serialise rewritten markup: %v", err))
		conv.Markdown = strings.TrimSpace(doc.Text())
		return conv
	}

	markdown, err := c.markdownConverter().ConvertString(body)
	if err != nil {
		conv.Degradations = append(conv.Degradations, fmt.Sprintf("markdown conversion failed, kept plain text: %v", err))
		conv.Markdown = strings.TrimSpace(doc.Text())
		return conv
	}

	conv.Markdown = strings.TrimSpace(markdown)
	return conv
}

// Render converts a page and wraps it with front matter when enabled.  Degradations are logged.
// links may be nil.
func (c *Converter) Render(page confluence.PageContent, webURL string, links PageLinks) (string, Conversion) {
	conv := c.ConvertPage(page.Storage, Resolve(page.PageRef), links)
	for _, d := range conv.Degradations {
		c.Logger.Warn("conversion degraded", "page", page.ID, "title", page.Title, "detail", d)
	}

	if !c.FrontMatter {
		return conv.Markdown + "\n", conv
	}

	header := MarkdownHeader{
		Title:         page.Title,
		ObjectID:      page.ID,
		Space:         page.SpaceKey,
		Version:       page.Version,
		URI:           webURL,
		LastUpdatedBy: page.LastUpdatedBy,
		AncestorNames: page.AncestorTitles,
		AncestorIDs:   page.AncestorIDs,
	}
	if !page.LastUpdated.IsZero() {
		header.Timestamp = page.LastUpdated.UTC().Format(time.RFC3339)
	}
	if !page.CreatedDate.IsZero() {
		header.Created = page.CreatedDate.UTC().Format(time.RFC3339)
	}

	yamlHeader, err := yaml.Marshal(header)
	if err != nil {
		c.Logger.Warn("couldn't marshal front matter, writing body only", "page", page.ID, "error", err)
		return conv.Markdown + "\n", conv
	}

	body := fmt.Sprintf(`---
%s
---
%s
`,
		strings.TrimSpace(string(yamlHeader)),
		conv.Markdown)

	return body, conv
}

func (c *Converter) markdownConverter() *md.Converter {
	domain := ""
	if c.BaseURI != nil {
		domain = c.BaseURI.Host
	}

	// md.NewConverter only accepts a hostname, not a base URI, so we patch up the scheme ourselves:
	// https://github.com/JohannesKaufmann/html-to-markdown/issues/44
	opt := &md.Options{
		CodeBlockStyle:   "fenced",
		HeadingStyle:     "atx",
		BulletListMarker: "-",
		GetAbsoluteURL: func(selec *goquery.Selection, rawURL string, domain string) string {
			// Only root-relative links point back into Confluence.  Page-to-page links are
			// relative file names and must stay that way.
			if domain == "" || !strings.HasPrefix(rawURL, "/") || strings.HasPrefix(rawURL, "//") {
				return rawURL
			}

			u, err := url.Parse(rawURL)
			if err != nil {
				// we can't do anything with this url because it is invalid
				return rawURL
			}

			u.Scheme = c.BaseURI.Scheme
			u.Host = domain

			return u.String()
		},
	}

	converter := md.NewConverter(domain, true, opt)
	// Github flavoured Markdown knows about tables, task lists and strikethrough 👍
	converter.Use(mdplugin.GitHubFlavored())
	return converter
}

var anyTag = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return html.UnescapeString(anyTag.ReplaceAllString(s, " "))
}

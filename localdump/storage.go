package localdump

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Panel macros rendered as blockquotes, with their label.
var panelLabels = map[string]string{
	"info":    "Info",
	"note":    "Note",
	"tip":     "Tip",
	"warning": "Warning",
	"success": "Success",
	"error":   "Error",
	"panel":   "",
}

// Macros whose output is computed by Confluence at view time.  There is nothing to export.
var dynamicMacros = map[string]bool{
	"toc":              true,
	"children":         true,
	"pagetree":         true,
	"recently-updated": true,
	"contentbylabel":   true,
	"livesearch":       true,
	"attachments":      true,
	"include":          true,
	"excerpt-include":  true,
}

// Children of ac:/ri: elements that their parent's handler consumes.
var consumedByParent = map[string]bool{
	"ac:parameter":            true,
	"ac:rich-text-body":       true,
	"ac:plain-text-body":      true,
	"ac:task":                 true,
	"ac:task-id":              true,
	"ac:task-uuid":            true,
	"ac:task-status":          true,
	"ac:task-body":            true,
	"ac:link-body":            true,
	"ac:plain-text-link-body": true,
}

// rewriter replaces Confluence's ac:/ri: storage elements with plain HTML that html-to-markdown
// understands.
type rewriter struct {
	degradations []string

	// Page links resolve against these when set.
	from  ExportTarget
	links PageLinks
}

func (rw *rewriter) degrade(format string, args ...interface{}) {
	rw.degradations = append(rw.degradations, fmt.Sprintf(format, args...))
}

func (rw *rewriter) rewrite(doc *goquery.Document) {
	// Reverse document order visits descendants before their ancestors, so a macro sees its body
	// already rewritten.
	nodes := storageElements(doc.Selection)
	for i := nodes.Length() - 1; i >= 0; i-- {
		rw.element(nodes.Eq(i))
	}

	leftovers := storageElements(doc.Selection)
	for i := leftovers.Length() - 1; i >= 0; i-- {
		rw.leftover(leftovers.Eq(i))
	}
}

func storageElements(s *goquery.Selection) *goquery.Selection {
	return s.Find("*").FilterFunction(func(_ int, el *goquery.Selection) bool {
		name := goquery.NodeName(el)
		return strings.HasPrefix(name, "ac:") || strings.HasPrefix(name, "ri:") || name == "time"
	})
}

func (rw *rewriter) element(s *goquery.Selection) {
	name := goquery.NodeName(s)
	switch {
	case name == "ac:structured-macro" || name == "ac:macro":
		rw.macro(s)
	case name == "ac:task-list":
		rw.taskList(s)
	case name == "ac:link":
		rw.link(s)
	case name == "ac:image":
		rw.image(s)
	case name == "ac:emoticon":
		text := s.AttrOr("ac:emoji-fallback", "")
		if text == "" {
			text = ":" + s.AttrOr("ac:name", "smile") + ":"
		}
		s.ReplaceWithHtml(html.EscapeString(text))
	case name == "time":
		s.ReplaceWithHtml(html.EscapeString(s.AttrOr("datetime", s.Text())))
	case name == "ac:placeholder":
		s.Remove()
	case name == "ac:inline-comment-marker" || strings.HasPrefix(name, "ac:layout"):
		unwrap(s)
	case consumedByParent[name] || strings.HasPrefix(name, "ri:"):
		// handled with the parent
	default:
		rw.degrade("unsupported element <%s> kept as text", name)
		unwrap(s)
	}
}

// leftover cleans up consumable children that turned up without a parent that wants them.
func (rw *rewriter) leftover(s *goquery.Selection) {
	switch name := goquery.NodeName(s); name {
	case "ac:parameter", "ac:task-id", "ac:task-uuid", "ac:task-status":
		s.Remove()
	case "ri:page":
		s.ReplaceWithHtml(html.EscapeString(s.AttrOr("ri:content-title", "")))
	case "ri:user":
		s.ReplaceWithHtml(html.EscapeString(mention(s)))
	case "ri:attachment":
		s.ReplaceWithHtml(html.EscapeString(s.AttrOr("ri:filename", "")))
	case "ri:url":
		href := s.AttrOr("ri:value", "")
		s.ReplaceWithHtml(fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), html.EscapeString(href)))
	default:
		unwrap(s)
	}
}

func (rw *rewriter) macro(s *goquery.Selection) {
	name := strings.ToLower(s.AttrOr("ac:name", ""))
	params := macroParams(s)
	rich := child(s, "ac:rich-text-body")
	plain := child(s, "ac:plain-text-body")

	switch {
	case name == "code" || name == "noformat":
		class := ""
		if lang := strings.ToLower(params["language"]); lang != "" {
			class = fmt.Sprintf(` class="language-%s"`, html.EscapeString(lang))
		}
		s.ReplaceWithHtml(fmt.Sprintf("<pre><code%s>%s</code></pre>", class, html.EscapeString(plain.Text())))

	case hasLabel(name):
		body, _ := rich.Html()
		heading := panelLabels[name]
		if title := params["title"]; title != "" {
			if heading != "" {
				heading += ": "
			}
			heading += title
		}
		var b strings.Builder
		b.WriteString("<blockquote>")
		if heading != "" {
			fmt.Fprintf(&b, "<p><strong>%s</strong></p>", html.EscapeString(heading))
		}
		b.WriteString(body)
		b.WriteString("</blockquote>")
		s.ReplaceWithHtml(b.String())

	case name == "expand":
		body, _ := rich.Html()
		title := params["title"]
		if title == "" {
			title = "Details"
		}
		s.ReplaceWithHtml(fmt.Sprintf("<p><strong>%s</strong></p>%s", html.EscapeString(title), body))

	case name == "status":
		s.ReplaceWithHtml(fmt.Sprintf("<code>%s</code>", html.EscapeString(strings.ToUpper(params["title"]))))

	case name == "jira":
		s.ReplaceWithHtml(html.EscapeString(params["key"]))

	case name == "anchor":
		s.Remove()

	case dynamicMacros[name]:
		rw.degrade("dropped dynamic macro %q", name)
		s.Remove()

	case rich.Length() > 0:
		rw.degrade("unsupported macro %q, kept its body", name)
		body, _ := rich.Html()
		s.ReplaceWithHtml(body)

	case plain.Length() > 0:
		rw.degrade("unsupported macro %q, kept its body as preformatted text", name)
		s.ReplaceWithHtml(fmt.Sprintf("<pre><code>%s</code></pre>", html.EscapeString(plain.Text())))

	default:
		rw.degrade("unsupported macro %q dropped", name)
		s.Remove()
	}
}

func hasLabel(name string) bool {
	_, ok := panelLabels[name]
	return ok
}

func (rw *rewriter) taskList(s *goquery.Selection) {
	var b strings.Builder
	b.WriteString("<ul>")
	children(s, "ac:task").Each(func(_ int, task *goquery.Selection) {
		done := strings.TrimSpace(child(task, "ac:task-status").Text()) == "complete"
		body := child(task, "ac:task-body")

		// Nested task lists are already <ul> by now.  They go after the item's own text.
		var nested strings.Builder
		sublists := body.Children().Filter("ul").AddSelection(children(task, "ul"))
		sublists.Each(func(_ int, ul *goquery.Selection) {
			if h, err := goquery.OuterHtml(ul); err == nil {
				nested.WriteString(h)
			}
		})
		sublists.Remove()
		text, _ := body.Html()

		b.WriteString(`<li><input type="checkbox"`)
		if done {
			b.WriteString(" checked")
		}
		b.WriteString("/>")
		b.WriteString(strings.TrimSpace(text))
		b.WriteString(nested.String())
		b.WriteString("</li>")
	})
	b.WriteString("</ul>")
	s.ReplaceWithHtml(b.String())
}

func (rw *rewriter) link(s *goquery.Selection) {
	anchor := s.AttrOr("ac:anchor", "")

	text := ""
	if plain := child(s, "ac:plain-text-link-body"); plain.Length() > 0 {
		text = html.EscapeString(plain.Text())
	} else if rich := child(s, "ac:link-body"); rich.Length() > 0 {
		text, _ = rich.Html()
	}

	href := ""
	fallback := ""
	switch {
	case child(s, "ri:page").Length() > 0:
		page := child(s, "ri:page")
		title := page.AttrOr("ri:content-title", "")
		fallback = title
		if title == "" {
			break
		}
		if rel, ok := rw.links.Href(rw.from, page.AttrOr("ri:space-key", ""), title); ok {
			href = rel
		} else {
			href = url.PathEscape(Sanitize(title)) + markdownExt
		}
	case child(s, "ri:attachment").Length() > 0:
		name := child(s, "ri:attachment").AttrOr("ri:filename", "")
		fallback = name
		href = url.PathEscape(name)
	case child(s, "ri:user").Length() > 0:
		// Mentions aren't links in Markdown.
		if text == "" {
			text = html.EscapeString(mention(child(s, "ri:user")))
		}
		s.ReplaceWithHtml(text)
		return
	case child(s, "ri:url").Length() > 0:
		href = child(s, "ri:url").AttrOr("ri:value", "")
		fallback = href
	case child(s, "ri:space").Length() > 0:
		fallback = child(s, "ri:space").AttrOr("ri:space-key", "")
	}

	if anchor != "" {
		href += "#" + url.PathEscape(anchor)
		if fallback == "" {
			fallback = anchor
		}
	}
	if text == "" {
		text = html.EscapeString(fallback)
	}

	if href == "" {
		if text == "" {
			rw.degrade("link with no target dropped")
			s.Remove()
			return
		}
		s.ReplaceWithHtml(text)
		return
	}
	s.ReplaceWithHtml(fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), text))
}

func (rw *rewriter) image(s *goquery.Selection) {
	src := ""
	switch {
	case child(s, "ri:attachment").Length() > 0:
		src = url.PathEscape(child(s, "ri:attachment").AttrOr("ri:filename", ""))
	case child(s, "ri:url").Length() > 0:
		src = child(s, "ri:url").AttrOr("ri:value", "")
	}
	if src == "" {
		rw.degrade("image without a source dropped")
		s.Remove()
		return
	}

	alt := s.AttrOr("ac:alt", s.AttrOr("ac:title", ""))
	s.ReplaceWithHtml(fmt.Sprintf(`<img src="%s" alt="%s"/>`, html.EscapeString(src), html.EscapeString(alt)))
}

func mention(user *goquery.Selection) string {
	for _, attr := range []string{"ri:username", "ri:account-id", "ri:userkey"} {
		if v := user.AttrOr(attr, ""); v != "" {
			return "@" + v
		}
	}
	return "@unknown-user"
}

func macroParams(s *goquery.Selection) map[string]string {
	params := map[string]string{}
	children(s, "ac:parameter").Each(func(_ int, p *goquery.Selection) {
		params[strings.ToLower(p.AttrOr("ac:name", ""))] = strings.TrimSpace(p.Text())
	})
	return params
}

func children(s *goquery.Selection, name string) *goquery.Selection {
	return s.Children().FilterFunction(func(_ int, c *goquery.Selection) bool {
		return goquery.NodeName(c) == name
	})
}

func child(s *goquery.Selection, name string) *goquery.Selection {
	return children(s, name).First()
}

// unwrap replaces an element with its contents.
func unwrap(s *goquery.Selection) {
	inner, err := s.Html()
	if err != nil {
		s.ReplaceWithHtml(html.EscapeString(s.Text()))
		return
	}
	s.ReplaceWithHtml(inner)
}

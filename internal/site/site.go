// Package site provides the page chrome shared by every calculator page:
// navigation with the active link marked, the footer and the FAQ.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
)

// SiteName is shown in the footer.
const SiteName = "SipCalculatorWithInflation"

// NavLink is one navigation entry.
type NavLink struct {
	Path   string
	Label  string
	Active bool
}

// AriaCurrent returns the aria-current value for the link, empty when inactive.
func (l NavLink) AriaCurrent() string {
	if l.Active {
		return "page"
	}
	return ""
}

var pages = []NavLink{
	{Path: PathCalculator, Label: "Calculator"},
	{Path: PathGuide, Label: "SIP Guide to ₹1 Crore"},
	{Path: PathContact, Label: "Contact & Legal"},
}

// NormalizePath treats "/index.html" and the empty path as the root.
func NormalizePath(path string) string {
	switch path {
	case "", "/", "/index.html":
		return "/"
	}
	return path
}

// Nav returns the navigation links with the link for currentPath marked active.
func Nav(currentPath string) []NavLink {
	current := NormalizePath(currentPath)
	links := make([]NavLink, len(pages))
	for i, page := range pages {
		page.Active = NormalizePath(page.Path) == current
		links[i] = page
	}
	return links
}

// Footer holds the footer content.
type Footer struct {
	Year     int
	SiteName string
}

// FooterAt returns the footer for the given moment.
func FooterAt(now time.Time) Footer {
	return Footer{Year: now.Year(), SiteName: SiteName}
}

// FAQEntry is one question with its rendered answer.
type FAQEntry struct {
	Question string
	Answer   template.HTML
}

//go:embed content/*.md
var content embed.FS

// Paths of the content pages.
const (
	PathCalculator = "/"
	PathGuide      = "/how-much-sip-for-1-crore-with-inflation.html"
	PathContact    = "/contact-us-and-legal.html"
)

// FAQ renders the embedded FAQ.
func FAQ() ([]FAQEntry, error) {
	source, err := content.ReadFile("content/faq.md")
	if err != nil {
		return nil, fmt.Errorf("read faq: %w", err)
	}
	return ParseFAQ(source)
}

// Article is a rendered content page.
type Article struct {
	Title string
	Body  template.HTML
}

var articles = map[string]string{
	PathGuide:   "content/guide.md",
	PathContact: "content/contact.md",
}

// ArticleFor renders the content page served at path. ok is false when no
// article lives there.
func ArticleFor(path string) (article Article, ok bool, err error) {
	name, ok := articles[path]
	if !ok {
		return Article{}, false, nil
	}
	source, err := content.ReadFile(name)
	if err != nil {
		return Article{}, true, fmt.Errorf("read %s: %w", name, err)
	}
	article, err = ParseArticle(source)
	return article, true, err
}

// ParseArticle renders Markdown whose first line is a level-one heading. The
// heading becomes the title and is left out of the body.
func ParseArticle(source []byte) (Article, error) {
	text := string(source)
	var article Article
	if first, rest, found := strings.Cut(text, "\n"); strings.HasPrefix(first, "# ") {
		article.Title = strings.TrimSpace(strings.TrimPrefix(first, "# "))
		if found {
			text = rest
		} else {
			text = ""
		}
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return Article{}, fmt.Errorf("render article %q: %w", article.Title, err)
	}
	article.Body = template.HTML(buf.String())
	return article, nil
}

// ParseFAQ splits Markdown on level-two headings; each heading is a question
// and the Markdown up to the next heading its answer.
func ParseFAQ(source []byte) ([]FAQEntry, error) {
	var entries []FAQEntry
	var question string
	var body []string

	flush := func() error {
		if question == "" {
			return nil
		}
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(strings.Join(body, "\n")), &buf); err != nil {
			return fmt.Errorf("render answer to %q: %w", question, err)
		}
		entries = append(entries, FAQEntry{
			Question: question,
			Answer:   template.HTML(strings.TrimSpace(buf.String())),
		})
		return nil
	}

	for _, line := range strings.Split(string(source), "\n") {
		if strings.HasPrefix(line, "## ") {
			if err := flush(); err != nil {
				return nil, err
			}
			question = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			body = body[:0]
			continue
		}
		body = append(body, line)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return entries, nil
}

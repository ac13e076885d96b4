package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"
	"github.com/mmcdole/gofeed"

	"dailybrief/internal/logger"
	"dailybrief/internal/model"
)

// Parser fetches RSS/Atom feeds and normalizes entries into Articles.
// gofeed degrades malformed XML to a best-effort partial parse, which is all
// we promise for broken feeds.
type Parser struct {
	fp          *gofeed.Parser
	defaultLang string
	log         *slog.Logger
}

func NewParser(timeout time.Duration, defaultLang string) *Parser {
	fp := gofeed.NewParser()
	fp.Client = &http.Client{Timeout: timeout}
	if defaultLang == "" {
		defaultLang = "en"
	}
	return &Parser{
		fp:          fp,
		defaultLang: defaultLang,
		log:         logger.With("feed"),
	}
}

// Fetch downloads and parses one source's feed. Network errors, non-200
// responses and unparseable bodies all surface as a single error; the caller
// isolates them per source.
func (p *Parser) Fetch(ctx context.Context, source model.ContentSource) ([]model.Article, error) {
	parsed, err := p.fp.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", source.URL, err)
	}

	articles := make([]model.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		article, ok := p.normalizeEntry(item, source)
		if !ok {
			continue
		}
		articles = append(articles, article)
	}

	p.log.Debug("parsed feed", "source", source.Name, "url", source.URL, "articles", len(articles))
	return articles, nil
}

func (p *Parser) normalizeEntry(item *gofeed.Item, source model.ContentSource) (model.Article, bool) {
	if item.Link == "" || strings.TrimSpace(item.Title) == "" {
		return model.Article{}, false
	}

	summary := StripHTML(item.Description)
	content := StripHTML(item.Content)
	if content == "" {
		content = summary
	}

	author := ""
	if item.Author != nil {
		author = item.Author.Name
	}

	var published *time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed
	}

	topics := make([]string, 0, len(item.Categories))
	for _, c := range item.Categories {
		if c = strings.TrimSpace(c); c != "" {
			topics = append(topics, c)
		}
	}

	lang := p.detectLanguage(item.Title+" "+summary, source.Language)

	return model.Article{
		ID:           model.ArticleID(item.Link),
		SourceID:     source.ID,
		SourceName:   source.Name,
		Title:        strings.TrimSpace(item.Title),
		Summary:      summary,
		Content:      content,
		URL:          item.Link,
		Author:       author,
		PublishedAt:  published,
		FetchedAt:    time.Now(),
		Language:     lang,
		Topics:       topics,
		SourceWeight: source.Weight,
	}, true
}

// detectLanguage guesses the language of title+summary. Short or ambiguous
// text falls back to the source language, then the configured default.
func (p *Parser) detectLanguage(text, sourceLang string) string {
	fallback := sourceLang
	if fallback == "" {
		fallback = p.defaultLang
	}

	text = strings.TrimSpace(text)
	if len(text) < 10 {
		return fallback
	}

	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" || !info.IsReliable() {
		return fallback
	}
	return code
}

// StripHTML reduces an HTML fragment to plain text with collapsed whitespace.
func StripHTML(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.ContainsRune(raw, '<') {
		return strings.Join(strings.Fields(raw), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.Join(strings.Fields(raw), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

package importers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/mrlokans/wordpack/internal/entities"
	"github.com/mrlokans/wordpack/internal/mentions"
)

// maxPageSize caps fetched HTML.
const maxPageSize = 10 * 1024 * 1024

var (
	ErrInvalidURL   = errors.New("article url must be absolute http(s)")
	ErrEmptyArticle = errors.New("no readable content found")
)

// Page is the readable part of a web page.
type Page struct {
	URL      string
	Title    string
	Byline   string
	SiteName string
	Text     string
}

// Fetcher downloads pages and extracts their readable content.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a Fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Fetcher{httpClient: &http.Client{Timeout: timeout}}
}

func parseArticleURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// Fetch downloads rawURL and extracts its readable content.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := parseArticleURL(rawURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Wordpack/1.0 (+https://github.com/mrlokans/wordpack)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if resp.ContentLength > maxPageSize {
		return nil, fmt.Errorf("page too large: %d bytes", resp.ContentLength)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	if len(body) > maxPageSize {
		return nil, fmt.Errorf("page exceeds %d bytes", maxPageSize)
	}
	return Extract(u, body)
}

// Extract runs readability over an HTML document.
func Extract(u *url.URL, html []byte) (*Page, error) {
	article, err := readability.FromReader(bytes.NewReader(html), u)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, ErrEmptyArticle
	}
	return &Page{
		URL:      u.String(),
		Title:    strings.TrimSpace(article.Title),
		Byline:   article.Byline,
		SiteName: article.SiteName,
		Text:     text,
	}, nil
}

// ArticleWriter persists articles.
type ArticleWriter interface {
	SaveArticle(ctx context.Context, article entities.Article, related []entities.RelatedPack) (string, error)
}

// ArticleResult reports an imported article.
type ArticleResult struct {
	ArticleID string                 `json:"article_id"`
	Title     string                 `json:"title"`
	Related   []entities.RelatedPack `json:"related_packs"`
}

// ArticleImporter stores fetched pages as articles linked to the packs they mention.
type ArticleImporter struct {
	fetcher *Fetcher
	writer  ArticleWriter
	labels  mentions.LabelSource
}

// NewArticleImporter creates an importer. labels may be nil to skip auto-linking.
func NewArticleImporter(fetcher *Fetcher, writer ArticleWriter, labels mentions.LabelSource) *ArticleImporter {
	return &ArticleImporter{fetcher: fetcher, writer: writer, labels: labels}
}

// Import fetches rawURL and saves it as an article.
func (i *ArticleImporter) Import(ctx context.Context, rawURL string) (*ArticleResult, error) {
	page, err := i.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return i.Save(ctx, page)
}

// ImportHTML saves an already downloaded document as an article.
func (i *ArticleImporter) ImportHTML(ctx context.Context, rawURL string, html []byte) (*ArticleResult, error) {
	u, err := parseArticleURL(rawURL)
	if err != nil {
		return nil, err
	}
	page, err := Extract(u, html)
	if err != nil {
		return nil, err
	}
	return i.Save(ctx, page)
}

// Save stores page and links it to every pack whose label it mentions.
func (i *ArticleImporter) Save(ctx context.Context, page *Page) (*ArticleResult, error) {
	var related []entities.RelatedPack
	if i.labels != nil {
		detector, err := mentions.Load(ctx, i.labels)
		if err != nil {
			return nil, fmt.Errorf("load pack labels: %w", err)
		}
		for _, ref := range detector.DetectPacks(page.Text) {
			related = append(related, entities.RelatedPack{
				PackID: ref.ID,
				Label:  ref.Label,
				Status: entities.LinkStatusExisting,
			})
		}
	}

	title := page.Title
	if title == "" {
		title = page.URL
	}
	id, err := i.writer.SaveArticle(ctx, entities.Article{
		Title:              title,
		BodySource:         page.Text,
		SourceURL:          page.URL,
		GenerationCategory: "import",
	}, related)
	if err != nil {
		return nil, err
	}

	log.Printf("[IMPORT] article %s from %s linked to %d packs", id, page.URL, len(related))
	return &ArticleResult{ArticleID: id, Title: title, Related: related}, nil
}

package scrape

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Defaults for LocalScraper.
const (
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultFetchTimeout = 15 * time.Second
	DefaultMaxBodyBytes = 2 << 20
)

// LocalOptions configures a LocalScraper. Zero values take the defaults.
type LocalOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// LocalScraper fetches pages directly over HTTP and cleans them with goquery.
// No API calls; blocked pages fall through to the next scraper in the chain.
type LocalScraper struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// NewLocalScraper creates a LocalScraper.
func NewLocalScraper(opts LocalOptions) *LocalScraper {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &LocalScraper{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
	}
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, rejects anti-bot pages, and reduces the body to text.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBody))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", kind)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, eris.Wrapf(err, "local_http: parse content type %q", contentType)
	}

	decoded, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: decode charset")
	}

	var title, text string
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		title, text, err = htmlText(decoded)
		if err != nil {
			return nil, err
		}
	case "text/plain":
		raw, err := io.ReadAll(decoded)
		if err != nil {
			return nil, eris.Wrap(err, "local_http: read decoded body")
		}
		text = CleanText(string(raw))
	default:
		return nil, eris.Errorf("local_http: unsupported content type %s", mediaType)
	}

	if text == "" {
		return nil, eris.New("local_http: empty page")
	}

	return &Result{
		URL:        targetURL,
		Title:      title,
		Text:       text,
		StatusCode: resp.StatusCode,
		Source:     "local_http",
	}, nil
}

// htmlText parses an HTML document and returns its title and visible text.
func htmlText(r io.Reader) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", eris.Wrap(err, "local_http: parse html")
	}
	doc.Find("script, style, noscript, template, svg").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	var sb strings.Builder
	for _, n := range doc.Selection.Nodes {
		writeText(&sb, n)
	}
	return title, CleanText(sb.String()), nil
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "td": true, "th": true, "title": true,
	"tr": true, "ul": true,
}

// writeText appends the text under n, breaking lines around block elements
// so that minified markup still yields one line per block.
func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		sb.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if block {
		sb.WriteByte('\n')
	}
}

// CleanText trims every line, breaks lines further on runs of two spaces,
// drops blank pieces, and joins the rest with newlines.
func CleanText(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				out = append(out, phrase)
			}
		}
	}
	return strings.Join(out, "\n")
}

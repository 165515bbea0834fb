package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/pkg/anthropic"
)

// scrapedPage is the shape the scrape prompt asks the model for.
type scrapedPage struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

// ingest produces the text and domain for a submission. URL content is
// extracted by the model with a scraping-style prompt; when that yields
// nothing, a direct fetch stripped with goquery is tried before giving up.
func (o *Orchestrator) ingest(ctx context.Context, sub model.Submission) (*model.IngestionResult, string, error) {
	switch {
	case sub.URL != "":
		res, err := o.ingestURL(ctx, sub)
		if err != nil {
			return nil, "", err
		}
		detail := "Content extracted"
		if res.Text == "" {
			detail = "No main text found"
		}
		return res, detail, nil

	case sub.Text != "":
		return &model.IngestionResult{
			Text: normalizeText(sub.Text),
		}, "Text processed", nil

	default:
		// Image or video only: nothing textual to extract.
		return &model.IngestionResult{}, "Media received", nil
	}
}

func (o *Orchestrator) ingestURL(ctx context.Context, sub model.Submission) (*model.IngestionResult, error) {
	domain, err := domainOf(sub.URL)
	if err != nil {
		return nil, newError(ErrKindIngestion, model.StageIngestion, err)
	}

	resp, err := o.createMessage(ctx, anthropic.MessageRequest{
		Model:     o.cfg.Anthropic.AnalysisModel,
		MaxTokens: o.cfg.Anthropic.MaxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(scrapePromptTemplate, sub.URL)},
		},
	})
	if err != nil {
		return nil, newError(ErrKindIngestion, model.StageIngestion, err)
	}

	text := extractScrapedText(resp.FirstText())
	if text == "" {
		text = o.fetchFallback(ctx, sub.URL)
	}
	if text == "" && sub.Text != "" {
		text = sub.Text
	}

	return &model.IngestionResult{
		Text:   normalizeText(text),
		Domain: domain,
	}, nil
}

// extractScrapedText pulls the extracted content out of the model reply.
// A raw-fallback payload is used verbatim: tolerating non-conforming model
// output beats losing the content.
func extractScrapedText(reply string) string {
	payload := ExtractPayload(reply)

	var page scrapedPage
	if ok, err := payload.Decode(&page); ok && err == nil {
		return strings.TrimSpace(page.Text)
	} else if err != nil {
		zap.L().Debug("ingest: scrape payload not decodable, using raw text", zap.Error(err))
	}
	return payload.Raw
}

// fetchFallback retrieves the URL directly and strips it to text. Any
// failure here is logged and swallowed; the model extraction already ran.
func (o *Orchestrator) fetchFallback(ctx context.Context, rawURL string) string {
	timeout := time.Duration(o.cfg.Pipeline.FetchTimeoutSecs) * time.Second
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		zap.L().Warn("ingest: direct fetch failed", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("ingest: direct fetch non-200", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		zap.L().Warn("ingest: parse fetched html", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	doc.Find("script, style, nav, header, footer, aside").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(body.Text()), " ")
}

func domainOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "ingest: parse url %s", rawURL)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", eris.Errorf("ingest: url has no host: %s", rawURL)
	}
	return strings.TrimPrefix(host, "www."), nil
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

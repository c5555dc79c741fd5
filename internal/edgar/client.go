// Package edgar fetches filing metadata, filing documents, and XBRL
// company facts from SEC EDGAR, within the fair-access rate limits.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/oakline-research/rating-cli/internal/config"
	"github.com/oakline-research/rating-cli/internal/model"
)

// Options configures the EDGAR client.
type Options struct {
	BaseURL    string
	UserAgent  string
	RatePerSec float64
	Timeout    time.Duration
	MaxRetries int
}

// Client talks to the EDGAR JSON and archive endpoints. All outbound
// requests share one limiter; EDGAR rate-limits by requester, not by
// endpoint.
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
}

// FromConfig builds client options from the edgar config section.
func FromConfig(cfg config.EdgarConfig) Options {
	return Options{
		BaseURL:    cfg.BaseURL,
		UserAgent:  cfg.UserAgent,
		RatePerSec: cfg.RatePerSec,
		Timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
		MaxRetries: cfg.MaxRetries,
	}
}

// NewClient creates an EDGAR client with retry and rate limiting.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.sec.gov"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "rating-cli/1.0 research@oakline.dev"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 8
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), int(opts.RatePerSec)),
	}
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "edgar: create request")
	}
	// Leave Accept-Encoding to the transport: setting it by hand disables
	// net/http's transparent gzip decoding and EDGAR compresses responses.
	req.Header.Set("User-Agent", c.opts.UserAgent)

	var lastErr error
	for attempt := range c.opts.MaxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "edgar: rate limiter wait")
		}

		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			zap.L().Warn("edgar request failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("edgar: http %d from %s", resp.StatusCode, rawURL)
			zap.L().Warn("edgar throttled or erroring, backing off",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, eris.Errorf("edgar: unexpected status %d from %s", resp.StatusCode, rawURL)
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, eris.Wrap(err, "edgar: read body")
		}
		return body, nil
	}
	return nil, eris.Wrap(lastErr, "edgar: all retries exhausted")
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	base := time.Second
	maxBackoff := 30 * time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// tickerEntry is one row of the company_tickers.json index.
type tickerEntry struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// ResolveCIK maps a ticker symbol to a zero-padded 10-digit CIK.
func (c *Client) ResolveCIK(ctx context.Context, ticker string) (string, error) {
	body, err := c.get(ctx, c.opts.BaseURL+"/files/company_tickers.json")
	if err != nil {
		return "", err
	}

	var index map[string]tickerEntry
	if err := json.Unmarshal(body, &index); err != nil {
		return "", eris.Wrap(err, "edgar: parse ticker index")
	}

	want := strings.ToUpper(strings.TrimSpace(ticker))
	for _, e := range index {
		if strings.ToUpper(e.Ticker) == want {
			return fmt.Sprintf("%010d", e.CIK), nil
		}
	}
	return "", eris.Errorf("edgar: ticker not found: %s", ticker)
}

// submissionsDoc mirrors the shape of data.sec.gov/submissions/CIK*.json.
type submissionsDoc struct {
	CIK            string `json:"cik"`
	Name           string `json:"name"`
	SICDescription string `json:"sicDescription"`
	Filings        struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// Submissions fetches the recent filing index for a CIK, newest first, and
// the company profile carried in the same payload.
func (c *Client) Submissions(ctx context.Context, cik string) (model.Profile, []model.Filing, error) {
	u := submissionsURL(c.opts.BaseURL, cik)
	body, err := c.get(ctx, u)
	if err != nil {
		return model.Profile{}, nil, err
	}

	var doc submissionsDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return model.Profile{}, nil, eris.Wrap(err, "edgar: parse submissions")
	}

	recent := doc.Filings.Recent
	profile := model.Profile{
		Name:   doc.Name,
		CIK:    cik,
		Sector: doc.SICDescription,
	}

	var filings []model.Filing
	for i := range recent.Form {
		filed, err := time.Parse("2006-01-02", at(recent.FilingDate, i))
		if err != nil {
			continue
		}
		form := recent.Form[i]
		if form == "20-F" || form == "40-F" {
			profile.ForeignFiler = true
		}
		accession := at(recent.AccessionNumber, i)
		primary := at(recent.PrimaryDocument, i)
		filings = append(filings, model.Filing{
			Form:       form,
			Filed:      filed,
			Accession:  accession,
			CIK:        cik,
			PrimaryDoc: primary,
			DocURL:     archiveURL(c.opts.BaseURL, cik, accession, primary),
		})
	}
	return profile, filings, nil
}

// Document fetches a filing's primary document and strips it to plain text.
func (c *Client) Document(ctx context.Context, f model.Filing) (string, error) {
	if f.DocURL == "" {
		return "", eris.Errorf("edgar: filing %s has no document URL", f.Accession)
	}
	body, err := c.get(ctx, f.DocURL)
	if err != nil {
		return "", err
	}
	text, err := StripHTML(strings.NewReader(string(body)))
	if err != nil {
		return "", eris.Wrapf(err, "edgar: strip %s", f.DocURL)
	}
	return text, nil
}

// CompanyFacts fetches and parses the XBRL company facts for a CIK.
func (c *Client) CompanyFacts(ctx context.Context, cik string) (*CompanyFacts, error) {
	u := factsURL(c.opts.BaseURL, cik)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	return ParseCompanyFacts(strings.NewReader(string(body)))
}

func submissionsURL(base, cik string) string {
	if host := dataHost(base); host != "" {
		return host + "/submissions/CIK" + padCIK(cik) + ".json"
	}
	return base + "/submissions/CIK" + padCIK(cik) + ".json"
}

func factsURL(base, cik string) string {
	if host := dataHost(base); host != "" {
		return host + "/api/xbrl/companyfacts/CIK" + padCIK(cik) + ".json"
	}
	return base + "/api/xbrl/companyfacts/CIK" + padCIK(cik) + ".json"
}

// dataHost swaps www.sec.gov for data.sec.gov; JSON APIs live on the data
// host while the ticker index and archives stay on www. A non-SEC base
// (tests) is returned empty so callers keep the base as-is.
func dataHost(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host != "www.sec.gov" {
		return ""
	}
	u.Host = "data.sec.gov"
	return u.String()
}

func archiveURL(base, cik, accession, primary string) string {
	if accession == "" || primary == "" {
		return ""
	}
	trimmed := strings.TrimLeft(padCIK(cik), "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
		base, trimmed, strings.ReplaceAll(accession, "-", ""), primary)
}

func padCIK(cik string) string {
	n, err := strconv.Atoi(strings.TrimSpace(cik))
	if err != nil {
		return cik
	}
	return fmt.Sprintf("%010d", n)
}

func at(ss []string, i int) string {
	if i < len(ss) {
		return ss[i]
	}
	return ""
}

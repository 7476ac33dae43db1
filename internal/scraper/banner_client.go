package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/coursescout/coursescout-api/pkg/config"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
	"github.com/coursescout/coursescout-api/pkg/retry"
)

var subjectCodePattern = regexp.MustCompile(`^[A-Za-z]{2,4}$`)

// Client fetches schedule documents from the upstream Banner/PAWS system.
// Each subject fetch is the two-step form sequence the upstream requires:
// a term-select POST to establish context, then the subject search POST.
type Client struct {
	httpClient *http.Client
	cfg        config.ScraperConfig
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient constructs a schedule source client.
func NewClient(cfg config.ScraperConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.ConcurrentRequests
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger,
	}
}

// FetchSubject returns the raw search-results document for one term/subject.
// Transient network failures are retried with exponential backoff; HTTP
// error statuses are structural and fail immediately.
func (c *Client) FetchSubject(ctx context.Context, term, subject string) (string, error) {
	subject = strings.ToUpper(strings.TrimSpace(subject))
	if !subjectCodePattern.MatchString(subject) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid subject code %q", subject))
	}

	policy := retry.Policy{
		MaxAttempts:  c.cfg.MaxRetries,
		InitialDelay: c.cfg.RetryDelay,
		MaxDelay:     c.cfg.MaxRetryDelay,
		Retryable:    retry.IsTransientNetwork,
		Logger:       c.logger,
	}

	var document string
	err := retry.Do(ctx, policy, "fetch_subject", func(ctx context.Context) error {
		body, err := c.fetchOnce(ctx, term, subject)
		if err != nil {
			return err
		}
		document = body
		return nil
	})
	if err != nil {
		return "", err
	}
	return document, nil
}

func (c *Client) fetchOnce(ctx context.Context, term, subject string) (string, error) {
	// Step 1: establish term context.
	termData := url.Values{}
	termData.Set("p_calling_proc", "bwckschd.p_disp_dyn_sched")
	termData.Set("p_term", term)

	if _, err := c.postForm(ctx, c.cfg.BaseURL+c.cfg.TermSelectPath, termData); err != nil {
		return "", fmt.Errorf("term select for %s: %w", term, err)
	}

	// Step 2: submit the subject search. The upstream form requires every
	// select list to carry a "dummy" sentinel entry.
	searchData := url.Values{}
	searchData.Set("term_in", term)
	searchData["sel_subj"] = []string{"dummy", subject}
	for _, field := range []string{"sel_day", "sel_schd", "sel_insm", "sel_levl", "sel_sess", "sel_attr"} {
		searchData.Set(field, "dummy")
	}
	searchData.Set("sel_camp", "%")
	searchData.Set("sel_ptrm", "%")
	searchData.Set("sel_instr", "%")
	searchData.Set("sel_crse", "")
	searchData.Set("sel_title", "")
	searchData.Set("sel_from_cred", "")
	searchData.Set("sel_to_cred", "")
	searchData.Set("begin_hh", "0")
	searchData.Set("begin_mi", "0")
	searchData.Set("begin_ap", "a")
	searchData.Set("end_hh", "0")
	searchData.Set("end_mi", "0")
	searchData.Set("end_ap", "a")

	body, err := c.postForm(ctx, c.cfg.BaseURL+c.cfg.SearchPath, searchData)
	if err != nil {
		return "", fmt.Errorf("subject search %s/%s: %w", term, subject, err)
	}
	return body, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// Drain so the connection can be reused, then fail without retry.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", appErrors.Clone(appErrors.ErrUpstreamStatus, fmt.Sprintf("upstream returned %d for %s", resp.StatusCode, endpoint))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

package cms

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/complykit/privacy-comply/internal/domain/connectors"
	"github.com/complykit/privacy-comply/internal/infra/connectors/rest"
	"github.com/complykit/privacy-comply/internal/infra/connectors/trail"
	"github.com/complykit/privacy-comply/internal/infra/detect"
)

// page and comment are the CMS wire shapes
type page struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Body    string `json:"body"` // rendered HTML
}

type comment struct {
	ID        string    `json:"id"`
	PagePath  string    `json:"page_path"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// knownTrackers maps script host fragments to the tracker product reported
// in findings. Matching is substring-based over script/src markup.
var knownTrackers = map[string]string{
	"googletagmanager.com":  "google_tag_manager",
	"google-analytics.com":  "google_analytics",
	"connect.facebook.net":  "facebook_pixel",
	"static.hotjar.com":     "hotjar",
	"cdn.segment.com":       "segment",
	"snap.licdn.com":        "linkedin_insight",
	"analytics.tiktok.com":  "tiktok_pixel",
}

var scriptSrcRe = regexp.MustCompile(`(?i)<script[^>]+src=["']([^"']+)["']`)

// Connector scans a REST CMS (pages and comments) for personal data and
// embedded third-party trackers.
type Connector struct {
	connectors.Lifecycle
	trail.Trail

	name string

	mu  sync.Mutex
	api *rest.Client
}

func New(settings connectors.Settings) (*Connector, error) {
	name := settings["name"]
	if name == "" {
		name = "cms"
	}
	return &Connector{name: name}, nil
}

func (c *Connector) Name() string          { return c.name }
func (c *Connector) Kind() connectors.Kind { return connectors.KindCMS }

func (c *Connector) Connect(ctx context.Context, creds connectors.Credentials) error {
	if creds.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", connectors.ErrConnectivity)
	}
	api := rest.New(strings.TrimSuffix(creds.Endpoint, "/"), creds.Token)

	var probe []page
	if err := api.GetJSON(ctx, "/pages", url.Values{"limit": {"1"}}, &probe); err != nil {
		c.Record("connect", "", err)
		return err
	}

	c.mu.Lock()
	c.api = api
	c.mu.Unlock()
	c.Record("connect", "endpoint="+creds.Endpoint, nil)
	return nil
}

func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.api = nil
	c.mu.Unlock()
	c.Record("disconnect", "", nil)
	return nil
}

func (c *Connector) conn() (*rest.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api == nil {
		return nil, connectors.ErrNotConnected
	}
	return c.api, nil
}

func (c *Connector) Health(ctx context.Context) connectors.ConnectorHealth {
	h := connectors.ConnectorHealth{CheckedAt: time.Now()}
	api, err := c.conn()
	if err != nil {
		h.Status = "unhealthy"
		h.Message = err.Error()
		return h
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var probe []page
	if err := api.GetJSON(probeCtx, "/pages", url.Values{"limit": {"1"}}, &probe); err != nil {
		h.Status = "degraded"
		h.Connected = true
		h.Message = err.Error()
		return h
	}
	h.Status = "healthy"
	h.Connected = true
	return h
}

// Scan covers pages, comments and trackers in one pass
func (c *Connector) Scan(ctx context.Context, cfg connectors.ScanConfiguration) (*connectors.ScanResult, error) {
	res := &connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}

	pages, err := c.fetchPages(ctx, cfg.Scopes)
	if err != nil {
		c.Record("scan", "", err)
		return nil, err
	}
	for _, p := range pages {
		location := "cms/page" + p.Path
		res.Findings = append(res.Findings, detect.Scan(location, p.Body, cfg.PIITypes, cfg.SampleContent)...)
		res.Findings = append(res.Findings, trackersIn(location, p.Body)...)
		res.RecordsScanned++
	}

	comments, err := c.fetchComments(ctx, cfg.Since)
	if err != nil {
		c.Record("scan", "", err)
		return nil, err
	}
	for _, cm := range comments {
		location := "cms/comment/" + cm.ID
		blob := strings.Join([]string{cm.Author, cm.Email, cm.Body}, "\n")
		res.Findings = append(res.Findings, detect.Scan(location, blob, cfg.PIITypes, cfg.SampleContent)...)
		res.RecordsScanned++
	}

	res.CompletedAt = time.Now()
	c.Record("scan", fmt.Sprintf("records=%d findings=%d", res.RecordsScanned, len(res.Findings)), nil)
	return res, nil
}

// Remediate supports delete (comments only) and notify. Pages are editorial
// content; deleting them is out of bounds for an automated pass.
func (c *Connector) Remediate(ctx context.Context, actions []connectors.RemediationAction) (*connectors.RemediationResult, error) {
	api, err := c.conn()
	if err != nil {
		return nil, err
	}

	res := &connectors.RemediationResult{ConnectorName: c.name, AppliedAt: time.Now()}
	for _, a := range actions {
		outcome := connectors.ActionOutcome{FindingID: a.FindingID, Type: a.Type}
		switch a.Type {
		case connectors.ActionDelete:
			id, ok := strings.CutPrefix(a.Location, "cms/comment/")
			if !ok {
				outcome.Error = fmt.Sprintf("delete only supported for comments, got %q", a.Location)
				break
			}
			if derr := api.Delete(ctx, "/comments/"+id); derr != nil {
				outcome.Error = derr.Error()
				break
			}
			outcome.Succeeded = true
		case connectors.ActionNotify:
			c.Record("remediate.notify", a.Location, nil)
			outcome.Succeeded = true
		default:
			outcome.Error = fmt.Sprintf("action %q not supported by cms connector", a.Type)
		}
		res.Outcomes = append(res.Outcomes, outcome)
	}
	c.Record("remediate", fmt.Sprintf("actions=%d failed=%d", len(actions), len(res.Failed())), nil)
	return res, nil
}

// ScanPages implements connectors.CMSScanner
func (c *Connector) ScanPages(ctx context.Context, paths []string) (*connectors.ScanResult, error) {
	res := &connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}
	pages, err := c.fetchPages(ctx, paths)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		res.Findings = append(res.Findings, detect.Scan("cms/page"+p.Path, p.Body, nil, true)...)
		res.RecordsScanned++
	}
	res.CompletedAt = time.Now()
	return res, nil
}

// ScanComments implements connectors.CMSScanner
func (c *Connector) ScanComments(ctx context.Context, since time.Time) (*connectors.ScanResult, error) {
	res := &connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}
	comments, err := c.fetchComments(ctx, since)
	if err != nil {
		return nil, err
	}
	for _, cm := range comments {
		blob := strings.Join([]string{cm.Author, cm.Email, cm.Body}, "\n")
		res.Findings = append(res.Findings, detect.Scan("cms/comment/"+cm.ID, blob, nil, true)...)
		res.RecordsScanned++
	}
	res.CompletedAt = time.Now()
	return res, nil
}

// DetectTrackers implements connectors.CMSScanner
func (c *Connector) DetectTrackers(ctx context.Context, paths []string) (*connectors.ScanResult, error) {
	res := &connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}
	pages, err := c.fetchPages(ctx, paths)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		res.Findings = append(res.Findings, trackersIn("cms/page"+p.Path, p.Body)...)
		res.RecordsScanned++
	}
	res.CompletedAt = time.Now()
	return res, nil
}

// ValidateConfiguration implements connectors.ConfigValidator
func (c *Connector) ValidateConfiguration(cfg connectors.ScanConfiguration) error {
	for _, scope := range cfg.Scopes {
		if !strings.HasPrefix(scope, "/") {
			return fmt.Errorf("%w: page scope %q must be an absolute path", connectors.ErrConfiguration, scope)
		}
	}
	return nil
}

// DefaultConfiguration implements connectors.ConfigValidator
func (c *Connector) DefaultConfiguration() connectors.ScanConfiguration {
	return connectors.ScanConfiguration{SampleContent: true}
}

// TestConnection implements connectors.ConfigValidator
func (c *Connector) TestConnection(ctx context.Context) error {
	api, err := c.conn()
	if err != nil {
		return err
	}
	var probe []page
	return api.GetJSON(ctx, "/pages", url.Values{"limit": {"1"}}, &probe)
}

// SupportedScanOptions implements connectors.ConfigValidator
func (c *Connector) SupportedScanOptions() []string {
	return append(detect.SupportedTypes(), "tracker")
}

func (c *Connector) fetchPages(ctx context.Context, paths []string) ([]page, error) {
	api, err := c.conn()
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	if len(paths) > 0 {
		params.Set("paths", strings.Join(paths, ","))
	}
	var pages []page
	if err := api.GetJSON(ctx, "/pages", params, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

func (c *Connector) fetchComments(ctx context.Context, since time.Time) ([]comment, error) {
	api, err := c.conn()
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	if !since.IsZero() {
		params.Set("since", since.Format(time.RFC3339))
	}
	var comments []comment
	if err := api.GetJSON(ctx, "/comments", params, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// trackersIn reports one "tracker" finding per known tracker script in the markup
func trackersIn(location, html string) []connectors.PIIFinding {
	now := time.Now()
	var out []connectors.PIIFinding
	seen := map[string]bool{}
	for _, m := range scriptSrcRe.FindAllStringSubmatch(html, -1) {
		src := strings.ToLower(m[1])
		for host, product := range knownTrackers {
			if strings.Contains(src, host) && !seen[product] {
				seen[product] = true
				out = append(out, connectors.PIIFinding{
					ID:           uuid.New().String(),
					Type:         "tracker",
					Location:     location,
					MaskedSample: product,
					Severity:     connectors.SeverityMedium,
					Confidence:   0.99,
					DetectedAt:   now,
				})
			}
		}
	}
	return out
}

package crm

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/complykit/privacy-comply/internal/domain/connectors"
	"github.com/complykit/privacy-comply/internal/infra/connectors/rest"
	"github.com/complykit/privacy-comply/internal/infra/connectors/trail"
	"github.com/complykit/privacy-comply/internal/infra/detect"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultPageSize     = 100
)

// contact is the wire shape shared by /contacts and /leads
type contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes"`
	Owner     string    `json:"owner"`
	Segment   string    `json:"segment"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Connector scans a REST CRM API (contacts and leads) for personal data.
type Connector struct {
	connectors.Lifecycle
	trail.Trail

	name         string
	pollInterval time.Duration

	mu  sync.Mutex
	api *rest.Client

	rtMu     sync.Mutex
	rtCancel context.CancelFunc
	rtDone   chan struct{}
}

func New(settings connectors.Settings) (*Connector, error) {
	name := settings["name"]
	if name == "" {
		name = "crm"
	}
	interval := defaultPollInterval
	if v := settings["poll_interval"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid poll_interval %q: %w", v, err)
		}
		interval = d
	}
	return &Connector{name: name, pollInterval: interval}, nil
}

func (c *Connector) Name() string          { return c.name }
func (c *Connector) Kind() connectors.Kind { return connectors.KindCRM }

func (c *Connector) Connect(ctx context.Context, creds connectors.Credentials) error {
	if creds.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", connectors.ErrConnectivity)
	}
	api := rest.New(strings.TrimSuffix(creds.Endpoint, "/"), creds.Token)

	// a 1-record probe exercises both reachability and the token
	params := url.Values{"limit": {"1"}}
	var probe []contact
	if err := api.GetJSON(ctx, "/contacts", params, &probe); err != nil {
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
	// an active monitor must not outlive the session
	_ = c.StopRealtimeMonitoring()
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
	var probe []contact
	if err := api.GetJSON(probeCtx, "/contacts", url.Values{"limit": {"1"}}, &probe); err != nil {
		h.Status = "degraded"
		h.Connected = true
		h.Message = err.Error()
		return h
	}
	h.Status = "healthy"
	h.Connected = true
	return h
}

func (c *Connector) Scan(ctx context.Context, cfg connectors.ScanConfiguration) (*connectors.ScanResult, error) {
	res := &connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}

	for _, resource := range scanResources(cfg.Scopes) {
		records, err := c.fetch(ctx, resource, connectors.ContactFilter{
			ModifiedSince: cfg.Since,
			Limit:         cfg.MaxRecords,
		})
		if err != nil {
			c.Record("scan", "resource="+resource, err)
			return nil, err
		}
		for _, rec := range records {
			location := fmt.Sprintf("crm/%s/%s", strings.TrimSuffix(resource, "s"), rec.ID)
			res.Findings = append(res.Findings, detect.Scan(location, recordBlob(rec), cfg.PIITypes, cfg.SampleContent)...)
			res.RecordsScanned++
		}
	}

	res.CompletedAt = time.Now()
	c.Record("scan", fmt.Sprintf("records=%d findings=%d", res.RecordsScanned, len(res.Findings)), nil)
	return res, nil
}

func (c *Connector) Remediate(ctx context.Context, actions []connectors.RemediationAction) (*connectors.RemediationResult, error) {
	api, err := c.conn()
	if err != nil {
		return nil, err
	}

	res := &connectors.RemediationResult{ConnectorName: c.name, AppliedAt: time.Now()}
	for _, a := range actions {
		outcome := connectors.ActionOutcome{FindingID: a.FindingID, Type: a.Type}
		resource, id, perr := splitLocation(a.Location)
		if perr != nil {
			outcome.Error = perr.Error()
			res.Outcomes = append(res.Outcomes, outcome)
			continue
		}
		switch a.Type {
		case connectors.ActionDelete:
			if derr := api.Delete(ctx, fmt.Sprintf("/%ss/%s", resource, id)); derr != nil {
				outcome.Error = derr.Error()
			} else {
				outcome.Succeeded = true
			}
		case connectors.ActionAnonymize:
			if aerr := api.PostJSON(ctx, fmt.Sprintf("/%ss/%s/anonymize", resource, id), nil); aerr != nil {
				outcome.Error = aerr.Error()
			} else {
				outcome.Succeeded = true
			}
		case connectors.ActionNotify:
			c.Record("remediate.notify", a.Location, nil)
			outcome.Succeeded = true
		default:
			outcome.Error = fmt.Sprintf("unknown action type %q", a.Type)
		}
		res.Outcomes = append(res.Outcomes, outcome)
	}
	c.Record("remediate", fmt.Sprintf("actions=%d failed=%d", len(actions), len(res.Failed())), nil)
	return res, nil
}

// ScanContacts implements connectors.CRMScanner
func (c *Connector) ScanContacts(ctx context.Context, filter connectors.ContactFilter) (*connectors.ScanResult, error) {
	return c.scanResource(ctx, "contacts", filter)
}

// ScanLeads implements connectors.CRMScanner
func (c *Connector) ScanLeads(ctx context.Context, filter connectors.ContactFilter) (*connectors.ScanResult, error) {
	return c.scanResource(ctx, "leads", filter)
}

func (c *Connector) scanResource(ctx context.Context, resource string, filter connectors.ContactFilter) (*connectors.ScanResult, error) {
	res := &connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}
	records, err := c.fetch(ctx, resource, filter)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		location := fmt.Sprintf("crm/%s/%s", strings.TrimSuffix(resource, "s"), rec.ID)
		res.Findings = append(res.Findings, detect.Scan(location, recordBlob(rec), nil, true)...)
		res.RecordsScanned++
	}
	res.CompletedAt = time.Now()
	return res, nil
}

// BatchScan implements connectors.BatchScanner: contacts are fetched once,
// then scanned in sequential batches of batchSize records.
func (c *Connector) BatchScan(ctx context.Context, cfg connectors.ScanConfiguration, batchSize int) ([]connectors.ScanResult, error) {
	if batchSize <= 0 {
		batchSize = defaultPageSize
	}

	var all []contact
	var locations []string
	for _, resource := range scanResources(cfg.Scopes) {
		records, err := c.fetch(ctx, resource, connectors.ContactFilter{ModifiedSince: cfg.Since, Limit: cfg.MaxRecords})
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			all = append(all, rec)
			locations = append(locations, fmt.Sprintf("crm/%s/%s", strings.TrimSuffix(resource, "s"), rec.ID))
		}
	}

	results := []connectors.ScanResult{}
	for start := 0; start < len(all); start += batchSize {
		end := start + batchSize
		if end > len(all) {
			end = len(all)
		}
		res := connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}
		for i := start; i < end; i++ {
			res.Findings = append(res.Findings, detect.Scan(locations[i], recordBlob(all[i]), cfg.PIITypes, cfg.SampleContent)...)
			res.RecordsScanned++
		}
		res.CompletedAt = time.Now()
		results = append(results, res)
	}
	return results, nil
}

// BatchRemediate implements connectors.BatchScanner
func (c *Connector) BatchRemediate(ctx context.Context, actions []connectors.RemediationAction, batchSize int) ([]connectors.RemediationResult, error) {
	if batchSize <= 0 {
		batchSize = defaultPageSize
	}
	results := []connectors.RemediationResult{}
	for start := 0; start < len(actions); start += batchSize {
		end := start + batchSize
		if end > len(actions) {
			end = len(actions)
		}
		res, err := c.Remediate(ctx, actions[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// ValidateConfiguration implements connectors.ConfigValidator
func (c *Connector) ValidateConfiguration(cfg connectors.ScanConfiguration) error {
	for _, scope := range cfg.Scopes {
		if scope != "contacts" && scope != "leads" {
			return fmt.Errorf("%w: unknown scope %q (contacts, leads)", connectors.ErrConfiguration, scope)
		}
	}
	supported := map[string]bool{}
	for _, t := range detect.SupportedTypes() {
		supported[t] = true
	}
	for _, t := range cfg.PIITypes {
		if !supported[strings.ToLower(t)] {
			return fmt.Errorf("%w: unsupported pii type %q", connectors.ErrConfiguration, t)
		}
	}
	return nil
}

// DefaultConfiguration implements connectors.ConfigValidator
func (c *Connector) DefaultConfiguration() connectors.ScanConfiguration {
	return connectors.ScanConfiguration{
		Scopes:        []string{"contacts", "leads"},
		MaxRecords:    defaultPageSize * 10,
		SampleContent: true,
	}
}

// TestConnection implements connectors.ConfigValidator
func (c *Connector) TestConnection(ctx context.Context) error {
	api, err := c.conn()
	if err != nil {
		return err
	}
	var probe []contact
	return api.GetJSON(ctx, "/contacts", url.Values{"limit": {"1"}}, &probe)
}

// SupportedScanOptions implements connectors.ConfigValidator
func (c *Connector) SupportedScanOptions() []string {
	return detect.SupportedTypes()
}

func (c *Connector) fetch(ctx context.Context, resource string, filter connectors.ContactFilter) ([]contact, error) {
	api, err := c.conn()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	if filter.Owner != "" {
		params.Set("owner", filter.Owner)
	}
	if filter.Segment != "" {
		params.Set("segment", filter.Segment)
	}
	if !filter.ModifiedSince.IsZero() {
		params.Set("modified_since", filter.ModifiedSince.Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}

	var records []contact
	if err := api.GetJSON(ctx, "/"+resource, params, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func scanResources(scopes []string) []string {
	if len(scopes) == 0 {
		return []string{"contacts", "leads"}
	}
	return scopes
}

func recordBlob(rec contact) string {
	return strings.Join([]string{rec.Name, rec.Email, rec.Phone, rec.Notes}, "\n")
}

func splitLocation(location string) (resource, id string, err error) {
	parts := strings.Split(location, "/")
	if len(parts) != 3 || parts[0] != "crm" || parts[2] == "" {
		return "", "", fmt.Errorf("location %q is not crm/<resource>/<id>", location)
	}
	return parts[1], parts[2], nil
}

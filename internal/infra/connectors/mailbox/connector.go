package mailbox

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

const defaultPollInterval = time.Minute

// message and attachment are the mail/chat wire shapes
type message struct {
	ID            string    `json:"id"`
	Folder        string    `json:"folder"`
	From          string    `json:"from"`
	To            []string  `json:"to"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	SentAt        time.Time `json:"sent_at"`
	AttachmentIDs []string  `json:"attachment_ids,omitempty"`
}

type attachment struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	Filename  string `json:"filename"`
	Content   string `json:"content"` // text extraction done server-side
}

// Connector scans a REST mail/chat API for personal data in messages and
// attachments.
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
		name = "mailbox"
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
func (c *Connector) Kind() connectors.Kind { return connectors.KindMailbox }

func (c *Connector) Connect(ctx context.Context, creds connectors.Credentials) error {
	if creds.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", connectors.ErrConnectivity)
	}
	api := rest.New(strings.TrimSuffix(creds.Endpoint, "/"), creds.Token)

	var probe []message
	if err := api.GetJSON(ctx, "/messages", url.Values{"limit": {"1"}}, &probe); err != nil {
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
	var probe []message
	if err := api.GetJSON(probeCtx, "/messages", url.Values{"limit": {"1"}}, &probe); err != nil {
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

	folders := cfg.Scopes
	if len(folders) == 0 {
		folders = []string{""}
	}
	for _, folder := range folders {
		msgs, err := c.fetchMessages(ctx, connectors.MessageFilter{
			Folder: folder,
			Since:  cfg.Since,
			Limit:  cfg.MaxRecords,
		})
		if err != nil {
			c.Record("scan", "folder="+folder, err)
			return nil, err
		}
		for _, m := range msgs {
			res.Findings = append(res.Findings, detect.Scan("mailbox/message/"+m.ID, messageBlob(m), cfg.PIITypes, cfg.SampleContent)...)
			res.RecordsScanned++
		}
	}

	res.CompletedAt = time.Now()
	c.Record("scan", fmt.Sprintf("messages=%d findings=%d", res.RecordsScanned, len(res.Findings)), nil)
	return res, nil
}

// Remediate supports delete and notify on messages. Anonymize is redaction
// done by the mail system itself via its redact endpoint.
func (c *Connector) Remediate(ctx context.Context, actions []connectors.RemediationAction) (*connectors.RemediationResult, error) {
	api, err := c.conn()
	if err != nil {
		return nil, err
	}

	res := &connectors.RemediationResult{ConnectorName: c.name, AppliedAt: time.Now()}
	for _, a := range actions {
		outcome := connectors.ActionOutcome{FindingID: a.FindingID, Type: a.Type}
		id, ok := strings.CutPrefix(a.Location, "mailbox/message/")
		if !ok {
			outcome.Error = fmt.Sprintf("location %q is not mailbox/message/<id>", a.Location)
			res.Outcomes = append(res.Outcomes, outcome)
			continue
		}
		switch a.Type {
		case connectors.ActionDelete:
			if derr := api.Delete(ctx, "/messages/"+id); derr != nil {
				outcome.Error = derr.Error()
			} else {
				outcome.Succeeded = true
			}
		case connectors.ActionAnonymize:
			if aerr := api.PostJSON(ctx, "/messages/"+id+"/redact", nil); aerr != nil {
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

// ScanMessages implements connectors.MailboxScanner
func (c *Connector) ScanMessages(ctx context.Context, filter connectors.MessageFilter) (*connectors.ScanResult, error) {
	res := &connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}
	msgs, err := c.fetchMessages(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		res.Findings = append(res.Findings, detect.Scan("mailbox/message/"+m.ID, messageBlob(m), nil, true)...)
		res.RecordsScanned++
	}
	res.CompletedAt = time.Now()
	return res, nil
}

// ScanAttachments implements connectors.MailboxScanner
func (c *Connector) ScanAttachments(ctx context.Context, filter connectors.MessageFilter) (*connectors.ScanResult, error) {
	api, err := c.conn()
	if err != nil {
		return nil, err
	}

	res := &connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}
	params := filterParams(filter)
	var atts []attachment
	if err := api.GetJSON(ctx, "/attachments", params, &atts); err != nil {
		return nil, err
	}
	for _, a := range atts {
		location := fmt.Sprintf("mailbox/attachment/%s", a.ID)
		blob := a.Filename + "\n" + a.Content
		res.Findings = append(res.Findings, detect.Scan(location, blob, nil, true)...)
		res.RecordsScanned++
	}
	res.CompletedAt = time.Now()
	return res, nil
}

// BatchScan implements connectors.BatchScanner: messages are fetched once,
// then scanned in sequential batches of batchSize.
func (c *Connector) BatchScan(ctx context.Context, cfg connectors.ScanConfiguration, batchSize int) ([]connectors.ScanResult, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	var all []message
	folders := cfg.Scopes
	if len(folders) == 0 {
		folders = []string{""}
	}
	for _, folder := range folders {
		msgs, err := c.fetchMessages(ctx, connectors.MessageFilter{Folder: folder, Since: cfg.Since, Limit: cfg.MaxRecords})
		if err != nil {
			return nil, err
		}
		all = append(all, msgs...)
	}

	results := []connectors.ScanResult{}
	for start := 0; start < len(all); start += batchSize {
		end := start + batchSize
		if end > len(all) {
			end = len(all)
		}
		res := connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}
		for _, m := range all[start:end] {
			res.Findings = append(res.Findings, detect.Scan("mailbox/message/"+m.ID, messageBlob(m), cfg.PIITypes, cfg.SampleContent)...)
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
		batchSize = 100
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

func (c *Connector) fetchMessages(ctx context.Context, filter connectors.MessageFilter) ([]message, error) {
	api, err := c.conn()
	if err != nil {
		return nil, err
	}
	var msgs []message
	if err := api.GetJSON(ctx, "/messages", filterParams(filter), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func filterParams(filter connectors.MessageFilter) url.Values {
	params := url.Values{}
	if filter.Folder != "" {
		params.Set("folder", filter.Folder)
	}
	if filter.Participant != "" {
		params.Set("participant", filter.Participant)
	}
	if !filter.Since.IsZero() {
		params.Set("since", filter.Since.Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}
	return params
}

func messageBlob(m message) string {
	parts := []string{m.From, strings.Join(m.To, " "), m.Subject, m.Body}
	return strings.Join(parts, "\n")
}

package scans

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/complykit/privacy-comply/internal/application"
	"github.com/complykit/privacy-comply/internal/domain/audit"
	"github.com/complykit/privacy-comply/internal/domain/connectors"
	domain "github.com/complykit/privacy-comply/internal/domain/scans"
	"github.com/complykit/privacy-comply/internal/infra/detect"
)

// ConnectorProfile pairs the settings a connector is constructed with and
// the credentials it connects with. Wired from config per connector name.
type ConnectorProfile struct {
	Settings    connectors.Settings
	Credentials connectors.Credentials
}

// Service implements the scan use-cases. Safe for concurrent use; each
// trigger builds its own connector instance from the registry.
type Service struct {
	Repo      domain.Repository
	Registry  *connectors.Registry
	Artifacts domain.ReportStore
	Audit     audit.Repository
	Profiles  map[string]ConnectorProfile
	Clock     application.Clock
}

// Command to trigger a privacy scan through a named connector
type TriggerScanCommand struct {
	TenantID      string
	Connector     string
	Scopes        []string
	PIITypes      []string
	Since         time.Time
	MaxRecords    int
	SampleContent bool
	Source        string
	Actor         string
}

type TriggerScanResult struct {
	ID             string                `json:"id"`
	Status         string                `json:"status"`
	Counts         domain.SeverityCounts `json:"counts"`
	RecordsScanned int                   `json:"records_scanned"`
	ReportURL      string                `json:"report_url"`
	DurationMS     int64                 `json:"duration_ms"`
}

// TriggerScanUntilDone runs the scan with context.Background() so a caller
// dispatching from an HTTP handler goroutine does not get cut off when the
// request context is canceled.
func (s *Service) TriggerScanUntilDone(cmd TriggerScanCommand) (TriggerScanResult, error) {
	return s.TriggerScan(context.Background(), cmd)
}

// TriggerScan builds the connector, connects, scans, uploads the findings
// report and persists the scan row. The connector is always disconnected
// before returning, whatever the outcome.
func (s *Service) TriggerScan(ctx context.Context, cmd TriggerScanCommand) (TriggerScanResult, error) {
	now := s.Clock.Now()
	id := fmt.Sprintf("%s-%s", uuid.New().String(), cmd.Connector)

	// Create an initial row so the scan is observable while it runs
	initial := &domain.Scan{
		ID:          domain.ScanID(id),
		TenantID:    cmd.TenantID,
		TriggeredAt: now,
		Connector:   cmd.Connector,
		Status:      domain.StatusRunning,
		Scope:       strings.Join(cmd.Scopes, ","),
		Source:      cmd.Source,
	}
	if err := s.Repo.Save(ctx, initial); err != nil {
		return TriggerScanResult{ID: id, Status: string(domain.StatusError)}, err
	}

	conn, err := s.buildConnector(cmd.Connector)
	if err != nil {
		s.fail(cmd.TenantID, domain.ScanID(id))
		return TriggerScanResult{ID: id, Status: string(domain.StatusError)}, err
	}

	profile := s.Profiles[cmd.Connector]
	if err := conn.Connect(ctx, profile.Credentials); err != nil {
		s.fail(cmd.TenantID, domain.ScanID(id))
		return TriggerScanResult{ID: id, Status: string(domain.StatusError)}, err
	}
	defer conn.Disconnect(context.Background())

	cfg := connectors.ScanConfiguration{
		Scopes:        cmd.Scopes,
		PIITypes:      cmd.PIITypes,
		Since:         cmd.Since,
		MaxRecords:    cmd.MaxRecords,
		SampleContent: cmd.SampleContent,
	}
	if v, ok := conn.(connectors.ConfigValidator); ok {
		if err := v.ValidateConfiguration(cfg); err != nil {
			s.fail(cmd.TenantID, domain.ScanID(id))
			return TriggerScanResult{ID: id, Status: string(domain.StatusError)}, err
		}
	}

	res, err := conn.Scan(ctx, cfg)
	if err != nil {
		s.fail(cmd.TenantID, domain.ScanID(id))
		return TriggerScanResult{ID: id, Status: string(domain.StatusError)}, err
	}

	counts := detect.Tally(res.Findings)
	duration := s.Clock.Now().Sub(now).Milliseconds()

	url, err := s.uploadReport(ctx, cmd.TenantID, id, res)
	if err != nil {
		s.fail(cmd.TenantID, domain.ScanID(id))
		return TriggerScanResult{ID: id, Status: string(domain.StatusError)}, err
	}

	final := &domain.Scan{
		ID:             domain.ScanID(id),
		TenantID:       cmd.TenantID,
		TriggeredAt:    now,
		Connector:      cmd.Connector,
		Kind:           string(conn.Kind()),
		Scope:          strings.Join(cmd.Scopes, ","),
		Status:         domain.StatusSuccess,
		Counts:         counts,
		RecordsScanned: res.RecordsScanned,
		ReportURL:      url,
		RawFormat:      "json",
		DurationMS:     duration,
		Source:         cmd.Source,
	}
	if err := s.Repo.Save(ctx, final); err != nil {
		return TriggerScanResult{ID: id, Status: string(final.Status)}, err
	}

	s.record(ctx, cmd.TenantID, cmd.Actor, "scan.trigger", "scan:"+id,
		fmt.Sprintf(`{"connector":%q,"findings":%d}`, cmd.Connector, counts.Total))

	return TriggerScanResult{
		ID:             id,
		Status:         string(final.Status),
		Counts:         counts,
		RecordsScanned: res.RecordsScanned,
		ReportURL:      url,
		DurationMS:     duration,
	}, nil
}

// RetryScan reruns an existing scan with the same connector and scope
func (s *Service) RetryScan(ctx context.Context, tenant string, id domain.ScanID, actor string) (TriggerScanResult, error) {
	existing, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return TriggerScanResult{}, err
	}

	var scopes []string
	if existing.Scope != "" {
		scopes = strings.Split(existing.Scope, ",")
	}
	return s.TriggerScan(ctx, TriggerScanCommand{
		TenantID:  tenant,
		Connector: existing.Connector,
		Scopes:    scopes,
		Source:    existing.Source,
		Actor:     actor,
	})
}

// Command to apply remediation actions through a named connector
type RemediateCommand struct {
	TenantID  string
	Connector string
	Actions   []connectors.RemediationAction
	Actor     string
}

// Remediate connects the named connector and applies the actions. Partial
// failures come back in the result, not as an error.
func (s *Service) Remediate(ctx context.Context, cmd RemediateCommand) (*connectors.RemediationResult, error) {
	if len(cmd.Actions) == 0 {
		return nil, fmt.Errorf("no remediation actions given")
	}
	conn, err := s.buildConnector(cmd.Connector)
	if err != nil {
		return nil, err
	}
	profile := s.Profiles[cmd.Connector]
	if err := conn.Connect(ctx, profile.Credentials); err != nil {
		return nil, err
	}
	defer conn.Disconnect(context.Background())

	res, err := conn.Remediate(ctx, cmd.Actions)
	if err != nil {
		return nil, err
	}

	s.record(ctx, cmd.TenantID, cmd.Actor, "remediate.apply", "connector:"+cmd.Connector,
		fmt.Sprintf(`{"actions":%d,"failed":%d}`, len(res.Outcomes), len(res.Failed())))
	return res, nil
}

// TestConnection builds a connector, connects, probes health and tears down
func (s *Service) TestConnection(ctx context.Context, name string) (connectors.ConnectorHealth, error) {
	conn, err := s.buildConnector(name)
	if err != nil {
		return connectors.ConnectorHealth{}, err
	}
	profile := s.Profiles[name]
	if err := conn.Connect(ctx, profile.Credentials); err != nil {
		return connectors.ConnectorHealth{}, err
	}
	defer conn.Disconnect(context.Background())
	return conn.Health(ctx), nil
}

// Connectors lists the registered connector names
func (s *Service) Connectors() []string {
	return s.Registry.List()
}

// Latest returns the N most recent scans
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Scan, error) {
	return s.Repo.Latest(ctx, tenant, limit)
}

// Get returns one scan by id
func (s *Service) Get(ctx context.Context, tenant string, id domain.ScanID) (*domain.Scan, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// Paginate returns a page of scans with optional filters
func (s *Service) Paginate(ctx context.Context, tenant string, page, pageSize int, filters map[string]any) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, tenant, page, pageSize, filters)
}

// Summary tallies scan results over the last N days
func (s *Service) Summary(ctx context.Context, tenant string, sinceDays int) (map[string]any, error) {
	total, critical, high, medium, err := s.Repo.Summary(ctx, tenant, sinceDays)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total_scans": total,
		"critical":    critical,
		"high":        high,
		"medium":      medium,
	}, nil
}

func (s *Service) buildConnector(name string) (connectors.Connector, error) {
	profile, ok := s.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("connector %q is not configured: %w", name, connectors.ErrConfiguration)
	}
	return s.Registry.Create(name, profile.Settings)
}

func (s *Service) uploadReport(ctx context.Context, tenant, id string, res *connectors.ScanResult) (string, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s/%s.json", tenant, res.ConnectorName, id)
	return s.Artifacts.UploadBytes(ctx, data, key, "application/json")
}

func (s *Service) fail(tenant string, id domain.ScanID) {
	_ = s.Repo.UpdateStatus(context.Background(), tenant, id, domain.StatusError)
}

func (s *Service) record(ctx context.Context, tenant, actor, action, resource, details string) {
	if s.Audit == nil {
		return
	}
	_ = s.Audit.Append(ctx, &audit.Entry{
		TenantID:    tenant,
		Actor:       actor,
		Action:      action,
		Resource:    resource,
		DetailsJSON: details,
		At:          s.Clock.Now(),
	})
}

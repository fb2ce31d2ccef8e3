package agent

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complykit/privacy-comply/internal/application"
	domain "github.com/complykit/privacy-comply/internal/domain/agent"
	scansdomain "github.com/complykit/privacy-comply/internal/domain/scans"
)

type fakeClient struct {
	queries []string
	reports []string
	answer  string
	err     error
}

func (c *fakeClient) ProcessQuery(_ context.Context, query string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.queries = append(c.queries, query)
	return c.answer, nil
}

func (c *fakeClient) GenerateComplianceReport(_ context.Context, reportURL string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.reports = append(c.reports, reportURL)
	return c.answer, nil
}

type memAnalysisRepo struct {
	saved []*domain.Analysis
}

func (r *memAnalysisRepo) Save(_ context.Context, a *domain.Analysis) error {
	cp := *a
	r.saved = append(r.saved, &cp)
	return nil
}

func (r *memAnalysisRepo) Paginate(_ context.Context, _ string, _, _ int) ([]*domain.Analysis, error) {
	return r.saved, nil
}

func (r *memAnalysisRepo) LatestByScan(_ context.Context, _ string, scanID string) (*domain.Analysis, error) {
	for i := len(r.saved) - 1; i >= 0; i-- {
		if r.saved[i].ScanID == scanID {
			return r.saved[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubScanRepo struct {
	scan *scansdomain.Scan
}

func (r *stubScanRepo) Save(_ context.Context, _ *scansdomain.Scan) error { return nil }

func (r *stubScanRepo) Get(_ context.Context, _ string, id scansdomain.ScanID) (*scansdomain.Scan, error) {
	if r.scan == nil || r.scan.ID != id {
		return nil, sql.ErrNoRows
	}
	return r.scan, nil
}

func (r *stubScanRepo) Latest(_ context.Context, _ string, _ int) ([]*scansdomain.Scan, error) {
	return nil, nil
}

func (r *stubScanRepo) Summary(_ context.Context, _ string, _ int) (int, int, int, int, error) {
	return 0, 0, 0, 0, nil
}

func (r *stubScanRepo) UpdateStatus(_ context.Context, _ string, _ scansdomain.ScanID, _ scansdomain.Status) error {
	return nil
}

func (r *stubScanRepo) UpdateResult(_ context.Context, _ string, _ scansdomain.ScanID, _ scansdomain.Status, _ string, _ scansdomain.SeverityCounts) error {
	return nil
}

func (r *stubScanRepo) Paginate(_ context.Context, _ string, _, _ int, _ map[string]any) (scansdomain.PaginatedResult, error) {
	return scansdomain.PaginatedResult{}, nil
}

func (r *stubScanRepo) Cursor(_ context.Context, _ string, _ time.Time, _ string, _ int) ([]*scansdomain.Scan, error) {
	return nil, nil
}

func TestQueryStoresAnalysis(t *testing.T) {
	client := &fakeClient{answer: `{"answer":"yes"}`}
	repo := &memAnalysisRepo{}
	svc := &Service{Client: client, Repo: repo, Scans: &stubScanRepo{}, Clock: application.SystemClock{}}

	a, err := svc.Query(context.Background(), "acme", "is email PII under GDPR?")
	require.NoError(t, err)
	assert.Equal(t, "query", a.Kind)
	assert.Equal(t, `{"answer":"yes"}`, a.Result)
	require.Len(t, repo.saved, 1)

	_, err = svc.Query(context.Background(), "acme", "   ")
	assert.Error(t, err, "blank queries are rejected before hitting the model")
	assert.Len(t, client.queries, 1)
}

func TestReportRequiresArtifact(t *testing.T) {
	client := &fakeClient{answer: `{"summary":"ok"}`}
	repo := &memAnalysisRepo{}
	scanRepo := &stubScanRepo{scan: &scansdomain.Scan{ID: "s1", TenantID: "acme"}}
	svc := &Service{Client: client, Repo: repo, Scans: scanRepo, Clock: application.SystemClock{}}

	// scan exists but has no uploaded report yet
	_, err := svc.Report(context.Background(), "acme", "s1")
	assert.ErrorContains(t, err, "no report artifact")

	scanRepo.scan.ReportURL = "https://store/acme/s1.json"
	a, err := svc.Report(context.Background(), "acme", "s1")
	require.NoError(t, err)
	assert.Equal(t, "report", a.Kind)
	assert.Equal(t, "s1", a.ScanID)
	assert.Equal(t, []string{"https://store/acme/s1.json"}, client.reports)

	got, err := svc.LatestByScan(context.Background(), "acme", "s1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	// unknown scan bubbles up as not found
	_, err = svc.Report(context.Background(), "acme", "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

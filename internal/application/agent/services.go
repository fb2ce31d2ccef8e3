package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/complykit/privacy-comply/internal/application"
	domain "github.com/complykit/privacy-comply/internal/domain/agent"
	scansdomain "github.com/complykit/privacy-comply/internal/domain/scans"
)

// Service implements the compliance agent use-cases: free-form queries and
// report generation over finished scan artifacts. Every model output is
// persisted so answers stay auditable.
type Service struct {
	Client domain.Client
	Repo   domain.Repository
	Scans  scansdomain.Repository
	Clock  application.Clock
}

// Query answers a compliance question and stores the exchange
func (s *Service) Query(ctx context.Context, tenant, question string) (*domain.Analysis, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("empty query")
	}
	result, err := s.Client.ProcessQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	a := &domain.Analysis{
		ID:        domain.AnalysisID(uuid.New().String()),
		TenantID:  tenant,
		Kind:      "query",
		Input:     question,
		Result:    result,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Report generates a compliance report for a finished scan's findings
// artifact and stores the analysis keyed to the scan.
func (s *Service) Report(ctx context.Context, tenant, scanID string) (*domain.Analysis, error) {
	scan, err := s.Scans.Get(ctx, tenant, scansdomain.ScanID(scanID))
	if err != nil {
		return nil, err
	}
	if scan.ReportURL == "" {
		return nil, fmt.Errorf("scan %s has no report artifact", scanID)
	}

	result, err := s.Client.GenerateComplianceReport(ctx, scan.ReportURL)
	if err != nil {
		return nil, err
	}
	a := &domain.Analysis{
		ID:        domain.AnalysisID(uuid.New().String()),
		TenantID:  tenant,
		ScanID:    scanID,
		Kind:      "report",
		Input:     scan.ReportURL,
		Result:    result,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Paginate lists stored analyses, newest first
func (s *Service) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Analysis, error) {
	return s.Repo.Paginate(ctx, tenant, page, pageSize)
}

// LatestByScan returns the most recent analysis for a scan
func (s *Service) LatestByScan(ctx context.Context, tenant, scanID string) (*domain.Analysis, error) {
	return s.Repo.LatestByScan(ctx, tenant, scanID)
}

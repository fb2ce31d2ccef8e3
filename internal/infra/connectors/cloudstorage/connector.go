package cloudstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/complykit/privacy-comply/internal/domain/connectors"
	"github.com/complykit/privacy-comply/internal/infra/connectors/trail"
	"github.com/complykit/privacy-comply/internal/infra/detect"
)

// objects larger than this are skipped; scanning huge binaries inline
// would stall the whole pass
const maxObjectBytes = 5 << 20

const defaultMaxRecords = 1000

// Connector scans S3-compatible object storage for personal data.
type Connector struct {
	connectors.Lifecycle
	trail.Trail

	name string

	mu     sync.Mutex
	client *minio.Client
}

func New(settings connectors.Settings) (*Connector, error) {
	name := settings["name"]
	if name == "" {
		name = "cloudstorage"
	}
	return &Connector{name: name}, nil
}

func (c *Connector) Name() string          { return c.name }
func (c *Connector) Kind() connectors.Kind { return connectors.KindCloudStorage }

// Connect builds the S3 client and verifies the credentials with a bucket
// listing probe.
func (c *Connector) Connect(ctx context.Context, creds connectors.Credentials) error {
	cli, err := minio.New(creds.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, ""),
		Secure: creds.UseSSL,
		Region: creds.Region,
	})
	if err != nil {
		c.Record("connect", "", err)
		return fmt.Errorf("%w: %v", connectors.ErrConnectivity, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := cli.ListBuckets(probeCtx); err != nil {
		c.Record("connect", "", err)
		return classify(err)
	}

	c.mu.Lock()
	c.client = cli
	c.mu.Unlock()
	c.Record("connect", "endpoint="+creds.Endpoint, nil)
	return nil
}

// Disconnect is idempotent; the S3 client holds no session to tear down
// beyond dropping the reference.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.client = nil
	c.mu.Unlock()
	c.Record("disconnect", "", nil)
	return nil
}

func (c *Connector) conn() (*minio.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, connectors.ErrNotConnected
	}
	return c.client, nil
}

func (c *Connector) Health(ctx context.Context) connectors.ConnectorHealth {
	h := connectors.ConnectorHealth{CheckedAt: time.Now()}
	cli, err := c.conn()
	if err != nil {
		h.Status = "unhealthy"
		h.Message = err.Error()
		return h
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := cli.ListBuckets(probeCtx); err != nil {
		h.Status = "degraded"
		h.Connected = true
		h.Message = err.Error()
		return h
	}
	h.Status = "healthy"
	h.Connected = true
	return h
}

// Scan walks the configured buckets (all reachable buckets when no scope is
// given) and runs the detector table over each object body.
func (c *Connector) Scan(ctx context.Context, cfg connectors.ScanConfiguration) (*connectors.ScanResult, error) {
	cli, err := c.conn()
	if err != nil {
		return nil, err
	}

	res := &connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}
	buckets := cfg.Scopes
	if len(buckets) == 0 {
		buckets, err = c.ListBuckets(ctx)
		if err != nil {
			c.Record("scan", "", err)
			return nil, err
		}
	}

	limit := cfg.MaxRecords
	if limit <= 0 {
		limit = defaultMaxRecords
	}

	for _, bucket := range buckets {
		if res.RecordsScanned >= limit {
			break
		}
		if err := c.scanBucketInto(ctx, cli, bucket, cfg, limit, res); err != nil {
			c.Record("scan", "bucket="+bucket, err)
			return nil, err
		}
	}

	res.CompletedAt = time.Now()
	c.Record("scan", fmt.Sprintf("objects=%d findings=%d", res.RecordsScanned, len(res.Findings)), nil)
	return res, nil
}

func (c *Connector) scanBucketInto(ctx context.Context, cli *minio.Client, bucket string, cfg connectors.ScanConfiguration, limit int, res *connectors.ScanResult) error {
	for obj := range cli.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return classify(obj.Err)
		}
		if res.RecordsScanned >= limit {
			return nil
		}
		if obj.Size > maxObjectBytes {
			continue
		}
		if !cfg.Since.IsZero() && obj.LastModified.Before(cfg.Since) {
			continue
		}
		content, err := c.readObject(ctx, cli, bucket, obj.Key)
		if err != nil {
			return err
		}
		location := fmt.Sprintf("s3://%s/%s", bucket, obj.Key)
		res.Findings = append(res.Findings, detect.Scan(location, content, cfg.PIITypes, cfg.SampleContent)...)
		res.RecordsScanned++
	}
	return nil
}

func (c *Connector) readObject(ctx context.Context, cli *minio.Client, bucket, key string) (string, error) {
	obj, err := cli.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", classify(err)
	}
	defer obj.Close()
	data, err := io.ReadAll(io.LimitReader(obj, maxObjectBytes))
	if err != nil {
		return "", classify(err)
	}
	return string(data), nil
}

// Remediate supports delete and notify. Anonymize needs a reprocessing
// pipeline object storage cannot do in place, so those actions fail
// individually without aborting the batch.
func (c *Connector) Remediate(ctx context.Context, actions []connectors.RemediationAction) (*connectors.RemediationResult, error) {
	cli, err := c.conn()
	if err != nil {
		return nil, err
	}

	res := &connectors.RemediationResult{ConnectorName: c.name, AppliedAt: time.Now()}
	for _, a := range actions {
		outcome := connectors.ActionOutcome{FindingID: a.FindingID, Type: a.Type}
		switch a.Type {
		case connectors.ActionDelete:
			bucket, key, perr := splitLocation(a.Location)
			if perr != nil {
				outcome.Error = perr.Error()
				break
			}
			if rerr := cli.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); rerr != nil {
				outcome.Error = rerr.Error()
				break
			}
			outcome.Succeeded = true
		case connectors.ActionNotify:
			c.Record("remediate.notify", a.Location, nil)
			outcome.Succeeded = true
		case connectors.ActionAnonymize:
			outcome.Error = "anonymize is not supported for object storage; delete and re-ingest instead"
		default:
			outcome.Error = fmt.Sprintf("unknown action type %q", a.Type)
		}
		res.Outcomes = append(res.Outcomes, outcome)
	}
	c.Record("remediate", fmt.Sprintf("actions=%d failed=%d", len(actions), len(res.Failed())), nil)
	return res, nil
}

// ListBuckets implements connectors.CloudStorageScanner
func (c *Connector) ListBuckets(ctx context.Context) ([]string, error) {
	cli, err := c.conn()
	if err != nil {
		return nil, err
	}
	infos, err := cli.ListBuckets(ctx)
	if err != nil {
		return nil, classify(err)
	}
	names := make([]string, 0, len(infos))
	for _, b := range infos {
		names = append(names, b.Name)
	}
	return names, nil
}

// ScanBucket implements connectors.CloudStorageScanner
func (c *Connector) ScanBucket(ctx context.Context, bucket string, cfg connectors.ScanConfiguration) (*connectors.ScanResult, error) {
	scoped := cfg
	scoped.Scopes = []string{bucket}
	return c.Scan(ctx, scoped)
}

// ScanObject implements connectors.CloudStorageScanner
func (c *Connector) ScanObject(ctx context.Context, bucket, key string) (*connectors.ScanResult, error) {
	cli, err := c.conn()
	if err != nil {
		return nil, err
	}
	res := &connectors.ScanResult{ConnectorName: c.name, StartedAt: time.Now()}
	content, err := c.readObject(ctx, cli, bucket, key)
	if err != nil {
		return nil, err
	}
	location := fmt.Sprintf("s3://%s/%s", bucket, key)
	res.Findings = detect.Scan(location, content, nil, true)
	res.RecordsScanned = 1
	res.CompletedAt = time.Now()
	return res, nil
}

// BatchScan implements connectors.BatchScanner: buckets are grouped into
// batches of batchSize and scanned sequentially, one result per batch.
func (c *Connector) BatchScan(ctx context.Context, cfg connectors.ScanConfiguration, batchSize int) ([]connectors.ScanResult, error) {
	if batchSize <= 0 {
		batchSize = 10
	}
	buckets := cfg.Scopes
	if len(buckets) == 0 {
		var err error
		if buckets, err = c.ListBuckets(ctx); err != nil {
			return nil, err
		}
	}
	results := []connectors.ScanResult{}
	for start := 0; start < len(buckets); start += batchSize {
		end := start + batchSize
		if end > len(buckets) {
			end = len(buckets)
		}
		batchCfg := cfg
		batchCfg.Scopes = buckets[start:end]
		res, err := c.Scan(ctx, batchCfg)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// BatchRemediate implements connectors.BatchScanner
func (c *Connector) BatchRemediate(ctx context.Context, actions []connectors.RemediationAction, batchSize int) ([]connectors.RemediationResult, error) {
	if batchSize <= 0 {
		batchSize = 50
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
	if cfg.MaxRecords < 0 {
		return fmt.Errorf("%w: max_records must not be negative", connectors.ErrConfiguration)
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
		MaxRecords:    defaultMaxRecords,
		SampleContent: true,
	}
}

// TestConnection implements connectors.ConfigValidator
func (c *Connector) TestConnection(ctx context.Context) error {
	_, err := c.ListBuckets(ctx)
	return err
}

// SupportedScanOptions implements connectors.ConfigValidator
func (c *Connector) SupportedScanOptions() []string {
	return detect.SupportedTypes()
}

func splitLocation(location string) (bucket, key string, err error) {
	loc := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(loc, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("location %q is not bucket/key", location)
	}
	return parts[0], parts[1], nil
}

// classify maps minio errors onto the connector error kinds
func classify(err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %s", connectors.ErrAuthentication, resp.Code)
		}
	}
	return fmt.Errorf("%w: %v", connectors.ErrConnectivity, err)
}

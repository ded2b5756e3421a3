package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/nao1215/seoscan/internal/model"
)

// DefaultIndex is the index used when none is configured.
const DefaultIndex = "seoscan-pages"

// DefaultBatchSize is the number of documents per bulk request.
const DefaultBatchSize = 500

// ErrNoReportID is returned when exporting a report that was never stamped.
var ErrNoReportID = errors.New("report has no ID")

// Observer receives per-batch indexing outcomes.
// *metrics.Recorder implements it.
type Observer interface {
	AddIndexed(indexed, failed int)
}

// Result counts the outcome of one export.
type Result struct {
	Indexed int
	Failed  int
}

// Exporter sends site reports to Elasticsearch.
type Exporter struct {
	client    *elasticsearch.Client
	index     string
	batchSize int
	observer  Observer
	logger    *slog.Logger
}

// Option configures an Exporter.
type Option func(*exporterConfig)

type exporterConfig struct {
	index     string
	batchSize int
	transport http.RoundTripper
	username  string
	password  string
	observer  Observer
	logger    *slog.Logger
}

// WithIndex sets the target index.
func WithIndex(index string) Option {
	return func(c *exporterConfig) {
		if index != "" {
			c.index = index
		}
	}
}

// WithBatchSize sets the number of documents per bulk request.
func WithBatchSize(n int) Option {
	return func(c *exporterConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithTransport sets the HTTP transport used by the client.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *exporterConfig) {
		c.transport = rt
	}
}

// WithBasicAuth sets credentials for the cluster.
func WithBasicAuth(username, password string) Option {
	return func(c *exporterConfig) {
		c.username = username
		c.password = password
	}
}

// WithObserver reports batch outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *exporterConfig) {
		c.observer = o
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *exporterConfig) {
		c.logger = logger
	}
}

// New creates an Exporter for the cluster at address.
func New(address string, opts ...Option) (*Exporter, error) {
	cfg := exporterConfig{
		index:     DefaultIndex,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{address},
		Username:  cfg.username,
		Password:  cfg.password,
		Transport: cfg.transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &Exporter{
		client:    client,
		index:     cfg.index,
		batchSize: cfg.batchSize,
		observer:  cfg.observer,
		logger:    cfg.logger,
	}, nil
}

// Index returns the target index name.
func (e *Exporter) Index() string {
	return e.index
}

// Export indexes every page of report. Documents rejected by the cluster
// are counted in Result.Failed; a transport or cluster-level failure
// aborts the export and is returned together with the counts so far.
func (e *Exporter) Export(ctx context.Context, report *model.SiteReport) (Result, error) {
	var result Result
	if report.ID == "" {
		return result, ErrNoReportID
	}

	for start := 0; start < len(report.Pages); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := min(start+e.batchSize, len(report.Pages))

		payload, err := e.buildPayload(report, report.Pages[start:end])
		if err != nil {
			return result, err
		}
		indexed, failed, err := e.sendBulk(ctx, payload)
		result.Indexed += indexed
		result.Failed += failed
		if e.observer != nil {
			e.observer.AddIndexed(indexed, failed)
		}
		if err != nil {
			return result, err
		}
	}

	e.logger.Info("exported pages to elasticsearch",
		"index", e.index,
		"report_id", report.ID,
		"indexed", result.Indexed,
		"failed", result.Failed,
	)
	return result, nil
}

// buildPayload encodes pages as an NDJSON bulk body.
func (e *Exporter) buildPayload(report *model.SiteReport, pages []model.PageResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range pages {
		meta := map[string]map[string]string{
			"index": {
				"_index": e.index,
				"_id":    DocumentID(report.ID, pages[i].URL),
			},
		}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("failed to encode bulk metadata: %w", err)
		}
		if err := enc.Encode(NewDocument(report, &pages[i])); err != nil {
			return nil, fmt.Errorf("failed to encode document %s: %w", pages[i].URL, err)
		}
	}
	return buf.Bytes(), nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

func (e *Exporter) sendBulk(ctx context.Context, payload []byte) (indexed, failed int, err error) {
	res, err := e.client.Bulk(
		bytes.NewReader(payload),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithIndex(e.index),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read bulk response: %w", err)
	}
	if res.IsError() {
		return 0, 0, &BulkError{StatusCode: res.StatusCode, Body: string(body)}
	}

	var parsed bulkResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, 0, fmt.Errorf("failed to parse bulk response: %w", err)
	}
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Error != nil || op.Status >= 300 {
				failed++
				if op.Error != nil {
					e.logger.Warn("document rejected", "type", op.Error.Type, "reason", op.Error.Reason)
				}
				continue
			}
			indexed++
		}
	}
	return indexed, failed, nil
}

// BulkError is a cluster-level failure of a bulk request.
type BulkError struct {
	StatusCode int
	Body       string
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk request rejected with status %d: %s", e.StatusCode, e.Body)
}

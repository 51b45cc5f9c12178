// Package ingest writes import documents and drives the ingestion handshake
// with the vulnerability-management platform: one upload per document, then
// a single kickoff per run.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openctemio/connector/internal/infra/httpclient"
	"github.com/openctemio/connector/internal/infra/storage"
	"github.com/openctemio/connector/internal/kdi"
	"github.com/openctemio/connector/internal/metrics"
	"github.com/openctemio/connector/pkg/logger"
)

const tracerName = "github.com/openctemio/connector/internal/ingest"

// Config holds ingestion settings, passed through from configuration.
type Config struct {
	Connector     string // metrics label
	Host          string
	APIKey        string
	ConnectorID   string
	SkipAutoclose bool
	Version       int
}

// CanUpload reports whether uploads are configured. Without a connector id
// and API key documents are only written to the output directory.
func (c Config) CanUpload() bool {
	return c.ConnectorID != "" && c.APIKey != ""
}

// EmitResult describes one emitted document.
type EmitResult struct {
	Location   string
	Findings   int
	DataFileID int64 // 0 when the document was not uploaded
}

// Emitter serializes batches, writes them, and uploads them.
type Emitter struct {
	cfg       Config
	writer    storage.Writer
	transport *httpclient.Client
	logger    *logger.Logger

	mu       sync.Mutex
	uploaded map[string][]int64 // connector id -> data file ids awaiting kickoff
}

// NewEmitter creates a new Emitter. The transport carries the upload retry
// policy.
func NewEmitter(cfg Config, writer storage.Writer, transport *httpclient.Client, log *logger.Logger) *Emitter {
	if cfg.Version == 0 {
		cfg.Version = kdi.DefaultVersion
	}
	return &Emitter{
		cfg:       cfg,
		writer:    writer,
		transport: transport,
		logger:    log.With("component", "ingest_emitter"),
		uploaded:  make(map[string][]int64),
	}
}

// Emit writes the batch as one document to dir/name and, when configured,
// uploads it to the ingestion endpoint.
func (e *Emitter) Emit(ctx context.Context, dir, name string, batch *kdi.Batch) (*EmitResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ingest.Emit")
	defer span.End()
	span.SetAttributes(attribute.String("artifact", name), attribute.Int("findings", batch.Len()))

	data, err := kdi.Encode(batch.Document(e.cfg.SkipAutoclose, e.cfg.Version))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}

	location, err := e.writer.Write(ctx, dir, name, data)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	metrics.ArtifactsEmitted.WithLabelValues(e.cfg.Connector).Inc()

	log := e.logger.Ctx(ctx)
	result := &EmitResult{Location: location, Findings: batch.Len()}
	log.Info("artifact written", "location", location, "findings", batch.Len())

	if !e.cfg.CanUpload() {
		log.Info("connector id or API key not set, skipping upload", "artifact", name)
		return result, nil
	}

	id, err := e.upload(ctx, name, data)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(e.cfg.Connector, "failed").Inc()
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	metrics.UploadsTotal.WithLabelValues(e.cfg.Connector, "success").Inc()

	if id != 0 {
		e.mu.Lock()
		e.uploaded[e.cfg.ConnectorID] = append(e.uploaded[e.cfg.ConnectorID], id)
		e.mu.Unlock()
	}
	result.DataFileID = id

	log.Info("artifact uploaded", "artifact", name, "connector_id", e.cfg.ConnectorID, "data_file", id)
	return result, nil
}

type uploadResponse struct {
	Success  json.RawMessage `json:"success"`
	DataFile int64           `json:"data_file"`
}

func (e *Emitter) upload(ctx context.Context, name string, data []byte) (int64, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return 0, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return 0, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("close multipart: %w", err)
	}

	resp, err := e.transport.Do(ctx, httpclient.Request{
		Method:      http.MethodPost,
		URL:         connectorURL(e.cfg.Host, e.cfg.ConnectorID, "data_file"),
		Query:       url.Values{"run": {"false"}},
		Header:      riskTokenHeader(e.cfg.APIKey),
		Body:        body.Bytes(),
		ContentType: mw.FormDataContentType(),
	})
	if err != nil {
		return 0, err
	}

	var parsed uploadResponse
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return 0, fmt.Errorf("parse upload response: %w", err)
		}
	}
	return parsed.DataFile, nil
}

// Kickoff tells the platform to process the data files uploaded to
// connectorID since the last kickoff. It is a no-op when connectorID or
// apiKey is empty.
func (e *Emitter) Kickoff(ctx context.Context, connectorID, host, apiKey string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ingest.Kickoff")
	defer span.End()

	if connectorID == "" || apiKey == "" {
		e.logger.Ctx(ctx).Info("connector id or API key not set, skipping kickoff")
		return nil
	}

	e.mu.Lock()
	ids := e.uploaded[connectorID]
	delete(e.uploaded, connectorID)
	e.mu.Unlock()

	query := url.Values{}
	for _, id := range ids {
		query.Add("data_files[]", strconv.FormatInt(id, 10))
	}

	_, err := e.transport.Get(ctx, connectorURL(host, connectorID, "run"), query, riskTokenHeader(apiKey))
	if err != nil {
		metrics.KickoffsTotal.WithLabelValues(e.cfg.Connector, "failed").Inc()
		return fmt.Errorf("kickoff connector %s: %w", connectorID, err)
	}
	metrics.KickoffsTotal.WithLabelValues(e.cfg.Connector, "success").Inc()

	e.logger.Ctx(ctx).Info("ingestion kicked off", "connector_id", connectorID, "data_files", len(ids))
	return nil
}

func connectorURL(host, connectorID, action string) string {
	base := host
	if !hasScheme(base) {
		base = "https://" + base
	}
	return fmt.Sprintf("%s/connectors/%s/%s", trimSlash(base), url.PathEscape(connectorID), action)
}

func riskTokenHeader(apiKey string) http.Header {
	return http.Header{"X-Risk-Token": {apiKey}}
}

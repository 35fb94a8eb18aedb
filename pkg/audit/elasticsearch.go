package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchConfig holds the connection settings for the audit index.
type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// ElasticsearchRecorder indexes every event as its own document, keyed by event id
// so a retried write overwrites instead of duplicating.
type ElasticsearchRecorder struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticsearchRecorder creates the client. It does not contact the cluster.
func NewElasticsearchRecorder(cfg ElasticsearchConfig) (*ElasticsearchRecorder, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" && cfg.Password != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	index := cfg.Index
	if index == "" {
		index = "ledger-audit"
	}
	return &ElasticsearchRecorder{client: client, index: index}, nil
}

func (r *ElasticsearchRecorder) Record(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: ev.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to index audit event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("elasticsearch rejected audit event: %s: %s", res.Status(), msg)
	}
	return nil
}

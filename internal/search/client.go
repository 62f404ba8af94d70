package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/zfogg/tinyforum/backend/internal/metrics"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"github.com/zfogg/tinyforum/backend/internal/telemetry"
)

// Index names
const (
	IndexThreads = "forum_threads"
	IndexPosts   = "forum_posts"
)

// Client wraps the Elasticsearch client with forum-specific indexing and
// search. It satisfies forum.Searcher.
type Client struct {
	es *elasticsearch.Client
}

// NewClient connects to the cluster at url and verifies it answers.
func NewClient(url string) (*Client, error) {
	return NewClientWithConfig(elasticsearch.Config{
		Addresses: []string{url},
		Transport: telemetry.NewTransport("elasticsearch", nil),
	})
}

// NewClientWithConfig is NewClient with full control over transport
// settings.
func NewClientWithConfig(cfg elasticsearch.Config) (*Client, error) {
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("connecting", res)
	}

	return &Client{es: es}, nil
}

var threadMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"thread_id":  map[string]interface{}{"type": "keyword"},
			"title":      map[string]interface{}{"type": "text", "analyzer": "standard"},
			"author":     map[string]interface{}{"type": "keyword"},
			"is_pinned":  map[string]interface{}{"type": "boolean"},
			"closed":     map[string]interface{}{"type": "boolean"},
			"created_at": map[string]interface{}{"type": "date"},
		},
	},
}

var postMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"post_id":    map[string]interface{}{"type": "keyword"},
			"thread_id":  map[string]interface{}{"type": "keyword"},
			"text":       map[string]interface{}{"type": "text", "analyzer": "standard"},
			"author":     map[string]interface{}{"type": "keyword"},
			"created_at": map[string]interface{}{"type": "date"},
		},
	},
}

// EnsureIndex creates the thread and post indices when missing.
func (c *Client) EnsureIndex(ctx context.Context) error {
	if err := c.createIndex(ctx, IndexThreads, threadMapping); err != nil {
		return fmt.Errorf("failed to create threads index: %w", err)
	}
	if err := c.createIndex(ctx, IndexPosts, postMapping); err != nil {
		return fmt.Errorf("failed to create posts index: %w", err)
	}
	return nil
}

func (c *Client) createIndex(ctx context.Context, indexName string, mapping map[string]interface{}) error {
	res, err := c.es.Indices.Exists([]string{indexName}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(indexName,
		c.es.Indices.Create.WithBody(bytes.NewReader(mappingJSON)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("creating index", res)
	}
	return nil
}

// IndexThread stores the searchable fields of t. Hidden threads are
// removed from the index instead.
func (c *Client) IndexThread(ctx context.Context, t *models.Thread) error {
	if t.IsHidden() {
		return c.DeleteThread(ctx, t.ID)
	}
	return c.put(ctx, IndexThreads, t.ID, ThreadToDoc(t))
}

// IndexPost stores the searchable text of p. Hidden posts are removed from
// the index instead.
func (c *Client) IndexPost(ctx context.Context, p *models.Post) error {
	if !p.IsVisible() {
		return c.DeletePost(ctx, p.ID)
	}
	return c.put(ctx, IndexPosts, p.ID, PostToDoc(p))
}

// DeletePost removes a post document. Missing documents are not an error.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.delete(ctx, IndexPosts, postID)
}

// DeleteThread removes a thread document. Its posts stay indexed but are
// filtered out when results are loaded from the database.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	return c.delete(ctx, IndexThreads, threadID)
}

func (c *Client) put(ctx context.Context, index, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", index, err)
	}

	res, err := c.es.Index(index, bytes.NewReader(body),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index %s/%s: %w", index, id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("indexing", res)
	}
	return nil
}

func (c *Client) delete(ctx context.Context, index, id string) error {
	res, err := c.es.Delete(index, id, c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", index, id, err)
	}
	defer res.Body.Close()

	// 404 is OK - document doesn't exist
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("deleting", res)
	}
	return nil
}

// SearchThreads returns the ids of threads whose title or posts match
// query, best match first. Visibility is enforced by the caller when the
// threads are loaded.
func (c *Client) SearchThreads(ctx context.Context, query string, limit int) ([]string, error) {
	ids, err := c.searchThreads(ctx, query, limit)
	metrics.RecordSearch("elasticsearch", err)
	return ids, err
}

func (c *Client) searchThreads(ctx context.Context, query string, limit int) ([]string, error) {
	// Several posts of one thread can match, so over-fetch before
	// collapsing hits onto threads.
	body := map[string]interface{}{
		"size":    limit * 5,
		"_source": []string{"thread_id"},
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"title^2", "text"},
				"fuzziness": "AUTO",
			},
		},
	}
	queryJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(IndexThreads, IndexPosts),
		c.es.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("searching", res)
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ThreadID string `json:"thread_id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	seen := make(map[string]bool)
	ids := make([]string, 0, limit)
	for _, hit := range searchResp.Hits.Hits {
		id := hit.Source.ThreadID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func responseError(action string, res *esapi.Response) error {
	var errResp map[string]interface{}
	data, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(data, &errResp); err != nil {
		return fmt.Errorf("error %s: [%s]", action, res.Status())
	}
	return fmt.Errorf("error %s: [%s] %v", action, res.Status(), errResp["error"])
}

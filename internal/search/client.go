// Package search implements the vector search client against the external
// search index holding document chunks. Indexing is owned by the external
// pipeline; this client only queries.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
)

const (
	apiVersion     = "2023-11-01"
	searchTimeout  = 30 * time.Second
	defaultTopK    = 5
	selectedFields = "id,document_id,user_id,group_id,chunk_id,title,content,source_path,original_file_name"
)

// Query describes one scoped nearest-neighbor search. Results are always
// constrained to OwnerUserID. When GroupID is set, DocumentID is ignored:
// group membership is searched as a whole, never intersected with a single
// document filter.
type Query struct {
	Vector      []float32
	OwnerUserID string
	GroupID     string
	DocumentID  string
	TopK        int
}

// Config holds search service connection settings.
type Config struct {
	Endpoint  string
	AdminKey  string
	IndexName string
}

// Client executes vector queries against the search index. One attempt per
// call; retries are left to the caller.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: searchTimeout},
	}
}

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
}

type searchRequest struct {
	VectorQueries []vectorQuery `json:"vectorQueries"`
	Filter        string        `json:"filter"`
	Select        string        `json:"select"`
	Top           int           `json:"top"`
}

type searchDoc struct {
	ID               string  `json:"id"`
	DocumentID       string  `json:"document_id"`
	UserID           string  `json:"user_id"`
	GroupID          string  `json:"group_id"`
	ChunkID          *int    `json:"chunk_id"`
	Title            string  `json:"title"`
	Content          string  `json:"content"`
	SourcePath       string  `json:"source_path"`
	OriginalFileName string  `json:"original_file_name"`
	Score            float64 `json:"@search.score"`
}

type searchResponse struct {
	Value []searchDoc `json:"value"`
}

// Search runs one filtered nearest-neighbor query and returns hits in the
// engine's native relevance order (score descending). Zero hits is a valid
// result and signals no relevant content for the scope.
func (c *Client) Search(ctx context.Context, q Query) ([]domain.SearchHit, error) {
	if c.cfg.Endpoint == "" || c.cfg.AdminKey == "" || c.cfg.IndexName == "" {
		return nil, domain.NewConfigurationError(
			"search configuration is missing. Set SEARCH_ENDPOINT, SEARCH_ADMIN_KEY, SEARCH_INDEX_NAME.")
	}
	if q.OwnerUserID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "search query requires an owner user id")
	}

	topK := q.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	body := searchRequest{
		VectorQueries: []vectorQuery{{
			Kind:   "vector",
			Vector: q.Vector,
			Fields: "embedding",
			K:      topK,
		}},
		Filter: buildFilter(q),
		Select: selectedFields,
		Top:    topK,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.IndexName, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.AdminKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "search request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, domain.NewUpstreamError("search", resp.StatusCode, string(raw))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "invalid search response", err)
	}

	hits := make([]domain.SearchHit, 0, len(decoded.Value))
	for _, doc := range decoded.Value {
		hits = append(hits, domain.SearchHit{
			ID:               doc.ID,
			DocumentID:       doc.DocumentID,
			UserID:           doc.UserID,
			GroupID:          doc.GroupID,
			ChunkID:          doc.ChunkID,
			Title:            doc.Title,
			Content:          doc.Content,
			SourcePath:       doc.SourcePath,
			OriginalFileName: doc.OriginalFileName,
			Score:            doc.Score,
		})
	}

	return hits, nil
}

// buildFilter assembles the OData filter from the query spec. Values are
// escaped rather than interpolated raw so a crafted id cannot widen the scope.
func buildFilter(q Query) string {
	clauses := []string{clause("user_id", q.OwnerUserID)}
	if q.GroupID != "" {
		clauses = append(clauses, clause("group_id", q.GroupID))
	} else if q.DocumentID != "" {
		clauses = append(clauses, clause("document_id", q.DocumentID))
	}
	return strings.Join(clauses, " and ")
}

func clause(field, value string) string {
	return fmt.Sprintf("%s eq '%s'", field, escapeODataString(value))
}

// escapeODataString doubles single quotes per the OData string literal rules.
func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

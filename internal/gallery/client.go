package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/observability"
	"github.com/surgimedia/casesync/internal/utils/httpclient"
	"go.uber.org/zap"
)

// Procedure is one taxonomy entry in the remote catalog, together with
// the IDs of the cases filed under it. The same case can appear under
// multiple procedures.
type Procedure struct {
	ID      int      `json:"id" bson:"id"`
	Slug    string   `json:"slug" bson:"slug"`
	Name    string   `json:"name" bson:"name"`
	CaseIDs []string `json:"case_ids" bson:"case_ids"`
}

// CaseDetail is the full record of a single case.
type CaseDetail struct {
	CaseID         string                 `json:"case_id" bson:"case_id"`
	Title          string                 `json:"title" bson:"title"`
	ProcedureSlugs []string               `json:"procedure_slugs" bson:"procedure_slugs"`
	Fields         map[string]interface{} `json:"fields,omitempty" bson:"fields,omitempty"`
}

// API is the surface the sync engine consumes.
type API interface {
	FetchProcedures(ctx context.Context) ([]Procedure, error)
	FetchCaseDetail(ctx context.Context, caseID string) (*CaseDetail, error)
}

// Client talks to the remote gallery catalog API.
type Client struct {
	baseURL string
	token   string
	pool    *httpclient.Pool
	logger  *zap.Logger
}

// NewClient creates a gallery API client authenticated with the
// per-site bearer token.
func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	logger.Debug("gallery client configured",
		zap.String("base_url", baseURL),
		zap.String("token", observability.MaskToken(token)))
	return &Client{
		baseURL: baseURL,
		token:   token,
		pool:    httpclient.GetGlobalPool(),
		logger:  logger,
	}
}

// FetchProcedures retrieves the full procedure catalog in one call.
func (c *Client) FetchProcedures(ctx context.Context) ([]Procedure, error) {
	var response struct {
		Procedures []Procedure `json:"procedures"`
	}
	if err := c.getJSON(ctx, "/procedures", &response); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched procedure catalog",
		zap.Int("procedure_count", len(response.Procedures)))
	return response.Procedures, nil
}

// FetchCaseDetail retrieves the full record of one case.
func (c *Client) FetchCaseDetail(ctx context.Context, caseID string) (*CaseDetail, error) {
	var detail CaseDetail
	if err := c.getJSON(ctx, "/cases/"+url.PathEscape(caseID), &detail); err != nil {
		return nil, err
	}
	if detail.CaseID == "" {
		detail.CaseID = caseID
	}
	return &detail, nil
}

// getJSON performs an authenticated GET and decodes the JSON body.
// Transport and upstream failures both map to models.ErrRemoteFetch so
// the engine treats them uniformly as stage-fatal.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", models.ErrRemoteFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	client := c.pool.Get()
	defer c.pool.Put(client)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrRemoteFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("gallery API returned non-200",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: %s returned %d: %s", models.ErrRemoteFetch, path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", models.ErrRemoteFetch, err)
	}
	return nil
}

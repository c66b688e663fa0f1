package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/observability"
	"github.com/surgimedia/casesync/internal/utils/httpclient"
	"go.uber.org/zap"
)

// Report is the last status report held by the coordinator.
type Report struct {
	Status      string    `json:"status"`
	CasesSynced int       `json:"cases_synced"`
	Message     string    `json:"message,omitempty"`
	ReportedAt  time.Time `json:"reported_at"`
}

// Client talks to the external job coordination API. The coordinator
// owns mutual exclusion: at most one job is active system-wide, and a
// second registration is rejected until the active job reports a
// terminal status.
type Client interface {
	HasActiveJob(ctx context.Context) (bool, error)
	RegisterSync(ctx context.Context, jobType string, scheduledTime *time.Time) (string, error)
	ReportSync(ctx context.Context, status string, casesSynced int, message string, detail map[string]interface{}) error
	GetCurrentJob(ctx context.Context) (*models.SyncJob, error)
	GetLastReport(ctx context.Context) (*Report, error)
}

// HTTPClient is the production coordinator client: JSON over HTTPS,
// authenticated with the same bearer token as the catalog API.
type HTTPClient struct {
	baseURL string
	token   string
	pool    *httpclient.Pool
	logger  *zap.Logger
}

// NewHTTPClient creates a coordinator client.
func NewHTTPClient(baseURL, token string, logger *zap.Logger) *HTTPClient {
	logger.Debug("coordinator client configured",
		zap.String("base_url", baseURL),
		zap.String("token", observability.MaskToken(token)))
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		pool:    httpclient.GetGlobalPool(),
		logger:  logger,
	}
}

type statusResponse struct {
	ActiveJob  *models.SyncJob `json:"active_job"`
	LastReport *Report         `json:"last_report"`
}

// HasActiveJob asks the coordinator whether a job is in progress.
func (c *HTTPClient) HasActiveJob(ctx context.Context) (bool, error) {
	status, err := c.getStatus(ctx)
	if err != nil {
		return false, err
	}
	return status.ActiveJob != nil && !models.IsTerminalStatus(status.ActiveJob.Status), nil
}

// RegisterSync registers a run (optionally future-scheduled) and
// returns the coordinator-assigned job ID. A 409 means another job is
// already active.
func (c *HTTPClient) RegisterSync(ctx context.Context, jobType string, scheduledTime *time.Time) (string, error) {
	payload := map[string]interface{}{"type": jobType}
	if scheduledTime != nil {
		payload["scheduled_time"] = scheduledTime.UTC().Format(time.RFC3339)
	}

	var response struct {
		JobID string `json:"job_id"`
	}
	statusCode, err := c.postJSON(ctx, "/register", payload, &response)
	if err != nil {
		return "", err
	}
	if statusCode == http.StatusConflict {
		return "", models.ErrScheduleConflict
	}
	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: register returned %d", models.ErrRegistryUnavailable, statusCode)
	}

	c.logger.Info("registered sync job with coordinator",
		zap.String("job_id", response.JobID),
		zap.String("type", jobType))
	return response.JobID, nil
}

// ReportSync reports a status transition. A terminal status clears the
// coordinator's active-job slot so the next run can register.
func (c *HTTPClient) ReportSync(ctx context.Context, status string, casesSynced int, message string, detail map[string]interface{}) error {
	payload := map[string]interface{}{
		"status":       status,
		"cases_synced": casesSynced,
		"message":      message,
	}
	if detail != nil {
		payload["detail"] = detail
	}

	statusCode, err := c.postJSON(ctx, "/report", payload, nil)
	if err != nil {
		return err
	}
	if statusCode != http.StatusOK {
		return fmt.Errorf("%w: report returned %d", models.ErrRegistryUnavailable, statusCode)
	}
	return nil
}

// GetCurrentJob returns the coordinator's active job, or nil.
func (c *HTTPClient) GetCurrentJob(ctx context.Context) (*models.SyncJob, error) {
	status, err := c.getStatus(ctx)
	if err != nil {
		return nil, err
	}
	return status.ActiveJob, nil
}

// GetLastReport returns the coordinator's last report, or nil.
func (c *HTTPClient) GetLastReport(ctx context.Context) (*Report, error) {
	status, err := c.getStatus(ctx)
	if err != nil {
		return nil, err
	}
	return status.LastReport, nil
}

func (c *HTTPClient) getStatus(ctx context.Context) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRegistryUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	client := c.pool.Get()
	defer c.pool.Put(client)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status returned %d", models.ErrRegistryUnavailable, resp.StatusCode)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: decode status: %v", models.ErrRegistryUnavailable, err)
	}
	return &status, nil
}

// postJSON posts a JSON payload and decodes the body into out when the
// response is a success and out is non-nil. The status code is always
// returned so callers can map coordinator refusals.
func (c *HTTPClient) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: marshal payload: %v", models.ErrRegistryUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrRegistryUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	client := c.pool.Get()
	defer c.pool.Put(client)

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("%w: decode response: %v", models.ErrRegistryUnavailable, err)
		}
	}
	return resp.StatusCode, nil
}

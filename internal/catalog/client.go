package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"schedsync/internal/schedule"
	logx "schedsync/pkg/logx"
)

const defaultTimeout = 30 * time.Second

type Config struct {
	// BaseURL is the catalog API root, e.g. "https://jobs.example.com".
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

type Client struct {
	cfg Config
	hc  *http.Client
	log logx.Logger
}

type authResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Job is the subset of the catalog's job record the scheduler consumes.
type Job struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	TenantID   int64  `json:"tenantId"`
	ScheduleID int64  `json:"jobScheduleId"`
	RowState   int    `json:"rowStateId"`
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("catalog: base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
		log: log,
	}, nil
}

// Authenticate performs the service login and returns a bearer token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"UserName": c.cfg.Username,
		"Password": c.cfg.Password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/Auth/ServiceLogin", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("catalog: login: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("catalog: login: unexpected status %s", resp.Status)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("catalog: login: decode response: %w", err)
	}
	if strings.TrimSpace(auth.Token) == "" {
		return "", errors.New("catalog: login: empty token")
	}
	return auth.Token, nil
}

// FetchSchedules fetches every schedule record known to the catalog.
func (c *Client) FetchSchedules(ctx context.Context) ([]schedule.Record, error) {
	var out []schedule.Record
	if err := c.getJSON(ctx, "/api/ImportJobs/Schedules/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchTenantSchedules fetches the schedule records of one tenant.
func (c *Client) FetchTenantSchedules(ctx context.Context, tenantID int64) ([]schedule.Record, error) {
	if tenantID < 0 {
		return nil, fmt.Errorf("catalog: invalid tenant id %d", tenantID)
	}
	var out []schedule.Record
	if err := c.getJSON(ctx, "/api/ImportJobs/Schedules/"+strconv.FormatInt(tenantID, 10), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchJob fetches one job record.
func (c *Client) FetchJob(ctx context.Context, jobID int64) (*Job, error) {
	if jobID < 0 {
		return nil, fmt.Errorf("catalog: invalid job id %d", jobID)
	}
	var out Job
	if err := c.getJSON(ctx, "/api/ImportJobs/Job/"+strconv.FormatInt(jobID, 10), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunJobs asks the execution endpoint to run the jobs attached to a schedule.
// Only the response status matters.
func (c *Client) RunJobs(ctx context.Context, scheduleID int64) error {
	if scheduleID <= 0 {
		return fmt.Errorf("catalog: invalid schedule id %d", scheduleID)
	}

	token, err := c.Authenticate(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(scheduleID)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/ImportJobs/Schedules/RunJobs/"+strconv.FormatInt(scheduleID, 10), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: run jobs %d: %w", scheduleID, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("catalog: run jobs %d: unexpected status %s", scheduleID, resp.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: get %s: %w", path, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog: get %s: unexpected status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog: get %s: decode response: %w", path, err)
	}
	return nil
}

// drain lets the transport reuse the connection.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}

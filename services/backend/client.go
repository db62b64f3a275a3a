package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds every call when no WithTimeout option is given
const DefaultTimeout = 10 * time.Second

// Client is a stateless wrapper over the funding backend's REST API.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a Client pointing at the backend base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:8000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// BaseURL is the normalised backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, op Operation, method, path string, body any, v any) (err error) {
	start := time.Now()
	defer func() {
		observeCall(op, err, time.Since(start))
		if err != nil {
			c.logger.Warn("backend request failed",
				zap.String("operation", string(op)),
				zap.String("method", method),
				zap.String("path", path),
				zap.String("kind", string(KindOf(err))),
				zap.Duration("elapsed", time.Since(start)),
				zap.NamedError("cause", causeOf(err)),
			)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, mErr := json.Marshal(body)
		if mErr != nil {
			return &RequestError{Operation: op, Kind: KindEncode, Err: fmt.Errorf("encode request body: %w", mErr)}
		}
		reader = bytes.NewReader(payload)
	}

	req, rErr := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if rErr != nil {
		return &RequestError{Operation: op, Kind: KindEncode, Err: fmt.Errorf("create request: %w", rErr)}
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, dErr := c.httpClient.Do(req)
	if dErr != nil {
		return &RequestError{Operation: op, Kind: transportKind(ctx, dErr), Err: fmt.Errorf("perform request: %w", dErr)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &RequestError{Operation: op, Kind: KindStatus, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("API returned status: %d", resp.StatusCode)}
	}

	if v == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil
	}
	if decErr := json.NewDecoder(resp.Body).Decode(v); decErr != nil {
		kind := KindDecode
		if ctx.Err() != nil {
			kind = KindTimeout
		}
		return &RequestError{Operation: op, Kind: kind, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", decErr)}
	}
	return nil
}

func causeOf(err error) error {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Err != nil {
		return reqErr.Err
	}
	return err
}

func transportKind(ctx context.Context, err error) ErrorKind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

// ContractorProjects lists the calling contractor's projects.
func (c *Client) ContractorProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, OpContractorProjects, http.MethodGet, "/contractor/projects", nil, &projects); err != nil {
		return nil, err
	}
	return nonNil(projects), nil
}

// GovernmentProjects lists every project the government side oversees.
func (c *Client) GovernmentProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, OpGovernmentProjects, http.MethodGet, "/government/projects", nil, &projects); err != nil {
		return nil, err
	}
	return nonNil(projects), nil
}

// PublicProjects lists projects together with their transaction ledgers.
func (c *Client) PublicProjects(ctx context.Context) ([]PublicProject, error) {
	var projects []PublicProject
	if err := c.do(ctx, OpPublicProjects, http.MethodGet, "/public/projects", nil, &projects); err != nil {
		return nil, err
	}
	return nonNil(projects), nil
}

// SubmitMilestone asks for verification of a finished milestone. No body is sent.
func (c *Client) SubmitMilestone(ctx context.Context, projectID, milestoneID int64) error {
	path := "/contractor/projects/" + id(projectID) + "/milestones/" + id(milestoneID) + "/submit"
	return c.do(ctx, OpSubmitMilestone, http.MethodPost, path, nil, nil)
}

// CreateProject registers a new project and returns it as stored.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	if req.Milestones == nil {
		req.Milestones = []MilestoneDraft{}
	}
	var project Project
	if err := c.do(ctx, OpCreateProject, http.MethodPost, "/government/projects", req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// PendingVerifications returns the auditor queue as untyped records.
func (c *Client) PendingVerifications(ctx context.Context) ([]PendingVerification, error) {
	var records []PendingVerification
	if err := c.do(ctx, OpPendingVerifications, http.MethodGet, "/auditor/pending-verifications", nil, &records); err != nil {
		return nil, err
	}
	return nonNil(records), nil
}

// VerifyMilestone approves or rejects a submitted milestone. Empty notes are
// left out of the payload.
func (c *Client) VerifyMilestone(ctx context.Context, milestoneID int64, approved bool, notes string) error {
	body := verifyRequest{Approved: approved}
	if notes != "" {
		body.Notes = &notes
	}
	return c.do(ctx, OpVerifyMilestone, http.MethodPost, "/auditor/milestones/"+id(milestoneID)+"/verify", body, nil)
}

func (c *Client) ContractorStats(ctx context.Context) (ContractorStats, error) {
	var stats ContractorStats
	if err := c.do(ctx, OpContractorStats, http.MethodGet, "/contractor/stats", nil, &stats); err != nil {
		return ContractorStats{}, err
	}
	return stats, nil
}

func (c *Client) GovernmentStats(ctx context.Context) (GovernmentStats, error) {
	var stats GovernmentStats
	if err := c.do(ctx, OpGovernmentStats, http.MethodGet, "/government/stats", nil, &stats); err != nil {
		return GovernmentStats{}, err
	}
	return stats, nil
}

func (c *Client) PublicStats(ctx context.Context) (PublicStats, error) {
	var stats PublicStats
	if err := c.do(ctx, OpPublicStats, http.MethodGet, "/public/stats", nil, &stats); err != nil {
		return PublicStats{}, err
	}
	return stats, nil
}

// nonNil turns a JSON null list into an empty one so callers can tell
// "loaded, nothing there" from "not loaded".
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

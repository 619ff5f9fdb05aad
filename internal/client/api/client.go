// Package api is the HTTP client for the notes backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
)

const (
	// DefaultBaseURL is the local development backend.
	DefaultBaseURL = "http://127.0.0.1:8000/api/v1"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 12 * time.Second
)

// Client implements services.RemoteAPI over HTTP. Every request carries
// "Authorization: tma <initData>".
type Client struct {
	baseURL    string
	initData   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client. timeout <= 0 uses DefaultTimeout.
func NewClient(baseURL, initData string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		initData: initData,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// envelope is the common response wrapper.
type envelope struct {
	OK    bool `json:"ok"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

type searchResponse struct {
	Items  []models.Note `json:"items"`
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

type noteResponse struct {
	Note models.Note `json:"note"`
}

type topicsResponse struct {
	Topics []models.Topic `json:"topics"`
}

func (c *Client) SearchNotes(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	req.ApplyDefaults()

	params := url.Values{}
	if q := strings.TrimSpace(req.Query); q != "" {
		params.Set("q", q)
	}
	if req.TopicID != nil && *req.TopicID != "" {
		params.Set("topic", *req.TopicID)
	}
	params.Set("offset", strconv.Itoa(req.Offset))
	params.Set("limit", strconv.Itoa(req.Limit))
	params.Set("mode", string(req.Mode))

	var out searchResponse
	if err := c.do(ctx, http.MethodGet, "/notes/search?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []models.Note{}
	}
	return &models.SearchResponse{Items: out.Items, Total: out.Total, Offset: out.Offset, Limit: out.Limit}, nil
}

func (c *Client) SaveNote(ctx context.Context, note models.Note) (*models.SaveResult, error) {
	var out noteResponse
	if err := c.do(ctx, http.MethodPost, "/notes", note, &out); err != nil {
		return nil, err
	}
	return &models.SaveResult{OK: true, Note: out.Note}, nil
}

func (c *Client) UpdateNote(ctx context.Context, note models.Note) (*models.SaveResult, error) {
	var out noteResponse
	if err := c.do(ctx, http.MethodPut, "/notes/"+url.PathEscape(note.ID), note, &out); err != nil {
		return nil, err
	}
	return &models.SaveResult{OK: true, Note: out.Note}, nil
}

func (c *Client) DeleteNote(ctx context.Context, id string) (*models.DeleteResult, error) {
	if err := c.do(ctx, http.MethodDelete, "/notes/"+url.PathEscape(id), nil, nil); err != nil {
		return nil, err
	}
	return &models.DeleteResult{OK: true}, nil
}

func (c *Client) ToggleFavorite(ctx context.Context, id string, isFavorite bool) (*models.Note, error) {
	var out noteResponse
	body := models.FavoriteRequest{IsFavorite: isFavorite}
	if err := c.do(ctx, http.MethodPatch, "/notes/"+url.PathEscape(id)+"/favorite", body, &out); err != nil {
		return nil, err
	}
	return &out.Note, nil
}

func (c *Client) GetTopics(ctx context.Context) ([]models.Topic, error) {
	var out topicsResponse
	if err := c.do(ctx, http.MethodGet, "/topics", nil, &out); err != nil {
		return nil, err
	}
	if out.Topics == nil {
		out.Topics = []models.Topic{}
	}
	return out.Topics, nil
}

func (c *Client) EnsureTopicPath(ctx context.Context, path string) (*models.EnsurePathResult, error) {
	var out models.EnsurePathResult
	if err := c.do(ctx, http.MethodPost, "/topics/ensure-path", models.EnsurePathRequest{Path: path}, &out); err != nil {
		return nil, err
	}
	if out.CreatedTopics == nil {
		out.CreatedTopics = []models.Topic{}
	}
	return &out, nil
}

func (c *Client) DeleteTopic(ctx context.Context, id string) (*models.DeleteResult, error) {
	if err := c.do(ctx, http.MethodDelete, "/topics/"+url.PathEscape(id), nil, nil); err != nil {
		return nil, err
	}
	return &models.DeleteResult{OK: true}, nil
}

// do sends one request and decodes the success payload into out. Failures
// come back as *domain.RemoteError.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "tma "+c.initData)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return classify(err)
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(err)
	}
	c.logger.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &domain.RemoteError{Kind: domain.RemoteRejected, Status: resp.StatusCode, Err: fmt.Errorf("status %d", resp.StatusCode)}
		}
		return &domain.RemoteError{Kind: domain.RemoteTransport, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if !env.OK || resp.StatusCode >= 300 {
		remoteErr := &domain.RemoteError{Kind: domain.RemoteRejected, Status: resp.StatusCode}
		if env.Error != nil {
			remoteErr.Message = env.Error.Message
			remoteErr.Code = env.Error.Code
		}
		if remoteErr.Message == "" {
			remoteErr.Err = fmt.Errorf("API error (status %d)", resp.StatusCode)
		}
		return remoteErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &domain.RemoteError{Kind: domain.RemoteTransport, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

// classify maps a transport-level failure to timeout or network error.
func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.RemoteError{Kind: domain.RemoteTimeout, Err: err}
	}
	return &domain.RemoteError{Kind: domain.RemoteTransport, Err: err}
}

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/canopyproj/canopy/internal/model"
)

// maxBodySize caps response bodies. Entity payloads are small; the cap
// guards against a misbehaving endpoint exhausting memory.
const maxBodySize = 10 * 1024 * 1024

// HTTPAPI talks to the remote content API over HTTPS. It performs
// exactly one call per Fetch and classifies failures into FetchError
// kinds; rate limiting and retry live in Client.
type HTTPAPI struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPAPI creates an HTTPAPI for the given endpoint. The token is
// sent as a bearer credential on every request.
func NewHTTPAPI(baseURL, token string, timeout time.Duration) *HTTPAPI {
	return &HTTPAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// wireEntity is the remote API's entity representation.
type wireEntity struct {
	ID             string                         `json:"id"`
	Type           model.NodeType                 `json:"type"`
	ParentID       string                         `json:"parent_id"`
	Title          string                         `json:"title"`
	URL            string                         `json:"url"`
	Text           string                         `json:"text"`
	Properties     map[string]model.PropertyValue `json:"properties"`
	Content        map[string]any                 `json:"content"`
	Children       []model.ChildRef               `json:"children"`
	CreatedTime    time.Time                      `json:"created_time"`
	LastEditedTime time.Time                      `json:"last_edited_time"`
	HasMore        bool                           `json:"has_more"`
	NextCursor     string                         `json:"next_cursor"`
}

// Fetch implements RemoteAPI.
func (a *HTTPAPI) Fetch(ctx context.Context, req Request) (*Response, error) {
	u := fmt.Sprintf("%s/v1/entities/%s?type=%s",
		a.baseURL, url.PathEscape(req.ID), url.QueryEscape(string(req.Type)))
	if req.Cursor != "" {
		u += "&cursor=" + url.QueryEscape(req.Cursor)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.token)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	var wire wireEntity
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&wire); err != nil {
		return nil, &FetchError{Kind: KindTransport, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return &Response{
		Node: &model.EntityNode{
			ID:             wire.ID,
			Type:           wire.Type,
			ParentID:       wire.ParentID,
			Title:          wire.Title,
			URL:            wire.URL,
			Text:           wire.Text,
			Properties:     wire.Properties,
			Content:        wire.Content,
			Children:       wire.Children,
			CreatedTime:    wire.CreatedTime,
			LastEditedTime: wire.LastEditedTime,
		},
		HasMore:    wire.HasMore,
		NextCursor: wire.NextCursor,
	}, nil
}

// classifyStatus maps a non-200 response to a FetchError kind. The body
// is drained so the connection can be reused.
func classifyStatus(resp *http.Response) *FetchError {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &FetchError{
			Kind:       KindRateLimited,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &FetchError{Kind: KindUnauthorized, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return &FetchError{Kind: KindNotFound, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &FetchError{Kind: KindServer, StatusCode: resp.StatusCode}
	default:
		return &FetchError{Kind: KindTransport, StatusCode: resp.StatusCode}
	}
}

// parseRetryAfter reads a Retry-After header value: delta-seconds or an
// HTTP date. Unparseable values yield zero, falling back to backoff.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

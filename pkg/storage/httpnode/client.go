// Package httpnode implements the storage.Backend contract over the storage
// node HTTP API.
//
// A node exposes content objects under /file/{id}: POST stores, GET streams
// back and DELETE removes. Mutating calls respond with the node's usage
// figures so the metadata layer can keep its cached accounting fresh.
package httpnode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/driftfs/driftfs/pkg/storage"
)

// FileSizeHeader carries the content length of an upload. It is separate
// from Content-Length so proxies re-chunking the body cannot distort the
// accounting.
const FileSizeHeader = "File-Size"

// ResponseError is a non-2xx reply from a storage node. The redirect layer
// propagates these distinctly from transport failures so clients can tell a
// node-side rejection apart from an unreachable node.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("storage node responded with status %d: %s", e.StatusCode, e.Body)
}

// Client talks to one storage node.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Config holds client construction parameters.
type Config struct {
	// BaseURL is the node's endpoint, without a trailing slash.
	BaseURL string

	// Token is the bearer token authenticating this server against the node.
	Token string

	// Timeout bounds each request including the body transfer. Zero means
	// no client-side timeout, leaving cancellation to the request context.
	Timeout time.Duration

	// HTTPClient overrides the underlying client. Timeout is ignored when
	// set.
	HTTPClient *http.Client
}

// NewClient creates a storage node client.
func NewClient(config Config) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Client{
		baseURL: config.BaseURL,
		token:   config.Token,
		client:  httpClient,
	}
}

// Upload streams content to the node under id.
func (c *Client) Upload(ctx context.Context, id string, size int64, content io.Reader) (storage.SpaceInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.fileURL(id), content)
	if err != nil {
		return storage.SpaceInfo{}, err
	}
	req.ContentLength = size
	req.Header.Set(FileSizeHeader, strconv.FormatInt(size, 10))
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return storage.SpaceInfo{}, fmt.Errorf("upload to %s failed: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return c.decodeSpaceInfo(resp)
}

// Download opens the content stored under id. The caller must close the
// returned reader.
func (c *Client) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL(id), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download from %s failed: %w", c.baseURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, responseError(resp)
	}
	return resp.Body, nil
}

// Delete removes the content stored under id.
func (c *Client) Delete(ctx context.Context, id string) (storage.SpaceInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.fileURL(id), nil)
	if err != nil {
		return storage.SpaceInfo{}, err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return storage.SpaceInfo{}, fmt.Errorf("delete on %s failed: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return c.decodeSpaceInfo(resp)
}

func (c *Client) fileURL(id string) string {
	return c.baseURL + "/file/" + id
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) decodeSpaceInfo(resp *http.Response) (storage.SpaceInfo, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return storage.SpaceInfo{}, responseError(resp)
	}

	var info storage.SpaceInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return storage.SpaceInfo{}, fmt.Errorf("invalid usage report from %s: %w", c.baseURL, err)
	}
	return info, nil
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &ResponseError{StatusCode: resp.StatusCode, Body: string(body)}
}

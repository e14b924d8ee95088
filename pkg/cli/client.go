package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/generate"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/httputil"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/validation"
)

// ErrBadFileName is returned when the server names a download unsafely
var ErrBadFileName = errors.New("server sent an unusable file name")

// APIError is a non-2xx response from the server
type APIError struct {
	Status int
	Body   httputil.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d", e.Status)
	if e.Body.Code != "" {
		msg += " " + e.Body.Code
	}
	if e.Body.Error != "" {
		msg += ": " + e.Body.Error
	}
	if len(e.Body.Missing) > 0 {
		msg += " (missing: " + strings.Join(e.Body.Missing, ", ") + ")"
	}
	return msg
}

// Client talks to a kll-server
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}
	return &Client{baseURL: u, httpClient: &http.Client{Timeout: timeout}}, nil
}

func (c *Client) resolve(p string) string {
	u := *c.baseURL
	u.Path = path.Join(u.Path, p)
	return u.String()
}

// Generate asks the server for a new installer build
func (c *Client) Generate(ctx context.Context, appIDs []string) (*generate.Result, error) {
	body, err := json.Marshal(map[string][]string{"appIds": appIDs})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/api/generate"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	var result generate.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// Download saves a build into dir and returns the written file path. The file
// is written under a temporary name and renamed once complete.
func (c *Client) Download(ctx context.Context, buildID, downloadPrefix, dir string) (string, int64, error) {
	if !validation.IsValidBuildID(buildID) {
		return "", 0, fmt.Errorf("invalid build id: %q", buildID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path.Join(downloadPrefix, buildID)), nil)
	if err != nil {
		return "", 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to call server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, readAPIError(resp)
	}

	name, err := attachmentName(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".kll-download-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", n, fmt.Errorf("download interrupted after %d bytes: %w", n, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return "", n, fmt.Errorf("download truncated: got %d of %d bytes", n, resp.ContentLength)
	}

	dest := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", n, fmt.Errorf("failed to save %s: %w", dest, err)
	}
	return dest, n, nil
}

func attachmentName(disposition string) (string, error) {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadFileName, err)
	}
	name := params["filename"]
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrBadFileName, name)
	}
	return name, nil
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &apiErr.Body); err != nil {
		apiErr.Body.Error = strings.TrimSpace(string(data))
	}
	return apiErr
}

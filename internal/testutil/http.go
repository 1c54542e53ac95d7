package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

// HTTPTestClient wraps http.Client with test helpers. Redirects are not
// followed so tests can assert on them.
type HTTPTestClient struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPTestClient creates a new test HTTP client
func NewHTTPTestClient(baseURL string) *HTTPTestClient {
	return &HTTPTestClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *HTTPTestClient) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	return resp
}

func (c *HTTPTestClient) doJSON(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	jsonBody, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	return c.do(t, method, path, "application/json", bytes.NewReader(jsonBody))
}

// POST makes a POST request with JSON body
func (c *HTTPTestClient) POST(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	return c.doJSON(t, http.MethodPost, path, body)
}

// PUT makes a PUT request with JSON body
func (c *HTTPTestClient) PUT(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	return c.doJSON(t, http.MethodPut, path, body)
}

// GET makes a GET request
func (c *HTTPTestClient) GET(t *testing.T, path string) *http.Response {
	t.Helper()
	return c.do(t, http.MethodGet, path, "", nil)
}

// DELETE makes a DELETE request
func (c *HTTPTestClient) DELETE(t *testing.T, path string) *http.Response {
	t.Helper()
	return c.do(t, http.MethodDelete, path, "", nil)
}

// PostForm submits values the way a browser posts an HTML form
func (c *HTTPTestClient) PostForm(t *testing.T, path string, values url.Values) *http.Response {
	t.Helper()
	return c.do(t, http.MethodPost, path, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
}

// DecodeJSON decodes response body into target
func DecodeJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("Failed to decode response (body: %s): %v", string(body), err)
	}
}

// ReadBody reads and returns the response body as string
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	return string(body)
}

// AssertStatusCode asserts the response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()

	if resp.StatusCode != expected {
		body := ReadBody(t, resp)
		t.Errorf("Expected status %d, got %d. Body: %s", expected, resp.StatusCode, body)
	}
}

// Eventually polls cond until it holds or timeout passes. The mirror
// reflects writes asynchronously, so reads after a write need it.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s: %s", timeout, msg)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

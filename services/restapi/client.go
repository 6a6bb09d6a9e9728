// Package restapi is the HTTP client layer: every call to the backend goes through Client, which
// attaches the bearer token, unwraps the {success, data, message} envelope and ends the session
// when the backend answers 401 or 403.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/session"
)

type (
	Options struct {
		BaseURL    string
		Timeout    time.Duration // 0: no timeout
		HTTPClient *http.Client  // optional
	}

	Client struct {
		baseURL  string
		timeout  time.Duration
		http     *rest.Client
		sessions *session.Manager
		logger   core.Logger
	}

	envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message,omitempty"`
	}

	// File is one part of a multipart upload.
	File struct {
		Name    string
		Content []byte
	}
)

func NewClient(opts Options, sessions *session.Manager, logger core.Logger) (*Client, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(opts.BaseURL, "opts.BaseURL"),
		vala.IsNotNil(sessions, "sessions"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:  opts.BaseURL,
		timeout:  opts.Timeout,
		http:     &rest.Client{HTTPClient: httpClient},
		sessions: sessions,
		logger:   logger,
	}, nil
}

func (c *Client) Sessions() *session.Manager { return c.sessions }

func (c *Client) Get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	return c.do(ctx, rest.Get, path, query, nil, "", out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, rest.Post, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, rest.Put, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, rest.Patch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, rest.Delete, path, nil, nil, "", out)
}

// Upload posts files as multipart/form-data, all under the same form field.
func (c *Client) Upload(ctx context.Context, path, field string, files []File, out interface{}) error {
	var buff bytes.Buffer
	mw := multipart.NewWriter(&buff)
	for _, f := range files {
		fw, err := mw.CreateFormFile(field, f.Name)
		if err != nil {
			return errors.Wrap(err, "creating form file")
		}
		if _, err := fw.Write(f.Content); err != nil {
			return errors.Wrap(err, "writing form file")
		}
	}
	if err := mw.Close(); err != nil {
		return errors.Wrap(err, "closing multipart writer")
	}
	return c.do(ctx, rest.Post, path, nil, buff.Bytes(), mw.FormDataContentType(), out)
}

func (c *Client) doJSON(ctx context.Context, method rest.Method, path string, body, out interface{}) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return errors.Wrap(err, "encoding request body")
		}
	}
	return c.do(ctx, method, path, nil, data, "application/json", out)
}

func (c *Client) do(
	ctx context.Context,
	method rest.Method,
	path string,
	query map[string]string,
	body []byte,
	contentType string,
	out interface{},
) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	headers := map[string]string{"Accept": "application/json"}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	if token := c.sessions.Token(); token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     headers,
		QueryParams: query,
		Body:        body,
	}
	res, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	return c.handle(method, path, res, out)
}

func (c *Client) handle(method rest.Method, path string, res *rest.Response, out interface{}) error {
	var env envelope
	decodeErr := error(nil)
	if len(res.Body) > 0 {
		decodeErr = json.Unmarshal([]byte(res.Body), &env)
	}

	apiErr := func(msg string) *Error {
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return &Error{StatusCode: res.StatusCode, Method: string(method), Path: path, Message: msg}
	}

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		// one place ends the session for every endpoint
		if err := c.sessions.Revoke(); err != nil {
			c.logger.Error("revoking session", err)
		}
		return apiErr(env.Message)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return apiErr(env.Message)
	}
	if len(res.Body) == 0 {
		return nil
	}
	if decodeErr != nil {
		return errors.Wrapf(decodeErr, "decoding %s %s response", method, path)
	}
	if !env.Success {
		if env.Message == "" {
			env.Message = "request failed"
		}
		return apiErr(env.Message)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrapf(err, "decoding %s %s data", method, path)
	}
	return nil
}

// Error is a failure reported by the backend: a non-2xx status or a {success:false} envelope.
type Error struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Message returns the backend message of err, or fallback when err did not come from the backend.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

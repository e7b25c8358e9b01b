package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// MsgUnauthorized is the AuthError text used when the backend sends none.
const MsgUnauthorized = "Unauthorized. Please login again."

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, for example http://localhost:3000/api.
	BaseURL string
	// Token is the bearer credential sent with every request.
	Token string
	// HTTPClient is shared by every gateway of the client. A client with
	// Timeout is created when nil.
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zap.SugaredLogger
}

// Client talks to one REST backend. It implements types.Backend.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
	log   *zap.SugaredLogger
}

// NewClient validates opts and returns a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, types.ErrAPIURLMissing
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = types.DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{base: base, token: opts.Token, http: hc, log: log}, nil
}

// Gateway returns the gateway of a standard collection.
func (c *Client) Gateway(collection string) (types.Gateway, error) {
	spec, err := types.LookupCollection(collection)
	if err != nil {
		return nil, err
	}
	return &gateway{client: c, spec: spec}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.base.JoinPath(escaped...).String()
}

// do sends one request and returns the decoded envelope of a 2xx response.
// Non-2xx responses are mapped onto the error taxonomy; collection and id
// name the target for NotFoundError.
func (c *Client) do(ctx context.Context, op, method, target string, body any, collection, id string) (Envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Envelope{}, &types.GatewayError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return Envelope{}, &types.GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnw("request failed", "op", op, "method", method, "url", target, "error", err)
		return Envelope{}, &types.GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Envelope{}, &types.GatewayError{Op: op, Status: resp.StatusCode, Err: err}
	}
	c.log.Debugw("request", "op", op, "method", method, "url", target, "status", resp.StatusCode, "elapsed", time.Since(start))

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Envelope{}, statusError(op, resp.StatusCode, env.Message, collection, id)
	}
	if decodeErr != nil && len(bytes.TrimSpace(raw)) > 0 {
		return Envelope{}, &types.GatewayError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", errMalformed, decodeErr)}
	}
	return env, nil
}

func statusError(op string, status int, message, collection, id string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		if message == "" {
			message = MsgUnauthorized
		}
		return &types.AuthError{Message: message}
	case http.StatusNotFound:
		return &types.NotFoundError{Collection: collection, ID: id, Message: message}
	default:
		return &types.GatewayError{Op: op, Status: status, Message: message}
	}
}

// SignIn exchanges credentials for a bearer token at POST {baseURL}/auth/signin.
// The request is sent without a credential.
func SignIn(ctx context.Context, hc *http.Client, baseURL, email, password string) (string, error) {
	c, err := NewClient(Options{BaseURL: baseURL, HTTPClient: hc})
	if err != nil {
		return "", err
	}
	body := map[string]string{"email": email, "password": password}
	env, err := c.do(ctx, "signin", http.MethodPost, c.endpoint("auth", "signin"), body, "", "")
	if err != nil {
		return "", err
	}
	var data TokenData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		return "", &types.GatewayError{Op: "signin", Err: errMalformed}
	}
	return data.Token, nil
}

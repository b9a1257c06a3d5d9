package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/logging"
	"github.com/dmitrijs2005/dropzone/internal/netx"
	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/grpc"
)

const defaultMetadataCacheSize = 64

// tokenRefreshMargin is how long before expiry a token is renewed ahead of
// the next request. Tokens living less than twice the margin are renewed
// halfway through their lifetime.
const tokenRefreshMargin = 30 * time.Second

// Options configures an HTTPClient.
type Options struct {
	// BaseURL of the entity store, e.g. http://127.0.0.1:8080.
	BaseURL string
	// ClientID and ClientSecret are exchanged for a bearer token. When
	// ClientID is empty requests are sent unauthenticated.
	ClientID     string
	ClientSecret []byte
	// HealthAddr is the host:port of the store's gRPC health endpoint.
	// When empty Ping falls back to GET /healthz.
	HealthAddr string
	// RequestTimeout bounds every HTTP exchange; zero means no timeout.
	RequestTimeout time.Duration
	// MetadataCacheSize is the number of entity definitions kept in memory.
	MetadataCacheSize int
	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// HTTPClient implements API over the store's HTTP interface.
type HTTPClient struct {
	baseURL      string
	clientID     string
	clientSecret []byte
	healthAddr   string
	httpClient   *http.Client
	metadata     *lru.Cache[string, *common.EntityDefinition]
	log          logging.Logger

	// now is a test seam.
	now func() time.Time

	mu        sync.Mutex
	token     string
	refreshAt time.Time
	conn      *grpc.ClientConn
}

var _ API = (*HTTPClient)(nil)

// NewHTTPClient validates opts and builds a client. No network traffic
// happens until the first call.
func NewHTTPClient(opts Options, log logging.Logger) (*HTTPClient, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid base url %q: %w", opts.BaseURL, common.ErrorValidation)
	}

	size := opts.MetadataCacheSize
	if size <= 0 {
		size = defaultMetadataCacheSize
	}
	cache, err := lru.New[string, *common.EntityDefinition](size)
	if err != nil {
		return nil, fmt.Errorf("metadata cache: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.RequestTimeout}
	}
	if log == nil {
		log = logging.Nop()
	}

	return &HTTPClient{
		baseURL:      base,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		healthAddr:   opts.HealthAddr,
		httpClient:   hc,
		metadata:     cache,
		log:          log.With("module", "webapi"),
		now:          time.Now,
	}, nil
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate exchanges the client credentials for a bearer token.
func (c *HTTPClient) Authenticate(ctx context.Context) error {
	if c.clientID == "" {
		return nil
	}

	payload, err := json.Marshal(tokenRequest{ClientID: c.clientID, ClientSecret: string(c.clientSecret)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/token", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := netx.CheckResponse(resp); err != nil {
		return toHTTPError(err)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return fmt.Errorf("empty access token: %w", ErrUnauthorized)
	}

	var refreshAt time.Time
	if tr.ExpiresIn > 0 {
		life := time.Duration(tr.ExpiresIn) * time.Second
		refreshAt = c.now().Add(life - min(tokenRefreshMargin, life/2))
	}

	c.mu.Lock()
	c.token = tr.AccessToken
	c.refreshAt = refreshAt
	c.mu.Unlock()

	c.log.Debug(ctx, "access token acquired", "expires_in", tr.ExpiresIn)
	return nil
}

func (c *HTTPClient) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// tokenStale reports whether a token must be acquired before the next
// request: there is none yet, or it is about to expire.
func (c *HTTPClient) tokenStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return true
	}
	return !c.refreshAt.IsZero() && !c.now().Before(c.refreshAt)
}

// do sends the request produced by build, attaching the bearer token. A 401
// answer triggers one re-authentication and one retry, so build must produce
// a fresh request (and body) on every call. Non-2xx responses are converted
// to *HTTPError and the body is closed; otherwise the caller owns resp.Body.
func (c *HTTPClient) do(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	if c.clientID != "" && c.tokenStale() {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	send := func() (*http.Response, error) {
		req, err := build()
		if err != nil {
			return nil, err
		}
		if tok := c.currentToken(); tok != "" {
			req.Header.Set(common.AuthorizationHeaderName, "Bearer "+tok)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return resp, nil
	}

	resp, err := send()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.clientID != "" {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		c.log.Debug(ctx, "token rejected, re-authenticating")
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
		resp, err = send()
		if err != nil {
			return nil, err
		}
	}

	if err := netx.CheckResponse(resp); err != nil {
		resp.Body.Close()
		return nil, toHTTPError(err)
	}
	return resp, nil
}

func toHTTPError(err error) error {
	var se *netx.StatusError
	if errors.As(err, &se) {
		return &HTTPError{StatusCode: se.StatusCode, Status: se.Status, Body: se.Body}
	}
	return err
}

func (c *HTTPClient) dataURL(parts ...string) string {
	return c.baseURL + "/api/data/" + strings.Join(parts, "/")
}

func (c *HTTPClient) LookupEntityMetadata(ctx context.Context, logicalName string) (*common.EntityDefinition, error) {
	key := strings.ToLower(logicalName)
	if def, ok := c.metadata.Get(key); ok {
		return def, nil
	}

	u := c.dataURL(fmt.Sprintf("EntityDefinitions(LogicalName='%s')", url.PathEscape(key)))
	resp, err := c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var def common.EntityDefinition
	if err := json.NewDecoder(resp.Body).Decode(&def); err != nil {
		return nil, fmt.Errorf("decode entity definition: %w", err)
	}

	c.metadata.Add(key, &def)
	return &def, nil
}

type listResponse struct {
	Value []Record `json:"value"`
}

func (c *HTTPClient) ListRecords(ctx context.Context, entitySet string, q Query) ([]Record, error) {
	u := c.dataURL(url.PathEscape(entitySet))
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var lr listResponse
	if err := dec.Decode(&lr); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	if lr.Value == nil {
		lr.Value = []Record{}
	}
	return lr.Value, nil
}

type createResponse struct {
	ID string `json:"id"`
}

func (c *HTTPClient) CreateRecord(ctx context.Context, entitySet string, fields Record) (string, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	u := c.dataURL(url.PathEscape(entitySet))
	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var cr createResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if cr.ID == "" {
		return "", fmt.Errorf("create response without id: %w", common.ErrorInternal)
	}
	return cr.ID, nil
}

// PatchBinaryAttribute streams content to a file attribute. Tokens are
// renewed before they expire, so the body is normally sent once. If the store
// still answers 401 the body is sent again after re-authentication; a caller
// wrapping onProgress with netx.Monotonic then sees no movement until the
// second attempt passes the first one's high-water mark.
func (c *HTTPClient) PatchBinaryAttribute(ctx context.Context, entitySet, id, attribute string, content []byte, fileName string, onProgress netx.ProgressFunc) error {
	u := c.dataURL(fmt.Sprintf("%s(%s)", url.PathEscape(entitySet), url.PathEscape(id)), url.PathEscape(attribute))

	resp, err := c.do(ctx, func() (*http.Request, error) {
		body := netx.NewProgressReader(bytes.NewReader(content), int64(len(content)), onProgress)
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, body)
		if err != nil {
			return nil, err
		}
		req.ContentLength = int64(len(content))
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set(common.FileNameHeaderName, fileName)
		return req, nil
	})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *HTTPClient) DeleteRecord(ctx context.Context, entitySet, id string) error {
	u := c.dataURL(fmt.Sprintf("%s(%s)", url.PathEscape(entitySet), url.PathEscape(id)))

	resp, err := c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Close releases the health-check connection, if one was opened.
func (c *HTTPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

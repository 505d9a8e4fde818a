package grocy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/grocysync/internal/model"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "grocysync/0.1"
	apiKeyHeader     = "GROCY-API-KEY"
	maxErrorBody     = 64 << 10
)

// Config holds what the client needs to reach one Grocy instance.
type Config struct {
	ServerURL string
	APIKey    string
	Timeout   time.Duration
}

// Client talks to the Grocy REST API.
type Client struct {
	baseURL   *url.URL
	apiKey    string
	http      *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewClient builds a Client for cfg.ServerURL. The /api prefix is added.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := parseBaseURL(cfg.ServerURL)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		http:      &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
		logger:    logger,
	}, nil
}

type changedTimeResponse struct {
	ChangedTime string `json:"changed_time"`
}

// DBChangedTime returns the server's last-modified token for its database.
func (c *Client) DBChangedTime(ctx context.Context) (string, error) {
	var resp changedTimeResponse
	if err := c.do(ctx, http.MethodGet, "/system/db-changed-time", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.ChangedTime, nil
}

// GetObjects decodes the full collection into dest (a pointer to a slice).
func (c *Client) GetObjects(ctx context.Context, entity Entity, dest any) error {
	return c.do(ctx, http.MethodGet, "/objects/"+string(entity), nil, nil, dest)
}

// GetObject decodes a single row into dest.
func (c *Client) GetObject(ctx context.Context, entity Entity, id int64, dest any) error {
	return c.do(ctx, http.MethodGet, objectPath(entity, id), nil, nil, dest)
}

type createdResponse struct {
	CreatedObjectID model.FlexInt `json:"created_object_id"`
}

// CreateObject posts payload and returns the new row id.
func (c *Client) CreateObject(ctx context.Context, entity Entity, payload any) (int64, error) {
	var resp createdResponse
	if err := c.do(ctx, http.MethodPost, "/objects/"+string(entity), nil, payload, &resp); err != nil {
		return 0, err
	}
	return int64(resp.CreatedObjectID), nil
}

// UpdateObject replaces the row with payload.
func (c *Client) UpdateObject(ctx context.Context, entity Entity, id int64, payload any) error {
	return c.do(ctx, http.MethodPut, objectPath(entity, id), nil, payload, nil)
}

// DeleteObject removes the row.
func (c *Client) DeleteObject(ctx context.Context, entity Entity, id int64) error {
	return c.do(ctx, http.MethodDelete, objectPath(entity, id), nil, nil, nil)
}

// ProductDetails fetches the live stock summary of one product.
func (c *Client) ProductDetails(ctx context.Context, productID int64) (*model.ProductDetails, error) {
	var details model.ProductDetails
	if err := c.do(ctx, http.MethodGet, "/stock/products/"+strconv.FormatInt(productID, 10), nil, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// RecipeFulfillments returns stock coverage for all recipes.
func (c *Client) RecipeFulfillments(ctx context.Context) ([]model.RecipeFulfillment, error) {
	var out []model.RecipeFulfillment
	if err := c.do(ctx, http.MethodGet, "/recipes/fulfillment", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConsumeRecipe books out all in-stock ingredients of a recipe.
func (c *Client) ConsumeRecipe(ctx context.Context, recipeID int64) error {
	return c.do(ctx, http.MethodPost, recipePath(recipeID, "consume"), nil, nil, nil)
}

type excludedProducts struct {
	ExcludedProductIDs []int64 `json:"excludedProductIds"`
}

// AddNotFulfilledProductsToShoppingList puts missing ingredients on the
// shopping list, skipping excluded product ids.
func (c *Client) AddNotFulfilledProductsToShoppingList(ctx context.Context, recipeID int64, excluded []int64) error {
	if excluded == nil {
		excluded = []int64{}
	}
	body := excludedProducts{ExcludedProductIDs: excluded}
	return c.do(ctx, http.MethodPost, recipePath(recipeID, "add-not-fulfilled-products-to-shoppinglist"), nil, body, nil)
}

// CopyRecipe duplicates a recipe on the server and returns the new id.
func (c *Client) CopyRecipe(ctx context.Context, recipeID int64) (int64, error) {
	var resp createdResponse
	if err := c.do(ctx, http.MethodPost, recipePath(recipeID, "copy"), nil, nil, &resp); err != nil {
		return 0, err
	}
	return int64(resp.CreatedObjectID), nil
}

func objectPath(entity Entity, id int64) string {
	return "/objects/" + string(entity) + "/" + strconv.FormatInt(id, 10)
}

func recipePath(id int64, action string) string {
	return "/recipes/" + strconv.FormatInt(id, 10) + "/" + action
}

type errorResponse struct {
	ErrorMessage string `json:"error_message"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, dest any) error {
	reqURL := *c.baseURL
	reqURL.Path = strings.TrimRight(c.baseURL.Path, "/") + path
	if query != nil {
		reqURL.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set(apiKeyHeader, c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, path)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, path string) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Path: path}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var er errorResponse
	if json.Unmarshal(data, &er) == nil && er.ErrorMessage != "" {
		apiErr.Message = er.ErrorMessage
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}

func parseBaseURL(server string) (*url.URL, error) {
	trimmed := strings.TrimSpace(server)
	if trimmed == "" {
		return nil, fmt.Errorf("server url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", server, err)
	}
	path := strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(path, "/api") {
		path += "/api"
	}
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

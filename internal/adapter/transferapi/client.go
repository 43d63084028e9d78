package transferapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/simaogato/transferflow/internal/domain"
)

const (
	// DefaultTimeout bounds a single request; transfer operations can be slow server-side
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
	dateLayout       = "2006-01-02"
)

// Client implements domain.TransferAPI, domain.AccountProvider and domain.ReferenceProvider over HTTP.
// It is stateless apart from its configuration and safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
}

var (
	_ domain.TransferAPI       = (*Client)(nil)
	_ domain.AccountProvider   = (*Client)(nil)
	_ domain.ReferenceProvider = (*Client)(nil)
)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken sets the fallback bearer credential used when the request context carries none
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout overrides DefaultTimeout on the default HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a transfer API client rooted at baseURL (for example http://localhost:8000/api/v1)
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer API base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid transfer API base URL %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Create submits a transfer.
// Exactly one request is sent: without an idempotency key a retry could move money twice.
func (c *Client) Create(ctx context.Context, intent domain.TransferIntent) (*domain.Transfer, error) {
	body, err := c.do(ctx, http.MethodPost, nil, newTransferRequest(intent), "transfers")
	if err != nil {
		return nil, err
	}
	return decodeTransfer(body)
}

// List retrieves one page of transfer history
func (c *Client) List(ctx context.Context, filter domain.TransferFilter) (*domain.TransferPage, error) {
	query, err := filterQuery(filter)
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, http.MethodGet, query, nil, "transfers")
	if err != nil {
		return nil, err
	}

	dtos, pagination, err := decodeData[[]transferDTO](body)
	if err != nil {
		return nil, malformed(err)
	}

	page := &domain.TransferPage{
		Transfers:  make([]domain.Transfer, 0, len(dtos)),
		Pagination: pagination.toDomain(),
	}
	for _, dto := range dtos {
		transfer, err := dto.toDomain()
		if err != nil {
			return nil, malformed(err)
		}
		page.Transfers = append(page.Transfers, *transfer)
	}
	return page, nil
}

// Get retrieves one transfer
func (c *Client) Get(ctx context.Context, id int64) (*domain.Transfer, error) {
	body, err := c.do(ctx, http.MethodGet, nil, nil, "transfers", strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	return decodeTransfer(body)
}

// GetStatus reads only the status of a transfer
func (c *Client) GetStatus(ctx context.Context, id int64) (domain.TransferStatus, error) {
	body, err := c.do(ctx, http.MethodGet, nil, nil, "transfers", strconv.FormatInt(id, 10), "status")
	if err != nil {
		return "", err
	}
	status, err := decodeStatus(body)
	if err != nil {
		return "", malformed(err)
	}
	return status, nil
}

// Validate asks the server to check an intent without committing it.
// The result is advisory and never replaces local validation.
func (c *Client) Validate(ctx context.Context, intent domain.TransferIntent) (*domain.ValidationResult, error) {
	body, err := c.do(ctx, http.MethodPost, nil, newTransferRequest(intent), "transfers", "validate")
	if err != nil {
		return nil, err
	}

	dto, _, err := decodeData[validationDTO](body)
	if err != nil {
		return nil, malformed(err)
	}
	result, err := dto.toDomain()
	if err != nil {
		return nil, malformed(err)
	}
	return result, nil
}

// Cancel requests cancellation of a pending transfer
func (c *Client) Cancel(ctx context.Context, id int64) (bool, error) {
	body, err := c.do(ctx, http.MethodDelete, nil, nil, "transfers", strconv.FormatInt(id, 10))
	if err != nil {
		return false, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true, nil
	}

	var dto cancelDTO
	if err := json.Unmarshal(body, &dto); err != nil || dto.Success == nil {
		// Any 2xx without an explicit verdict counts as accepted
		return true, nil
	}
	return *dto.Success, nil
}

// Banks lists the institutions reachable by external transfers
func (c *Client) Banks(ctx context.Context) ([]domain.VirtualBank, error) {
	body, err := c.do(ctx, http.MethodGet, nil, nil, "transfers", "banks")
	if err != nil {
		return nil, err
	}

	dtos, _, err := decodeData[[]bankDTO](body)
	if err != nil {
		return nil, malformed(err)
	}
	banks := make([]domain.VirtualBank, 0, len(dtos))
	for _, dto := range dtos {
		banks = append(banks, dto.toDomain())
	}
	return banks, nil
}

// Limits retrieves the remaining transfer allowance of an account
func (c *Client) Limits(ctx context.Context, accountID int64) (*domain.TransferLimits, error) {
	body, err := c.do(ctx, http.MethodGet, nil, nil, "accounts", strconv.FormatInt(accountID, 10), "transfer-limits")
	if err != nil {
		return nil, err
	}

	dto, _, err := decodeData[limitsDTO](body)
	if err != nil {
		return nil, malformed(err)
	}
	return &domain.TransferLimits{
		DailyLimit:           dto.DailyLimit,
		PerTransactionLimit:  dto.PerTransactionLimit,
		DailyUsed:            dto.DailyUsed,
		RemainingDaily:       dto.RemainingDaily,
		RemainingTransaction: dto.RemainingTransaction,
	}, nil
}

// Account retrieves the snapshot of an account used for local validation
func (c *Client) Account(ctx context.Context, id int64) (*domain.AccountSnapshot, error) {
	body, err := c.do(ctx, http.MethodGet, nil, nil, "accounts", strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}

	var detail accountDetailDTO
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, malformed(err)
	}
	if detail.Account == nil || detail.Account.ID == 0 {
		return nil, malformed(fmt.Errorf("account payload missing"))
	}

	return &domain.AccountSnapshot{
		ID:                  detail.Account.ID,
		AccountNumber:       detail.Account.AccountNumber,
		AccountName:         detail.Account.AccountName,
		Balance:             detail.Account.Balance,
		PerTransactionLimit: detail.Account.PerTransactionLimit,
	}, nil
}

// do sends one request and returns the body of a 2xx response.
// Every failure is returned as a *domain.TransferError.
func (c *Client) do(ctx context.Context, method string, query url.Values, payload any, path ...string) ([]byte, error) {
	endpoint := c.baseURL.JoinPath(path...)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, domain.NewUnknownError(0, "failed to encode request", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reqBody)
	if err != nil {
		return nil, domain.NewUnknownError(0, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.credential(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.NewNetworkError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) credential(ctx context.Context) (string, bool) {
	if token, ok := BearerTokenFromContext(ctx); ok {
		return token, true
	}
	return c.token, c.token != ""
}

func decodeTransfer(body []byte) (*domain.Transfer, error) {
	dto, _, err := decodeData[transferDTO](body)
	if err != nil {
		return nil, malformed(err)
	}
	transfer, err := dto.toDomain()
	if err != nil {
		return nil, malformed(err)
	}
	return transfer, nil
}

// decodeError turns a non-2xx body into API_ERROR when it carries the error envelope,
// UNKNOWN_ERROR otherwise. A JSON body without the envelope is kept as Details.
func decodeError(statusCode int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return unexpectedStatus(statusCode, nil)
	}
	if (env.Message == nil && env.Error == nil) || (env.Success != nil && *env.Success) {
		return unexpectedStatus(statusCode, body)
	}

	var code, message string
	if env.Error != nil {
		code = *env.Error
	}
	if env.Message != nil {
		message = *env.Message
	}
	if message == "" {
		message = code
	}
	return domain.NewAPIError(statusCode, code, message, env.Details)
}

func unexpectedStatus(statusCode int, body []byte) error {
	te := domain.NewUnknownError(statusCode, fmt.Sprintf("unexpected response status %d", statusCode), nil)
	if len(body) > 0 {
		te.Details = json.RawMessage(bytes.Clone(body))
	}
	return te
}

func malformed(err error) error {
	return domain.NewUnknownError(0, "malformed response from transfer API", err)
}

func filterQuery(filter domain.TransferFilter) (url.Values, error) {
	limit := filter.Limit
	if limit == 0 {
		limit = domain.DefaultPageSize
	}
	if limit < 1 || limit > domain.MaxPageSize {
		return nil, &domain.TransferError{
			Kind:       domain.KindValidation,
			Message:    fmt.Sprintf("limit must be between 1 and %d", domain.MaxPageSize),
			Violations: []domain.Violation{{Field: "limit", Message: "limit out of range"}},
		}
	}
	if filter.Offset < 0 {
		return nil, &domain.TransferError{
			Kind:       domain.KindValidation,
			Message:    "offset must be non-negative",
			Violations: []domain.Violation{{Field: "offset", Message: "offset must be non-negative"}},
		}
	}

	query := url.Values{}
	if filter.AccountID != nil {
		query.Set("account_id", strconv.FormatInt(*filter.AccountID, 10))
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.TransferType != "" {
		query.Set("transfer_type", string(filter.TransferType))
	}
	if filter.StartDate != nil {
		query.Set("start_date", filter.StartDate.Format(dateLayout))
	}
	if filter.EndDate != nil {
		query.Set("end_date", filter.EndDate.Format(dateLayout))
	}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(filter.Offset))
	return query, nil
}

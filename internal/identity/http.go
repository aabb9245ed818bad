package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient talks JSON to the identity service over HTTP. All calls carry
// the request context so callers control deadlines and cancellation.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient overrides the underlying *http.Client (tests, custom transports).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.httpc = c
		}
	}
}

// WithTimeout sets the per-request timeout on the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		if d > 0 {
			h.httpc.Timeout = d
		}
	}
}

// NewHTTPClient constructs a client rooted at baseURL. The apiKey is sent
// as a bearer credential on anonymous endpoints.
func NewHTTPClient(baseURL, apiKey string, opts ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

var _ Service = (*HTTPClient)(nil)

type refreshResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"` // epoch millis
}

func (h *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var resp refreshResponse
	err := h.post(ctx, "/auth/refresh", map[string]string{"refreshToken": refreshToken}, &resp)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		UserID:       resp.UserID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.UnixMilli(resp.ExpiresAt),
	}, nil
}

func (h *HTTPClient) SyncSession(ctx context.Context, accessToken, refreshToken string) error {
	return h.post(ctx, "/auth/session", map[string]string{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	}, nil)
}

func (h *HTTPClient) Logout(ctx context.Context, refreshToken string) error {
	return h.post(ctx, "/auth/logout", map[string]string{"refreshToken": refreshToken}, nil)
}

func (h *HTTPClient) ValidateRegistration(ctx context.Context, req *ValidationRequest) (*ValidationResult, error) {
	var resp ValidationResult
	if err := h.post(ctx, "/validateRegistration", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *HTTPClient) Register(ctx context.Context, req *RegisterRequest) (*RegisterResult, error) {
	var resp RegisterResult
	if err := h.post(ctx, "/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *HTTPClient) SendVerificationCode(ctx context.Context, email, name string) error {
	return h.post(ctx, "/verification/send", map[string]string{
		"email": email,
		"name":  name,
	}, nil)
}

func (h *HTTPClient) SendVerificationLink(ctx context.Context, email string) error {
	return h.post(ctx, "/verification/send-link", map[string]string{"email": email}, nil)
}

func (h *HTTPClient) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := h.post(ctx, "/verification/verify", map[string]string{
		"email": email,
		"code":  code,
	}, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (h *HTTPClient) MarkVerified(ctx context.Context, email string) error {
	return h.post(ctx, "/profile/verified", map[string]string{"email": email}, nil)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (h *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Code
		switch {
		case body.Message != "":
			apiErr.Message = body.Message
		case body.Error != "":
			apiErr.Message = body.Error
		}
	}
	return apiErr
}

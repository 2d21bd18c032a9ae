package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"regexp"
	"time"
)

// DefaultRESTTimeout bounds every direct REST call to a vendor API.
const DefaultRESTTimeout = 30 * time.Second

// allowedAPIHosts is the fixed allow-list for direct REST calls: exactly
// the known production and sandbox hosts, nothing derived from input.
var allowedAPIHosts = map[string]bool{
	"api.stripe.com":       true,
	"api.polar.sh":         true,
	"sandbox-api.polar.sh": true,
	"api.lemonsqueezy.com": true,
	"pay.solidgate.com":    true,
}

// idPattern is the only shape of externally-supplied id that may be
// interpolated into a URL path.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateID rejects any externally-supplied identifier that could alter
// the URL path it is interpolated into.
func ValidateID(id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Value: id, Reason: "empty"}
	}
	if !idPattern.MatchString(id) {
		return &ValidationError{Field: "id", Value: id, Reason: "contains characters outside [A-Za-z0-9_-]"}
	}
	return nil
}

// ValidateAPIURL enforces the SSRF policy for REST targets: HTTPS only,
// host on the allow-list, and never an IP literal (which also covers
// localhost and private ranges).
func ValidateAPIURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Value: raw, Reason: "unparseable"}
	}
	if u.Scheme != "https" {
		return &ValidationError{Field: "url", Value: raw, Reason: "scheme must be https"}
	}

	host := u.Hostname()
	if host == "" {
		return &ValidationError{Field: "url", Value: raw, Reason: "missing host"}
	}
	if host == "localhost" {
		return &ValidationError{Field: "url", Value: raw, Reason: "localhost is not a vendor API host"}
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return &ValidationError{Field: "url", Value: raw, Reason: "IP literals are not allowed"}
	}
	if !allowedAPIHosts[host] {
		return &ValidationError{Field: "url", Value: raw, Reason: "host is not on the vendor allow-list"}
	}

	return nil
}

// restClient issues direct calls to a vendor REST API for the operations
// where the SDK omits required fields or its response shape breaks the
// mapper. Every call is bounded by the configured timeout and classified
// into the error taxonomy.
type restClient struct {
	provider string
	baseURL  string
	apiKey   string
	http     *http.Client
	headers  map[string]string
}

func newRESTClient(provider, baseURL, apiKey string, timeout time.Duration) (*restClient, error) {
	err := ValidateAPIURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultRESTTimeout
	}

	return &restClient{
		provider: provider,
		baseURL:  baseURL,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

func (c *restClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *restClient) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *restClient) patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

func (c *restClient) delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *restClient) do(ctx context.Context, method, path string, body, out any) error {
	target := c.baseURL + path
	err := ValidateAPIURL(target)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", c.provider, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", c.provider, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return &TransientError{Provider: c.provider, Timeout: true, Err: err}
		}
		return &TransientError{Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Provider: c.provider, Err: err}
	}

	err = classifyStatus(c.provider, resp.StatusCode, payload)
	if err != nil {
		return err
	}

	if out != nil && len(payload) > 0 {
		err = json.Unmarshal(payload, out)
		if err != nil {
			return fmt.Errorf("failed to decode %s response: %w", c.provider, err)
		}
	}

	return nil
}

func isClientTimeout(err error) bool {
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}

// classifyStatus maps HTTP status codes onto the error taxonomy: the named
// 4xx codes are fatal, everything else outside 2xx is recoverable.
func classifyStatus(provider string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	switch status {
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusTooManyRequests:
		code, message := decodeVendorError(body)
		return &ProviderAPIError{Provider: provider, StatusCode: status, Code: code, Message: message}
	default:
		return &TransientError{
			Provider: provider,
			Err:      fmt.Errorf("unexpected status %d", status),
		}
	}
}

// decodeVendorError pulls a code and message out of the common vendor
// error body shapes; falls back to the raw body.
func decodeVendorError(body []byte) (code, message string) {
	var envelope struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Errors []struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		} `json:"errors"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}

	err := json.Unmarshal(body, &envelope)
	if err == nil {
		switch {
		case envelope.Error != nil:
			return envelope.Error.Code, envelope.Error.Message
		case len(envelope.Errors) > 0:
			return envelope.Errors[0].Title, envelope.Errors[0].Detail
		case envelope.Detail != "":
			return "", envelope.Detail
		case envelope.Message != "":
			return "", envelope.Message
		}
	}

	const maxBody = 256
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return "", string(body)
}

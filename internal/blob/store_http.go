package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/openmined/vaultsync/internal/version"
)

const (
	v1ObjectList = "/api/v1/objects"
	v1Object     = "/api/v1/object"
)

// APIError is the error body returned by the object API
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

type ListObjectsResponse struct {
	Keys []string `json:"keys"`
}

// HTTPStore talks to an object API over plain HTTP.
//
//	GET    /api/v1/objects?prefix=   -> {"keys": [...]}
//	GET    /api/v1/object?key=       -> raw bytes, 404 when missing
//	PUT    /api/v1/object?key=       <- raw bytes + Content-Type
//	DELETE /api/v1/object?key=
type HTTPStore struct {
	client *req.Client
}

func NewHTTPStore(cfg *HTTPConfig) (*HTTPStore, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("http store: url is required")
	}

	client := req.C().
		SetBaseURL(cfg.URL).
		SetTimeout(30*time.Second).
		SetCommonRetryCount(3).
		SetCommonRetryBackoffInterval(1*time.Second, 5*time.Second).
		SetUserAgent(version.AppName+"/"+version.Version).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal).
		SetCommonErrorResult(&APIError{})

	if cfg.Token != "" {
		client.SetCommonBearerAuthToken(cfg.Token)
	}

	return &HTTPStore{client: client}, nil
}

func (h *HTTPStore) List(ctx context.Context, prefix string) ([]string, error) {
	var apiResp ListObjectsResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParam("prefix", prefix).
		SetSuccessResult(&apiResp).
		Get(v1ObjectList)

	if err := handleAPIError(resp, err, "object list"); err != nil {
		return nil, err
	}

	return apiResp.Keys, nil
}

func (h *HTTPStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParam("key", key).
		Get(v1Object)

	if resp != nil && resp.GetStatusCode() == http.StatusNotFound {
		return nil, false, nil
	}

	if err := handleAPIError(resp, err, "object get"); err != nil {
		return nil, false, err
	}

	content, err := resp.ToBytes()
	if err != nil {
		return nil, false, fmt.Errorf("object get %q: %w", key, err)
	}
	return content, true, nil
}

func (h *HTTPStore) Put(ctx context.Context, key string, content []byte, contentType string) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParam("key", key).
		SetContentType(contentType).
		SetBodyBytes(content).
		Put(v1Object)

	return handleAPIError(resp, err, "object put")
}

func (h *HTTPStore) Delete(ctx context.Context, key string) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParam("key", key).
		Delete(v1Object)

	if resp != nil && resp.GetStatusCode() == http.StatusNotFound {
		return nil
	}

	return handleAPIError(resp, err, "object delete")
}

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		if err, ok := resp.ErrorResult().(*APIError); ok && err.Code != "" {
			return fmt.Errorf("%s %w", operation, err)
		}

		return fmt.Errorf("api error: %s status=%d", operation, resp.GetStatusCode())
	}

	return nil
}

var _ ObjectStore = (*HTTPStore)(nil)

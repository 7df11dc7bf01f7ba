package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-bankid-auth/loginapi"
	"github.com/pkg/errors"
)

const maxResponseBytes = 1 << 20

// HTTPRequester posts JSON bodies to the login backend
type HTTPRequester struct {
	baseURL string
	client  *http.Client
}

var _ Requester = (*HTTPRequester)(nil)

// NewHTTPRequester creates a requester for the backend at baseURL (e.g. "http://localhost:8080").
// A nil client gets a 30 second timeout.
func NewHTTPRequester(baseURL string, client *http.Client) *HTTPRequester {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRequester{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

func (r *HTTPRequester) Do(ctx context.Context, endpoint loginapi.Endpoint, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrapf(err, "[HTTPRequester Do] marshal %s", endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+string(endpoint), bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrapf(err, "[HTTPRequester Do] build %s", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "[HTTPRequester Do] %s", endpoint)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "[HTTPRequester Do] read %s", endpoint)
	}

	return &Response{
		StatusCode:  res.StatusCode,
		ContentType: res.Header.Get("Content-Type"),
		HintCode:    res.Header.Get(loginapi.HeaderHintCode),
		Body:        data,
	}, nil
}

// Package bankid talks to the BankID relying party API and renders its animated QR codes.
package bankid

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const apiPath = "/rp/v6.0"

// Collect statuses reported by the relying party
const (
	StatusPending  = "pending"
	StatusFailed   = "failed"
	StatusComplete = "complete"
)

// RelyingParty is the subset of the BankID API the login backend uses.
type RelyingParty interface {
	Auth(ctx context.Context, req AuthRequest) (AuthResponse, error)
	Collect(ctx context.Context, orderRef string) (CollectResponse, error)
	Cancel(ctx context.Context, orderRef string) error
}

type Requirement struct {
	CardReader          string   `json:"cardReader,omitempty"`
	CertificatePolicies []string `json:"certificatePolicies,omitempty"`
	PinCode             bool     `json:"pinCode,omitempty"`
	PersonalNumber      string   `json:"personalNumber,omitempty"`
}

type AuthRequest struct {
	EndUserIP   string       `json:"endUserIp"`
	Requirement *Requirement `json:"requirement,omitempty"`
}

type AuthResponse struct {
	OrderRef       string `json:"orderRef"`
	AutoStartToken string `json:"autoStartToken"`
	QRStartToken   string `json:"qrStartToken"`
	QRStartSecret  string `json:"qrStartSecret"`
}

type orderRequest struct {
	OrderRef string `json:"orderRef"`
}

type User struct {
	PersonalNumber string `json:"personalNumber"`
	Name           string `json:"name"`
	GivenName      string `json:"givenName"`
	Surname        string `json:"surname"`
}

type Device struct {
	IPAddress string `json:"ipAddress"`
}

type CompletionData struct {
	User            User   `json:"user"`
	Device          Device `json:"device"`
	BankIDIssueDate string `json:"bankIdIssueDate,omitempty"`
	Signature       string `json:"signature"`
	OCSPResponse    string `json:"ocspResponse"`
}

type CollectResponse struct {
	OrderRef       string          `json:"orderRef"`
	Status         string          `json:"status"`
	HintCode       string          `json:"hintCode,omitempty"`
	CompletionData *CompletionData `json:"completionData,omitempty"`
}

// Error is a non-200 answer from the relying party API.
type Error struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"errorCode"`
	Details    string `json:"details"`
}

func (e *Error) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("bankid: status %d", e.StatusCode)
	}
	return fmt.Sprintf("bankid: status %d: %s: %s", e.StatusCode, e.ErrorCode, e.Details)
}

// Client calls the relying party API over mutual TLS.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ RelyingParty = (*Client)(nil)

type Config struct {
	// BaseURL is the API root without the version path.
	// Example: https://appapi2.test.bankid.com
	BaseURL string
	TLS     *tls.Config
	Timeout time.Duration
}

// New creates a Client. A nil TLS config falls back to the default transport.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("[bankid New] base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS != nil {
		transport.TLSClientConfig = cfg.TLS
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/") + apiPath,
		http:    &http.Client{Transport: transport, Timeout: timeout},
	}, nil
}

func (c *Client) Auth(ctx context.Context, req AuthRequest) (AuthResponse, error) {
	var res AuthResponse
	if req.EndUserIP == "" {
		return res, errors.New("[bankid Auth] endUserIp is required")
	}
	if err := c.post(ctx, "/auth", req, &res); err != nil {
		return res, errors.Wrap(err, "[bankid Auth]")
	}
	return res, nil
}

func (c *Client) Collect(ctx context.Context, orderRef string) (CollectResponse, error) {
	var res CollectResponse
	if err := c.post(ctx, "/collect", orderRequest{OrderRef: orderRef}, &res); err != nil {
		return res, errors.Wrap(err, "[bankid Collect]")
	}
	return res, nil
}

func (c *Client) Cancel(ctx context.Context, orderRef string) error {
	if err := c.post(ctx, "/cancel", orderRequest{OrderRef: orderRef}, nil); err != nil {
		return errors.Wrap(err, "[bankid Cancel]")
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}

	if res.StatusCode != http.StatusOK {
		apiErr := &Error{StatusCode: res.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Details = string(data)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

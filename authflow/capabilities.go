package authflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-bankid-auth/loginapi"
	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Response is what a Requester hands back for one call.
type Response struct {
	StatusCode  int
	ContentType string
	HintCode    string
	Body        []byte
}

// Requester issues one request to the login backend. Any status code is a valid
// response. An error means no response was received.
type Requester interface {
	Do(ctx context.Context, endpoint loginapi.Endpoint, body any) (*Response, error)
}

// IPResolver answers "what is my public network address".
type IPResolver interface {
	PublicIP(ctx context.Context) (string, error)
}

// Launcher hands a URI to the operating system. Nothing is returned or awaited.
type Launcher interface {
	Launch(uri string)
}

// Code is a displayable QR code resource.
type Code struct {
	ID  string
	URI string
}

// CodeStore turns QR image bytes into a displayable resource and releases it again.
type CodeStore interface {
	Create(png []byte) (Code, error)
	Release(code Code)
}

// DefaultIPLookupURL is a public service answering {"ip": "..."}
const DefaultIPLookupURL = "https://api.ipify.org?format=json"

// HTTPIPResolver resolves the public address with a single GET. No retry, no cache.
type HTTPIPResolver struct {
	URL    string
	Client *http.Client
}

var _ IPResolver = HTTPIPResolver{}

func (r HTTPIPResolver) PublicIP(ctx context.Context) (string, error) {
	lookupURL := r.URL
	if lookupURL == "" {
		lookupURL = DefaultIPLookupURL
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "[PublicIP] build request")
	}
	res, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "[PublicIP] request")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("[PublicIP] unexpected status %d", res.StatusCode)
	}

	var body loginapi.IPResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "[PublicIP] decode")
	}
	if body.IP == "" {
		return "", errors.New("[PublicIP] empty ip")
	}
	return body.IP, nil
}

// StaticIP is an IPResolver that always answers with itself
type StaticIP string

func (s StaticIP) PublicIP(context.Context) (string, error) {
	if s == "" {
		return "", errors.New("[StaticIP] no address configured")
	}
	return string(s), nil
}

// AppLaunchURI builds the custom scheme URI that opens the identification app.
func AppLaunchURI(scheme, autoStartToken string) string {
	return fmt.Sprintf("%s:///?autostarttoken=%s&redirect=null", scheme, url.QueryEscape(autoStartToken))
}

// BrowserLauncher opens URIs with the desktop's default handler
type BrowserLauncher struct{}

var _ Launcher = BrowserLauncher{}

func (BrowserLauncher) Launch(uri string) {
	go func() {
		if err := browser.OpenURL(uri); err != nil {
			log.Warn().Err(err).Msg("Failed to launch identification app")
		}
	}()
}

// LaunchFunc adapts a function to the Launcher interface
type LaunchFunc func(uri string)

func (f LaunchFunc) Launch(uri string) {
	f(uri)
}

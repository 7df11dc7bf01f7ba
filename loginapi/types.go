// Package loginapi holds the wire types shared by the login backend and the login client.
package loginapi

import "time"

// Endpoint is a path on the login backend.
type Endpoint string

const (
	// EndpointStart initiates an order at the relying party API.
	// Request: StartRequest. Response: 200 StartResponse.
	EndpointStart Endpoint = "/bankid/start"

	// EndpointCollect reports the status of an order.
	// Request: OrderRequest. Response: 202 pending, 200 Completion, 204 timed out or cancelled, 401 rejected.
	EndpointCollect Endpoint = "/bankid/collect"

	// EndpointQRCode returns the current animated QR code for an order.
	// Request: OrderRequest. Response: 202 image/png, 200 completed, 204 timed out or cancelled, 401 rejected.
	EndpointQRCode Endpoint = "/bankid/qrcode"

	// EndpointCancel cancels an order.
	// Request: OrderRequest. Response: 200 cancelled (also when already cancelled),
	// 409 when the order already settled another way, 404 unknown.
	EndpointCancel Endpoint = "/bankid/cancel"

	// EndpointIP echoes the caller's address.
	// Response: 200 IPResponse.
	EndpointIP Endpoint = "/api/ip"

	// EndpointMe describes the bearer of a Completion token.
	// Header: Authorization: Bearer <token>. Response: 200 Me, 401 missing or invalid token.
	EndpointMe Endpoint = "/api/me"
)

// HeaderHintCode carries the relying party hint code (e.g. "outstandingTransaction",
// "expiredTransaction", "userCancel") on collect and qrcode responses.
const HeaderHintCode = "X-Hint-Code"

// StartRequest is the body of EndpointStart.
type StartRequest struct {
	// EndUserIP is the public address of the device the user authenticates from.
	// Example: "194.168.2.25"
	// Usage: Forwarded to the relying party API as endUserIp
	EndUserIP string `json:"endUserIp"`
}

// StartResponse is returned by EndpointStart.
type StartResponse struct {
	// OrderRef identifies the order in every later call.
	// Example: "131daac9-16c6-4618-beb0-365768f37288"
	OrderRef string `json:"orderRef"`

	// AutoStartToken launches the identification app on the same device.
	// Usage: bankid:///?autostarttoken=<token>&redirect=null
	AutoStartToken string `json:"autoStartToken"`
}

// OrderRequest is the body of EndpointCollect, EndpointQRCode and EndpointCancel.
type OrderRequest struct {
	OrderRef string `json:"orderRef"`
}

// Completion is returned by EndpointCollect once the user has identified.
type Completion struct {
	OrderRef string `json:"orderRef"`

	// PersonalNumber is normalised to 12 digits.
	// Example: "199001011234"
	PersonalNumber string `json:"personalNumber"`
	Name           string `json:"name"`
	GivenName      string `json:"givenName"`
	Surname        string `json:"surname"`

	// Token is a signed JWT carrying the identity above.
	// Usage: Include in Authorization header: "Bearer <token>"
	// Lifespan: TOKEN_EXPIRY (30 minutes by default)
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IPResponse is returned by EndpointIP and by public "what is my IP" services.
type IPResponse struct {
	IP string `json:"ip"`
}

// Me is returned by EndpointMe.
type Me struct {
	OrderRef       string    `json:"orderRef"`
	PersonalNumber string    `json:"personalNumber"`
	Name           string    `json:"name"`
	GivenName      string    `json:"givenName"`
	Surname        string    `json:"surname"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// ErrorResponse is the JSON body of a non-2xx backend response.
type ErrorResponse struct {
	Message string `json:"message"`
}

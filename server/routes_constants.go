package server

import "github.com/jrsteele09/go-bankid-auth/loginapi"

// Route path constants
// The BankID routes are shared with the login client through loginapi
const (
	RouteBankIDStart   = string(loginapi.EndpointStart)
	RouteBankIDCollect = string(loginapi.EndpointCollect)
	RouteBankIDQRCode  = string(loginapi.EndpointQRCode)
	RouteBankIDCancel  = string(loginapi.EndpointCancel)

	// API Routes
	RouteAPIIP   = string(loginapi.EndpointIP)
	RouteAPIMe   = string(loginapi.EndpointMe)
	RouteHealthz = "/healthz"
)

package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	// BANKID
	s.RegisterRouteHandler("POST "+RouteBankIDStart, ChainMiddleware(s.StartHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteBankIDQRCode, ChainMiddleware(s.QRCodeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteBankIDCollect, ChainMiddleware(s.CollectHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteBankIDCancel, ChainMiddleware(s.CancelHandler(), s.APIMiddleware()...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPIIP, ChainMiddleware(s.IPHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())

	// CORS preflight for every route above
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(notFound, s.APIMiddleware()...))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}

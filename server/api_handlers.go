package server

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/jrsteele09/go-bankid-auth/internal/config"
	"github.com/jrsteele09/go-bankid-auth/loginapi"
)

// IPHandler echoes the caller's address
func (s *Server) IPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, loginapi.IPResponse{IP: clientIP(r, s.trustedProxies)}, http.StatusOK)
	}
}

// MeHandler describes the identity behind the request's bearer token
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		identity := claims.Identity()
		me := loginapi.Me{
			OrderRef:       claims.OrderRef,
			PersonalNumber: identity.PersonalNumber,
			Name:           identity.Name,
			GivenName:      identity.GivenName,
			Surname:        identity.Surname,
		}
		if claims.ExpiresAt != nil {
			me.ExpiresAt = claims.ExpiresAt.Time
		}
		writeJSON(w, me, http.StatusOK)
	}
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

// clientIP returns the peer address. X-Forwarded-For is only believed when the peer is a
// trusted proxy; hops are then read right to left up to the first untrusted address.
func clientIP(r *http.Request, trusted config.TrustedProxies) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !trusted.Contains(peer) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	client := host
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = hop.Unmap().String()
		if !trusted.Contains(hop) {
			break
		}
	}
	return client
}

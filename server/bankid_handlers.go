package server

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/jrsteele09/go-bankid-auth/bankid"
	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
	"github.com/jrsteele09/go-bankid-auth/loginapi"
	"github.com/jrsteele09/go-bankid-auth/orders"
	"github.com/rs/zerolog/log"
)

// StartHandler starts an order at the relying party and begins collecting it
func (s *Server) StartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginapi.StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if net.ParseIP(req.EndUserIP) == nil {
			writeJSONError(w, "endUserIp must be an IP address", http.StatusBadRequest)
			return
		}

		started, err := s.rp.Auth(r.Context(), bankid.AuthRequest{EndUserIP: req.EndUserIP})
		if err != nil {
			log.Err(err).Str("end_user_ip", req.EndUserIP).Msg("Relying party auth failed")
			writeJSONError(w, "failed to start order", http.StatusBadGateway)
			return
		}

		order := orders.Order{
			OrderRef:       started.OrderRef,
			AutoStartToken: started.AutoStartToken,
			QRStartToken:   started.QRStartToken,
			QRStartSecret:  started.QRStartSecret,
			EndUserIP:      req.EndUserIP,
			StartedAt:      s.nowFunc(),
			State:          orders.StatePending,
		}
		if err := s.orders.Create(r.Context(), order); err != nil {
			log.Err(err).Str("order_ref", order.OrderRef).Msg("Failed to store order")
			writeJSONError(w, "failed to store order", http.StatusInternalServerError)
			return
		}
		s.collector.Start(order.OrderRef)

		log.Info().Str("order_ref", order.OrderRef).Msg("Order started")
		writeJSON(w, loginapi.StartResponse{OrderRef: order.OrderRef, AutoStartToken: order.AutoStartToken}, http.StatusOK)
	}
}

// QRCodeHandler renders the current animated QR code, or the order's final status
func (s *Server) QRCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, ok := s.loadOrder(w, r)
		if !ok {
			return
		}
		if s.writeTerminal(w, order, nil) {
			return
		}

		data := bankid.QRData(order.QRStartToken, order.QRStartSecret, s.nowFunc().Sub(order.StartedAt))
		png, err := bankid.RenderQR(data, bankid.DefaultQRSize)
		if err != nil {
			log.Err(err).Str("order_ref", order.OrderRef).Msg("Failed to render QR code")
			writeJSONError(w, "failed to render QR code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypePNG)
		w.Header().Set("Cache-Control", "no-store")
		if order.HintCode != "" {
			w.Header().Set(headerHintCode, order.HintCode)
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write(png)
	}
}

// CollectHandler reports the order status and hands out the identity once completed
func (s *Server) CollectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, ok := s.loadOrder(w, r)
		if !ok {
			return
		}
		completion := func() {
			identity := orders.Identity{}
			if order.Identity != nil {
				identity = *order.Identity
			}
			writeJSON(w, loginapi.Completion{
				OrderRef:       order.OrderRef,
				PersonalNumber: identity.PersonalNumber,
				Name:           identity.Name,
				GivenName:      identity.GivenName,
				Surname:        identity.Surname,
				Token:          order.Token,
				ExpiresAt:      order.TokenExpiresAt,
			}, http.StatusOK)
		}
		if s.writeTerminal(w, order, completion) {
			return
		}
		writeStatus(w, order.HintCode, http.StatusAccepted)
	}
}

// CancelHandler cancels an order here and, best effort, at the relying party
func (s *Server) CancelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, ok := s.loadOrder(w, r)
		if !ok {
			return
		}

		prior := order.State
		_, err := s.orders.Update(r.Context(), order.OrderRef, func(o *orders.Order) error {
			prior = o.State
			if err := o.Transition(orders.StateCancelled); err != nil {
				return err
			}
			o.HintCode = bankid.HintCancelled
			return nil
		})
		switch {
		case err == nil:
			if err := s.rp.Cancel(r.Context(), order.OrderRef); err != nil {
				log.Warn().Err(err).Str("order_ref", order.OrderRef).Msg("Relying party cancel failed")
			}
			log.Info().Str("order_ref", order.OrderRef).Msg("Order cancelled")
		case apperrors.Is(err, apperrors.ErrInvalidTransition) && prior == orders.StateCancelled:
			log.Debug().Str("order_ref", order.OrderRef).Msg("Order already cancelled")
		case apperrors.Is(err, apperrors.ErrInvalidTransition):
			log.Debug().Str("order_ref", order.OrderRef).Str("state", prior.String()).Msg("Cancel of a settled order refused")
			writeJSONError(w, "order already "+prior.String(), http.StatusConflict)
			return
		case apperrors.Is(err, apperrors.ErrOrderNotFound):
			writeJSONError(w, "order not found", http.StatusNotFound)
			return
		default:
			log.Err(err).Str("order_ref", order.OrderRef).Msg("Failed to cancel order")
			writeJSONError(w, "failed to cancel order", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// loadOrder decodes an OrderRequest and loads the order, writing the error response itself
func (s *Server) loadOrder(w http.ResponseWriter, r *http.Request) (orders.Order, bool) {
	var req loginapi.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderRef == "" {
		writeJSONError(w, "orderRef is required", http.StatusBadRequest)
		return orders.Order{}, false
	}

	order, err := s.orders.Get(r.Context(), req.OrderRef)
	if apperrors.Is(err, apperrors.ErrOrderNotFound) {
		writeJSONError(w, "order not found", http.StatusNotFound)
		return orders.Order{}, false
	}
	if err != nil {
		log.Err(err).Str("order_ref", req.OrderRef).Msg("Failed to load order")
		writeJSONError(w, "failed to load order", http.StatusInternalServerError)
		return orders.Order{}, false
	}
	return order, true
}

// writeTerminal answers for a settled order. completed writes the 200 body; nil writes none.
func (s *Server) writeTerminal(w http.ResponseWriter, order orders.Order, completed func()) bool {
	switch order.State {
	case orders.StateCompleted:
		if completed != nil {
			completed()
		} else {
			w.WriteHeader(http.StatusOK)
		}
	case orders.StateCancelled, orders.StateTimedOut:
		writeStatus(w, order.HintCode, http.StatusNoContent)
	case orders.StateUnauthorized:
		writeStatus(w, order.HintCode, http.StatusUnauthorized)
	case orders.StateFailed:
		writeJSONError(w, "order failed", http.StatusInternalServerError)
	default:
		return false
	}
	return true
}

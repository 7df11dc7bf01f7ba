// Package fakerp is an in-process BankID relying party for tests and local development.
package fakerp

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-bankid-auth/bankid"
)

// Script decides how an order plays out. Collect answers pending PendingCollects times,
// then Status with HintCode.
type Script struct {
	PendingCollects int
	PendingHint     string
	Status          string
	HintCode        string
	User            bankid.User
}

// DefaultScript completes after two pending collects.
var DefaultScript = Script{
	PendingCollects: 2,
	PendingHint:     bankid.HintOutstandingTransaction,
	Status:          bankid.StatusComplete,
	User: bankid.User{
		PersonalNumber: "199001011234",
		Name:           "Anna Andersson",
		GivenName:      "Anna",
		Surname:        "Andersson",
	},
}

type order struct {
	script   Script
	endUser  string
	collects int
}

// RelyingParty answers Auth, Collect and Cancel from memory.
type RelyingParty struct {
	mu       sync.Mutex
	fallback Script
	queue    []Script
	orders   map[string]*order
	authErr  error
	cancels  []string
}

var _ bankid.RelyingParty = (*RelyingParty)(nil)

func New(fallback Script) *RelyingParty {
	return &RelyingParty{
		fallback: fallback,
		orders:   make(map[string]*order),
	}
}

// Enqueue sets the script of the next order started. Orders beyond the queue use the fallback.
func (f *RelyingParty) Enqueue(scripts ...Script) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, scripts...)
}

// FailAuth makes every following Auth return err. Pass nil to recover.
func (f *RelyingParty) FailAuth(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authErr = err
}

func (f *RelyingParty) Auth(_ context.Context, req bankid.AuthRequest) (bankid.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.authErr != nil {
		return bankid.AuthResponse{}, f.authErr
	}
	if req.EndUserIP == "" {
		return bankid.AuthResponse{}, &bankid.Error{StatusCode: http.StatusBadRequest, ErrorCode: "invalidParameters", Details: "endUserIp"}
	}

	script := f.fallback
	if len(f.queue) > 0 {
		script = f.queue[0]
		f.queue = f.queue[1:]
	}

	ref := uuid.NewString()
	f.orders[ref] = &order{script: script, endUser: req.EndUserIP}
	return bankid.AuthResponse{
		OrderRef:       ref,
		AutoStartToken: uuid.NewString(),
		QRStartToken:   uuid.NewString(),
		QRStartSecret:  uuid.NewString(),
	}, nil
}

func (f *RelyingParty) Collect(_ context.Context, orderRef string) (bankid.CollectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderRef]
	if !ok {
		return bankid.CollectResponse{}, notFound()
	}

	o.collects++
	res := bankid.CollectResponse{OrderRef: orderRef}
	if o.collects <= o.script.PendingCollects {
		res.Status = bankid.StatusPending
		res.HintCode = o.script.PendingHint
		return res, nil
	}

	res.Status = o.script.Status
	res.HintCode = o.script.HintCode
	if res.Status == bankid.StatusComplete {
		res.CompletionData = &bankid.CompletionData{
			User:   o.script.User,
			Device: bankid.Device{IPAddress: o.endUser},
		}
	}
	return res, nil
}

// Cancel forgets the order. Later collects answer notFound like the real API.
func (f *RelyingParty) Cancel(_ context.Context, orderRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.orders[orderRef]; !ok {
		return notFound()
	}
	delete(f.orders, orderRef)
	f.cancels = append(f.cancels, orderRef)
	return nil
}

// Cancelled lists the order refs cancelled so far.
func (f *RelyingParty) Cancelled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancels...)
}

// Collects returns how many collect calls an order has seen.
func (f *RelyingParty) Collects(orderRef string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderRef]; ok {
		return o.collects
	}
	return 0
}

func notFound() error {
	return &bankid.Error{StatusCode: http.StatusBadRequest, ErrorCode: "notFound", Details: "No such order"}
}

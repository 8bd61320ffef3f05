package smtptest

import (
	"crypto/tls"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/emersion/go-smtp"
)

// Delivery is one message as the server received it: the envelope
// sender and recipient list from the SMTP conversation plus the raw
// message body, with a timestamp so tests can filter by send time.
// The recipient list is the envelope's, so it includes bcc addresses
// and any duplicates the client sent.
type Delivery struct {
	Created time.Time
	From    string
	Rcpts   []string
	Body    string
}

// Backend implements smtp.Backend. It's a thin authentication wrapper
// for an InMemoryEmailStore.
type Backend struct {
	*InMemoryEmailStore
}

// Login implements smtp.Backend. Any username/password is fine, since
// we don't want to couple this with specific test configurations.
func (be *Backend) Login(_ *smtp.ConnectionState, username string, password string) (smtp.Session, error) {
	if username != "" && password != "" {
		return be.InMemoryEmailStore, nil
	}
	return nil, errors.New("no username or password provided")
}

// AnonymousLogin implements smtp.Backend. Not supported since we want
// to enforce AUTH.
func (be *Backend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	return nil, smtp.ErrAuthUnsupported
}

// InMemoryEmailStore retains received deliveries in memory for
// comparison against a test's expected output. Implements smtp.Session.
// Designed to be goroutine safe since we don't know how many goroutines
// will be hitting the server at once.
type InMemoryEmailStore struct {
	mu         *sync.Mutex
	rejects    map[string]struct{}
	pending    Delivery
	deliveries []Delivery
}

// Reset implements smtp.Session. Drops the envelope under construction.
func (es *InMemoryEmailStore) Reset() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.pending = Delivery{}
}

// Logout implements smtp.Session. No-op here.
func (es *InMemoryEmailStore) Logout() error { return nil }

// Mail implements smtp.Session. Begins a new envelope.
func (es *InMemoryEmailStore) Mail(from string, _ smtp.MailOptions) error {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.pending = Delivery{From: from}
	return nil
}

// Rcpt implements smtp.Session. Records the recipient, or refuses it
// with a 550 if a test marked the address as rejected.
func (es *InMemoryEmailStore) Rcpt(to string) error {
	es.mu.Lock()
	defer es.mu.Unlock()
	if _, ok := es.rejects[to]; ok {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "mailbox unavailable",
		}
	}
	es.pending.Rcpts = append(es.pending.Rcpts, to)
	return nil
}

// Data implements smtp.Session. Stores the completed delivery in memory
// for retrieval at the end of the test.
func (es *InMemoryEmailStore) Data(r io.Reader) error {
	// doubtful we'll get an email this big, but we need a limit
	var maxEmailSize int64 = 100 * units.MiB
	buf, err := io.ReadAll(io.LimitReader(r, maxEmailSize))
	if err != nil {
		return err
	}

	str := &strings.Builder{}
	if _, err := str.Write(buf); err != nil {
		return err
	}

	es.mu.Lock()
	defer es.mu.Unlock()
	d := es.pending
	d.Created = time.Now()
	d.Body = str.String()
	es.deliveries = append(es.deliveries, d)
	es.pending = Delivery{}
	return nil
}

// RejectRecipient makes the server refuse RCPT commands for the given
// bare address with a permanent error, so tests can exercise
// transport-level delivery failure.
func (es *InMemoryEmailStore) RejectRecipient(addr string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.rejects[addr] = struct{}{}
}

// Deliveries returns copies of all deliveries received after epoch
// nanoseconds t.
func (es *InMemoryEmailStore) Deliveries(t int64) []Delivery {
	es.mu.Lock()
	defer es.mu.Unlock()
	r := make([]Delivery, 0, len(es.deliveries))
	for _, d := range es.deliveries {
		if d.Created.UnixNano() >= t {
			r = append(r, d)
		}
	}
	return r
}

// RetrieveEmails returns the bodies of all messages received after
// epoch nanoseconds t.
func (es *InMemoryEmailStore) RetrieveEmails(t int64) []string {
	ds := es.Deliveries(t)
	r := make([]string, len(ds))
	for i, d := range ds {
		r[i] = d.Body
	}
	return r
}

// InProcessServer is an SMTP server that runs in the same process as
// the test suite, letting us inspect sent messages and their envelopes.
// You must initialize this via NewInProcessServer.
type InProcessServer struct {
	*smtp.Server
	// We're also using this as an smtp.Session, i.e., the backend of
	// the *smtp.Server. This is kind of gross, but allows us to access
	// the *InMemoryEmailStore. Otherwise, we're stuck with
	// *smtp.Server.Backend, which just leaves us with the Backend
	// interface methods.
	*InMemoryEmailStore
}

// NewInProcessServer creates an InProcessServer, including configuring
// its SMTP server to store incoming messages in memory. Must provide
// the paths to the key and cert used for TLS. The cert must be a root
// cert.
func NewInProcessServer(keypath string, certpath string) *InProcessServer {
	is := &InMemoryEmailStore{
		mu:      &sync.Mutex{},
		rejects: map[string]struct{}{},
	}

	srv := smtp.NewServer(&Backend{
		is,
	})

	srv.Addr = ":2526" // arbitrary
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = false // need AUTH here
	srv.AuthDisabled = false      // need AUTH here
	// Strict is undocumented, but it looks like it enforces <address>
	// syntax in messages:
	// https://github.com/emersion/go-smtp/blob/f92bf7f1a25777bcdaa28a142b1cd1a54b74c8f4/conn.go#L321-L325
	srv.Strict = true

	cert, err := tls.LoadX509KeyPair(certpath, keypath)

	// No way to carry on without a cert, so we panic. We're in a test
	// suite, so this should be fine.
	if err != nil {
		panic(err)
	}

	srv.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
	}

	return &InProcessServer{
		srv,
		is,
	}
}

// Start starts the test server. Blocking.
func (is *InProcessServer) Start() error {
	// Not using ListenAndServeTLS--the client should upgrade the
	// connection to TLS
	return is.Server.ListenAndServe()
}

// Close shuts down the test server daemon. You must initialize a new
// InProcessServer instead of restarting this one.
func (is *InProcessServer) Close() {
	is.Server.Close()
}

// Address returns the host:port of the test SMTP server.
func (is *InProcessServer) Address() string {
	return is.Server.Domain + is.Server.Addr
}

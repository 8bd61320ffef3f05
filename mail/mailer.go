package mail

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	gomail "gopkg.in/gomail.v2"
)

const smtpScheme string = "smtp://"

// The port used when the relay address doesn't name one.
const defaultSMTPPort int = 25

// Mailer delivers Mail messages over a single SMTP relay. Its
// configuration, including any default sender and default recipient
// lists, is fixed at construction, so one Mailer can be shared by any
// number of goroutines calling Send. Each Send makes exactly one
// delivery attempt; there is no retry at any layer.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	// The relay's cert won't verify when it's self signed, e.g. in the
	// test suite.
	skipCertVerification bool

	from Address
	tos  []Address
	ccs  []Address
	bccs []Address
}

// NewMailer returns a Mailer that dispatches over the given relay
// address, e.g. "smtp://mail.example.com:587" or "mail.example.com".
// The scheme is optional; the port defaults to 25. Returns an error
// wrapping ErrInvalidConfig if the address is blank or unusable.
func NewMailer(relayAddress string) (*Mailer, error) {
	return NewBuilder(relayAddress).Build()
}

// Builder accumulates optional Mailer configuration before freezing it
// into an immutable Mailer. Initialize via NewBuilder.
type Builder struct {
	relayAddress         string
	username             string
	password             string
	skipCertVerification bool
	from                 Address
	tos                  []Address
	ccs                  []Address
	bccs                 []Address
}

// NewBuilder returns a Builder for a Mailer bound to the given relay
// address. The address is validated at Build time.
func NewBuilder(relayAddress string) *Builder {
	return &Builder{relayAddress: relayAddress}
}

// From sets a default sender used for any Mail that doesn't specify its
// own. A Mail's own 'from' always wins over this value.
func (b *Builder) From(raw string) error {
	a, err := ParseAddress(raw)
	if err != nil {
		return err
	}
	b.from = a
	return nil
}

// FromAddress is From for an already parsed Address.
func (b *Builder) FromAddress(a Address) error {
	if a.IsZero() {
		return fmt.Errorf("from: %w", ErrNoAddress)
	}
	b.from = a
	return nil
}

// AddTo adds a 'to' address included on every message the resulting
// Mailer sends.
func (b *Builder) AddTo(raw string) error {
	a, err := ParseAddress(raw)
	if err != nil {
		return err
	}
	b.tos = append(b.tos, a)
	return nil
}

// AddToAddress is AddTo for an already parsed Address.
func (b *Builder) AddToAddress(a Address) error {
	if a.IsZero() {
		return fmt.Errorf("to: %w", ErrNoAddress)
	}
	b.tos = append(b.tos, a)
	return nil
}

// AddCc adds a 'cc' address included on every message the resulting
// Mailer sends.
func (b *Builder) AddCc(raw string) error {
	a, err := ParseAddress(raw)
	if err != nil {
		return err
	}
	b.ccs = append(b.ccs, a)
	return nil
}

// AddCcAddress is AddCc for an already parsed Address.
func (b *Builder) AddCcAddress(a Address) error {
	if a.IsZero() {
		return fmt.Errorf("cc: %w", ErrNoAddress)
	}
	b.ccs = append(b.ccs, a)
	return nil
}

// AddBcc adds a 'bcc' address included on every message the resulting
// Mailer sends.
func (b *Builder) AddBcc(raw string) error {
	a, err := ParseAddress(raw)
	if err != nil {
		return err
	}
	b.bccs = append(b.bccs, a)
	return nil
}

// AddBccAddress is AddBcc for an already parsed Address.
func (b *Builder) AddBccAddress(a Address) error {
	if a.IsZero() {
		return fmt.Errorf("bcc: %w", ErrNoAddress)
	}
	b.bccs = append(b.bccs, a)
	return nil
}

// Auth sets the credentials used for SMTP AUTH. Without credentials the
// Mailer connects unauthenticated, which is only sensible for local
// relays.
func (b *Builder) Auth(username, password string) *Builder {
	b.username = username
	b.password = password
	return b
}

// SkipCertVerification disables TLS certificate verification against
// the relay, e.g. for a relay with a self-signed cert.
func (b *Builder) SkipCertVerification(skip bool) *Builder {
	b.skipCertVerification = skip
	return b
}

// Build validates the relay address and freezes the accumulated
// configuration into a Mailer.
func (b *Builder) Build() (*Mailer, error) {
	host, port, err := parseRelayAddress(b.relayAddress)
	if err != nil {
		return nil, err
	}
	m := &Mailer{
		host:                 host,
		port:                 port,
		username:             b.username,
		password:             b.password,
		skipCertVerification: b.skipCertVerification,
		from:                 b.from,
		tos:                  append([]Address(nil), b.tos...),
		ccs:                  append([]Address(nil), b.ccs...),
		bccs:                 append([]Address(nil), b.bccs...),
	}
	return m, nil
}

// parseRelayAddress extracts a host and port from a user-provided relay
// address. The smtp:// scheme is optional since it's self evident, but
// any other scheme is rejected.
func parseRelayAddress(ra string) (string, int, error) {
	if strings.TrimSpace(ra) == "" {
		return "", 0, fmt.Errorf("%w: relay address can not be blank", ErrInvalidConfig)
	}
	if !strings.HasPrefix(ra, smtpScheme) {
		if strings.Contains(ra, "://") {
			return "", 0, fmt.Errorf(
				"%w: unsupported scheme in relay address %q",
				ErrInvalidConfig,
				ra,
			)
		}
		ra = smtpScheme + ra
	}

	u, err := url.Parse(ra)
	if err != nil {
		return "", 0, fmt.Errorf(
			"%w: can't parse relay address %q: %v",
			ErrInvalidConfig,
			ra,
			err,
		)
	}
	if u.Hostname() == "" {
		return "", 0, fmt.Errorf(
			"%w: relay address %q has no host",
			ErrInvalidConfig,
			ra,
		)
	}

	port := defaultSMTPPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf(
				"%w: relay address %q has a non-numeric port",
				ErrInvalidConfig,
				ra,
			)
		}
	}
	return u.Hostname(), port, nil
}

// Send validates m, merges the Mailer's defaults into it, and makes one
// delivery attempt over the relay.
//
// Misuse is an error: a nil Mail, a Mail with no 'to' address or no
// body, or a missing 'from' on both sides aborts before any network
// contact. A transport-level refusal is an expected operational
// condition rather than a programming error, so it is logged and
// reported as (false, nil). Success is (true, nil).
//
// The only required fields besides the sender are at least one 'to'
// address and one body variant. The Mailer's default recipient lists
// never substitute for the Mail's own 'to': recipient completeness is
// always the caller's responsibility.
func (mr *Mailer) Send(m *Mail) (bool, error) {
	if m == nil {
		return false, ErrNoMail
	}
	from, err := mr.determineFrom(m)
	if err != nil {
		return false, err
	}
	if len(m.tos) == 0 {
		return false, fmt.Errorf(
			"%w: at least one 'to' address is required",
			ErrIncompleteMail,
		)
	}
	if !m.hasBody() {
		return false, fmt.Errorf(
			"%w: a text or html body is required",
			ErrIncompleteMail,
		)
	}

	env := &envelope{
		from:    from,
		tos:     concatAddresses(mr.tos, m.tos),
		ccs:     concatAddresses(mr.ccs, m.ccs),
		bccs:    concatAddresses(mr.bccs, m.bccs),
		subject: m.subject,
		text:    m.text,
		html:    m.html,
	}

	d := mr.dialer()
	s, err := d.Dial()
	if err != nil {
		log.Error().
			Err(err).
			Str("host", mr.host).
			Int("port", mr.port).
			Msg("can't reach the SMTP relay")
		return false, nil
	}
	defer s.Close()

	if err := s.Send(from.Addr(), env.recipients(), env); err != nil {
		log.Error().
			Err(err).
			Str("host", mr.host).
			Str("from", from.Addr()).
			Msg("the SMTP relay did not accept the message")
		return false, nil
	}

	log.Trace().
		Str("host", mr.host).
		Str("from", from.Addr()).
		Int("recipients", len(env.recipients())).
		Msg("message accepted by the SMTP relay")
	return true, nil
}

// determineFrom resolves the sender-address precedence rule: the Mail's
// own 'from' wins over the Mailer default, and using it despite a
// configured default may surprise the caller, so that case is logged
// rather than silent.
func (mr *Mailer) determineFrom(m *Mail) (Address, error) {
	if !m.from.IsZero() {
		if !mr.from.IsZero() {
			log.Info().
				Str("mailFrom", m.from.Addr()).
				Str("mailerFrom", mr.from.Addr()).
				Msg("both the mail and the mailer have a 'from' address - using the mail's")
		}
		return m.from, nil
	}
	if !mr.from.IsZero() {
		return mr.from, nil
	}
	return Address{}, ErrNoFrom
}

// dialer returns a fresh gomail Dialer for one delivery attempt. Each
// Mailer owns its relay configuration outright, so two Mailers bound to
// different relays never interfere.
func (mr *Mailer) dialer() *gomail.Dialer {
	d := &gomail.Dialer{
		Host:     mr.host,
		Port:     mr.port,
		Username: mr.username,
		Password: mr.password,
	}
	if mr.skipCertVerification {
		d.TLSConfig = &tls.Config{
			ServerName:         mr.host,
			InsecureSkipVerify: true,
		}
	}
	return d
}

// concatAddresses unions a Mailer-level default list with a Mail-level
// list. Both sets are simply present in the result: there is no
// de-duplication, so an address appearing in both receives the message
// twice.
func concatAddresses(defaults, own []Address) []Address {
	out := make([]Address, 0, len(defaults)+len(own))
	out = append(out, defaults...)
	out = append(out, own...)
	return out
}

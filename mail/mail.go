package mail

import "fmt"

// Mail accumulates the fields of a single outgoing email message. It is
// meant to be filled in by one goroutine and treated as read-only once
// handed to Mailer.Send. Construction never checks for completeness;
// that happens at dispatch time, where the Mailer's own defaults can
// supply a missing 'from' address.
type Mail struct {
	from    Address
	tos     []Address
	ccs     []Address
	bccs    []Address
	subject string
	text    string
	html    string
}

// New returns an empty Mail.
func New() *Mail {
	return &Mail{}
}

// From sets the sender address from a raw string. The Mail is left
// unchanged if the string doesn't parse.
func (m *Mail) From(raw string) error {
	a, err := ParseAddress(raw)
	if err != nil {
		return err
	}
	m.from = a
	return nil
}

// FromAddress sets the sender from an already parsed Address.
func (m *Mail) FromAddress(a Address) error {
	if a.IsZero() {
		return fmt.Errorf("from: %w", ErrNoAddress)
	}
	m.from = a
	return nil
}

// To adds a primary recipient from a raw string. The Mail is left
// unchanged if the string doesn't parse.
func (m *Mail) To(raw string) error {
	a, err := ParseAddress(raw)
	if err != nil {
		return err
	}
	m.tos = append(m.tos, a)
	return nil
}

// ToAddress adds a primary recipient from an already parsed Address.
func (m *Mail) ToAddress(a Address) error {
	if a.IsZero() {
		return fmt.Errorf("to: %w", ErrNoAddress)
	}
	m.tos = append(m.tos, a)
	return nil
}

// AddCc adds a cc recipient from a raw string.
func (m *Mail) AddCc(raw string) error {
	a, err := ParseAddress(raw)
	if err != nil {
		return err
	}
	m.ccs = append(m.ccs, a)
	return nil
}

// AddCcAddress adds a cc recipient from an already parsed Address.
func (m *Mail) AddCcAddress(a Address) error {
	if a.IsZero() {
		return fmt.Errorf("cc: %w", ErrNoAddress)
	}
	m.ccs = append(m.ccs, a)
	return nil
}

// AddBcc adds a bcc recipient from a raw string.
func (m *Mail) AddBcc(raw string) error {
	a, err := ParseAddress(raw)
	if err != nil {
		return err
	}
	m.bccs = append(m.bccs, a)
	return nil
}

// AddBccAddress adds a bcc recipient from an already parsed Address.
func (m *Mail) AddBccAddress(a Address) error {
	if a.IsZero() {
		return fmt.Errorf("bcc: %w", ErrNoAddress)
	}
	m.bccs = append(m.bccs, a)
	return nil
}

// Subject sets the subject line. No restrictions on content; an empty
// subject is simply omitted from the outgoing message.
func (m *Mail) Subject(s string) *Mail {
	m.subject = s
	return m
}

// Text sets the plain-text body.
func (m *Mail) Text(s string) *Mail {
	m.text = s
	return m
}

// HTML sets the HTML body.
func (m *Mail) HTML(s string) *Mail {
	m.html = s
	return m
}

// complete reports whether m carries the minimum required information
// for dispatch: a sender, at least one 'to' address, and at least one
// body variant.
func (m *Mail) complete() bool {
	return !m.from.IsZero() && len(m.tos) > 0 && (m.text != "" || m.html != "")
}

// hasBody reports whether at least one body variant is set.
func (m *Mail) hasBody() bool {
	return m.text != "" || m.html != ""
}

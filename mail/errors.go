package mail

import "errors"

var (
	// ErrInvalidAddress means a raw address string could not be parsed
	// as an email address.
	ErrInvalidAddress = errors.New("not a valid email address")

	// ErrNoAddress means an Address-typed argument was required but not
	// set.
	ErrNoAddress = errors.New("address argument is not set")

	// ErrInvalidConfig means a Mailer was configured with an unusable
	// SMTP relay address.
	ErrInvalidConfig = errors.New("invalid mailer configuration")

	// ErrNoMail means Send was given a nil Mail.
	ErrNoMail = errors.New("mail argument is not set")

	// ErrIncompleteMail means a Mail is missing a 'to' address or a
	// body and can't be dispatched.
	ErrIncompleteMail = errors.New("mail is missing required fields")

	// ErrNoFrom means neither the Mail nor the Mailer carries a 'from'
	// address.
	ErrNoFrom = errors.New("no 'from' address on either the mail or the mailer")
)

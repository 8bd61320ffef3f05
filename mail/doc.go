package mail

// mail is responsible for assembling one-off email messages and handing
// them to an SMTP relay for delivery. A Mail accumulates the fields of a
// single message via chained setters; a Mailer holds the relay
// configuration, merges its own default addresses into each Mail it is
// given, and makes a single delivery attempt per Send call. Connection
// handling, TLS negotiation, and the SMTP conversation itself are
// delegated to gomail.

package mail

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// envelope is the fully assembled outgoing message: resolved sender,
// merged recipient lists, and the MIME document. It implements
// io.WriterTo so gomail can stream it during the DATA phase of the SMTP
// conversation.
//
// Bcc recipients appear only in the envelope recipient list, never as a
// message header.
type envelope struct {
	from    Address
	tos     []Address
	ccs     []Address
	bccs    []Address
	subject string
	text    string
	html    string
}

// recipients returns the bare addr-specs for the SMTP RCPT list: to,
// then cc, then bcc. Duplicates are preserved.
func (e *envelope) recipients() []string {
	r := make([]string, 0, len(e.tos)+len(e.ccs)+len(e.bccs))
	for _, a := range e.tos {
		r = append(r, a.Addr())
	}
	for _, a := range e.ccs {
		r = append(r, a.Addr())
	}
	for _, a := range e.bccs {
		r = append(r, a.Addr())
	}
	return r
}

// WriteTo writes the headers and MIME body of the message to w.
func (e *envelope) WriteTo(w io.Writer) (int64, error) {
	mw := &messageWriter{w: w}

	mw.writef("From: %s\r\n", e.from.String())
	mw.writef("To: %s\r\n", joinAddresses(e.tos))
	if len(e.ccs) > 0 {
		mw.writef("Cc: %s\r\n", joinAddresses(e.ccs))
	}
	if e.subject != "" {
		// Q-encoded so non-ASCII subjects survive the 7-bit header
		// section. The encoder leaves plain ASCII untouched.
		mw.writef("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", e.subject))
	}
	mw.writef("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	mw.writef("Message-ID: <%s@%s>\r\n", uuid.New().String(), e.from.domain())
	mw.writef("MIME-Version: 1.0\r\n")

	if mw.err == nil {
		mw.err = e.writeBody(mw)
	}
	return mw.n, mw.err
}

// writeBody writes the MIME document after the common headers. A single
// body variant becomes a single part. When both variants are present,
// the message is a multipart/mixed container holding exactly one
// multipart/alternative part with the text body first, then the html
// body, so receiving clients can pick a representation.
func (e *envelope) writeBody(mw *messageWriter) error {
	switch {
	case e.text != "" && e.html != "":
		return e.writeAlternative(mw)
	case e.html != "":
		mw.writef("Content-Type: text/html; charset=UTF-8\r\n")
		mw.writef("Content-Transfer-Encoding: 8bit\r\n\r\n")
		mw.writef("%s", e.html)
	default:
		mw.writef("Content-Type: text/plain; charset=UTF-8\r\n")
		mw.writef("Content-Transfer-Encoding: 8bit\r\n\r\n")
		mw.writef("%s", e.text)
	}
	return mw.err
}

func (e *envelope) writeAlternative(mw *messageWriter) error {
	mixed := multipart.NewWriter(mw)
	mw.writef(
		"Content-Type: multipart/mixed; boundary=%s\r\n\r\n",
		mixed.Boundary(),
	)
	if mw.err != nil {
		return mw.err
	}

	// The inner boundary must be known before the outer part's header
	// is written, so we generate it up front rather than letting
	// multipart.Writer pick one.
	altBoundary := strings.ReplaceAll(uuid.New().String(), "-", "")
	wrapper, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {
			fmt.Sprintf("multipart/alternative; boundary=%s", altBoundary),
		},
	})
	if err != nil {
		return err
	}

	alt := multipart.NewWriter(wrapper)
	if err := alt.SetBoundary(altBoundary); err != nil {
		return err
	}
	if err := writePart(alt, "text/plain; charset=UTF-8", e.text); err != nil {
		return err
	}
	if err := writePart(alt, "text/html; charset=UTF-8", e.html); err != nil {
		return err
	}
	if err := alt.Close(); err != nil {
		return err
	}
	return mixed.Close()
}

func writePart(w *multipart.Writer, contentType, body string) error {
	p, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(p, body)
	return err
}

// messageWriter tracks the byte count and first error across the many
// small writes of a message, so WriteTo can satisfy io.WriterTo without
// checking every call site.
type messageWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (mw *messageWriter) writef(format string, args ...interface{}) {
	if mw.err != nil {
		return
	}
	n, err := fmt.Fprintf(mw.w, format, args...)
	mw.n += int64(n)
	mw.err = err
}

// Write lets multipart.Writer stream part content through the same
// counting/error-latching path as the headers.
func (mw *messageWriter) Write(p []byte) (int, error) {
	if mw.err != nil {
		return 0, mw.err
	}
	n, err := mw.w.Write(p)
	mw.n += int64(n)
	mw.err = err
	return n, err
}

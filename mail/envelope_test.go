package mail

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	netmail "net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildEnvelope(t *testing.T, text, html string) *envelope {
	t.Helper()
	return &envelope{
		from:    MustParseAddress("sender@example.com"),
		tos:     []Address{MustParseAddress("to@example.com")},
		ccs:     []Address{MustParseAddress("cc@example.com")},
		bccs:    []Address{MustParseAddress("bcc@example.com")},
		subject: "Test subject",
		text:    text,
		html:    html,
	}
}

func TestEnvelopeRecipients(t *testing.T) {
	e := buildEnvelope(t, "hello", "")
	want := []string{"to@example.com", "cc@example.com", "bcc@example.com"}
	assert.Equal(t, want, e.recipients())
}

func TestEnvelopeHeaders(t *testing.T) {
	e := buildEnvelope(t, "hello", "")
	var buf bytes.Buffer
	n, err := e.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)

	msg, err := netmail.ReadMessage(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, "<sender@example.com>", msg.Header.Get("From"))
	assert.Equal(t, "<to@example.com>", msg.Header.Get("To"))
	assert.Equal(t, "<cc@example.com>", msg.Header.Get("Cc"))
	assert.Equal(t, "Test subject", msg.Header.Get("Subject"))
	assert.Equal(t, "1.0", msg.Header.Get("MIME-Version"))
	assert.NotEmpty(t, msg.Header.Get("Date"))
	assert.NotEmpty(t, msg.Header.Get("Message-ID"))
	assert.Contains(t, msg.Header.Get("Message-ID"), "@example.com")

	// bcc recipients ride only on the SMTP envelope
	assert.Empty(t, msg.Header.Get("Bcc"))
}

func TestEnvelopeSubjectOmittedWhenEmpty(t *testing.T) {
	e := buildEnvelope(t, "hello", "")
	e.subject = ""
	var buf bytes.Buffer
	_, err := e.WriteTo(&buf)
	require.NoError(t, err)

	msg, err := netmail.ReadMessage(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	_, ok := msg.Header["Subject"]
	assert.False(t, ok, "an empty subject should not produce a Subject header")
}

func TestEnvelopeSingleBody(t *testing.T) {
	testCases := []struct {
		description   string
		text          string
		html          string
		wantMediaType string
		wantBody      string
	}{
		{
			description:   "text only",
			text:          "hello",
			wantMediaType: "text/plain",
			wantBody:      "hello",
		},
		{
			description:   "html only",
			html:          "<b>hello</b>",
			wantMediaType: "text/html",
			wantBody:      "<b>hello</b>",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			e := buildEnvelope(t, tc.text, tc.html)
			var buf bytes.Buffer
			_, err := e.WriteTo(&buf)
			require.NoError(t, err)

			msg, err := netmail.ReadMessage(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)

			mt, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
			require.NoError(t, err)
			assert.Equal(t, tc.wantMediaType, mt)
			assert.Equal(t, "UTF-8", params["charset"])

			bod, err := io.ReadAll(msg.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.wantBody, string(bod))
		})
	}
}

// When both bodies are set, the message is one multipart/mixed container
// wrapping exactly one multipart/alternative part that holds the text
// body first and the html body second.
func TestEnvelopeBothBodies(t *testing.T) {
	e := buildEnvelope(t, "hello", "<b>hello</b>")
	var buf bytes.Buffer
	_, err := e.WriteTo(&buf)
	require.NoError(t, err)

	msg, err := netmail.ReadMessage(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	mt, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mt)
	require.NotEmpty(t, params["boundary"])

	outer := multipart.NewReader(msg.Body, params["boundary"])

	wrapper, err := outer.NextPart()
	require.NoError(t, err, "the mixed container should hold a part")

	wmt, wparams, err := mime.ParseMediaType(wrapper.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", wmt)
	require.NotEmpty(t, wparams["boundary"])

	inner := multipart.NewReader(wrapper, wparams["boundary"])

	textPart, err := inner.NextPart()
	require.NoError(t, err)
	tmt, _, err := mime.ParseMediaType(textPart.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", tmt, "the text part must come first")
	tbod, err := io.ReadAll(textPart)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(tbod))

	htmlPart, err := inner.NextPart()
	require.NoError(t, err)
	hmt, _, err := mime.ParseMediaType(htmlPart.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "text/html", hmt, "the html part must come second")
	hbod, err := io.ReadAll(htmlPart)
	require.NoError(t, err)
	assert.Equal(t, "<b>hello</b>", string(hbod))

	_, err = inner.NextPart()
	assert.Equal(t, io.EOF, err, "the alternative container holds exactly two parts")

	_, err = outer.NextPart()
	assert.Equal(t, io.EOF, err, "the mixed container holds exactly one part")
}

func TestEnvelopeNonASCIISubject(t *testing.T) {
	e := buildEnvelope(t, "hello", "")
	e.subject = "héllo wörld"
	var buf bytes.Buffer
	_, err := e.WriteTo(&buf)
	require.NoError(t, err)

	msg, err := netmail.ReadMessage(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	dec := new(mime.WordDecoder)
	subj, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "héllo wörld", subj)
}

package email

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailsync/pkg/types"
)

var sender = &types.Account{ID: 1, DisplayName: "Alice", EmailAddress: "alice@example.com"}

func TestComposeMessage(t *testing.T) {
	raw, err := composeMessage(sender, &types.ComposeDraft{
		To:         []string{"Bob <bob@example.com>"},
		Cc:         []string{"carol@example.com"},
		Bcc:        []string{"secret@example.com"},
		Subject:    "Re: Plans",
		BodyText:   "Sounds good",
		BodyHTML:   "<p>Sounds good</p>",
		InReplyTo:  "plans-1@example.com",
		References: []string{"plans-0@example.com", "plans-1@example.com"},
		Attachments: []types.ComposeAttachment{
			{Filename: "map.txt", ContentType: "text/plain", Content: []byte("left at the oak")},
		},
	})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret@example.com")

	r, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subj, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Re: Plans", subj)

	from, err := r.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "alice@example.com", from[0].Address)

	inReplyTo, err := r.Header.MsgIDList("In-Reply-To")
	require.NoError(t, err)
	assert.Equal(t, []string{"plans-1@example.com"}, inReplyTo)

	refs, err := r.Header.MsgIDList("References")
	require.NoError(t, err)
	assert.Equal(t, []string{"plans-0@example.com", "plans-1@example.com"}, refs)

	id, err := r.Header.MessageID()
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	var inline []string
	var attachments []string
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		body, err := io.ReadAll(p.Body)
		require.NoError(t, err)

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			inline = append(inline, string(body))
		case *mail.AttachmentHeader:
			name, err := h.Filename()
			require.NoError(t, err)
			attachments = append(attachments, name+"="+string(body))
		}
	}
	assert.Equal(t, []string{"Sounds good", "<p>Sounds good</p>"}, inline)
	assert.Equal(t, []string{"map.txt=left at the oak"}, attachments)
}

func TestComposeMessageValidates(t *testing.T) {
	_, err := composeMessage(sender, &types.ComposeDraft{Subject: "nobody"})
	assert.Error(t, err)

	_, err = composeMessage(sender, &types.ComposeDraft{To: []string{"not an address"}})
	assert.ErrorContains(t, err, "invalid address")
}

// smtpSink accepts a single plain SMTP session and records the envelope and data
type smtpSink struct {
	from  string
	rcpts []string
	data  string
	done  chan struct{}
}

func startSMTPSink(t *testing.T) (*smtpSink, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	sink := &smtpSink{done: make(chan struct{})}
	go func() {
		defer close(sink.done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		tp := textproto.NewConn(conn)
		tp.PrintfLine("220 localhost ready") //nolint:errcheck
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch verb {
			case "EHLO", "HELO":
				tp.PrintfLine("250 localhost") //nolint:errcheck
			case "MAIL":
				sink.from = line
				tp.PrintfLine("250 OK") //nolint:errcheck
			case "RCPT":
				sink.rcpts = append(sink.rcpts, line)
				tp.PrintfLine("250 OK") //nolint:errcheck
			case "DATA":
				tp.PrintfLine("354 go ahead") //nolint:errcheck
				data, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				sink.data = string(data)
				tp.PrintfLine("250 queued") //nolint:errcheck
			case "QUIT":
				tp.PrintfLine("221 bye") //nolint:errcheck
				return
			default:
				tp.PrintfLine("250 OK") //nolint:errcheck
			}
		}
	}()

	return sink, ln.Addr().(*net.TCPAddr).Port
}

func TestSMTPSenderDeliversEnvelope(t *testing.T) {
	sink, port := startSMTPSink(t)

	account := *sender
	account.SMTPHost = "127.0.0.1"
	account.SMTPPort = port

	logger, _ := test.NewNullLogger()
	err := NewSMTPSender(5*time.Second, logger).Send(context.Background(), &account, &types.ComposeDraft{
		To:       []string{"Bob <bob@example.com>"},
		Bcc:      []string{"secret@example.com"},
		Subject:  "Hello",
		BodyText: "Hi Bob",
	})
	require.NoError(t, err)
	<-sink.done

	assert.Equal(t, "MAIL FROM:<alice@example.com>", sink.from)
	assert.Equal(t, []string{"RCPT TO:<bob@example.com>", "RCPT TO:<secret@example.com>"}, sink.rcpts)
	assert.Contains(t, sink.data, "Subject: Hello")
	assert.Contains(t, sink.data, "Hi Bob")
	assert.NotContains(t, sink.data, "secret@example.com")
}

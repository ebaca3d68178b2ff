package email

import (
	"bufio"
	"bytes"
	"net/textproto"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	gotextproto "github.com/emersion/go-message/textproto"
)

// headerFromMap builds a mail header from already-split header fields
func headerFromMap(fields map[string][]string) mail.Header {
	canonical := make(map[string][]string, len(fields))
	for k, v := range fields {
		key := textproto.CanonicalMIMEHeaderKey(k)
		canonical[key] = append(canonical[key], v...)
	}
	return mail.Header{Header: message.Header{Header: gotextproto.HeaderFromMap(canonical)}}
}

// readHeader parses the header block of a raw RFC 822 message
func readHeader(raw []byte) (mail.Header, error) {
	h, err := gotextproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return mail.Header{}, err
	}
	return mail.Header{Header: message.Header{Header: h}}, nil
}

// addressList returns the formatted addresses of a header field, falling back to a
// comma split when the field does not parse
func addressList(h mail.Header, key string) []string {
	addrs, err := h.AddressList(key)
	if err != nil {
		return splitAddrs(h.Get(key))
	}

	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, formatAddress(a.Name, a.Address))
	}
	return out
}

func formatAddress(name, addr string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return addr
	}
	return name + " <" + addr + ">"
}

func splitAddrs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// subject decodes RFC 2047 words, keeping the raw value when decoding fails
func subject(h mail.Header) string {
	s, err := h.Subject()
	if err != nil {
		return h.Get("Subject")
	}
	return s
}

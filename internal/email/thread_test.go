package email

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveThreadID(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string][]string
		want   string
	}{
		{
			name: "provider thread header wins",
			fields: map[string][]string{
				"X-GM-THRID":  {"1789"},
				"In-Reply-To": {"<parent@example.com>"},
				"Message-Id":  {"<self@example.com>"},
			},
			want: "1789",
		},
		{
			name: "first in-reply-to",
			fields: map[string][]string{
				"In-Reply-To": {"<parent@example.com> <other@example.com>"},
				"References":  {"<root@example.com>"},
			},
			want: "parent@example.com",
		},
		{
			name: "first reference",
			fields: map[string][]string{
				"References": {"<root@example.com> <parent@example.com>"},
				"Message-Id": {"<self@example.com>"},
			},
			want: "root@example.com",
		},
		{
			name:   "own message id",
			fields: map[string][]string{"Message-Id": {"<self@example.com>"}},
			want:   "self@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveThreadID(headerFromMap(tt.fields)))
		})
	}
}

func TestDeriveThreadIDGeneratesWhenNoHeaders(t *testing.T) {
	id := deriveThreadID(headerFromMap(map[string][]string{"Subject": {"hi"}}))
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, deriveThreadID(headerFromMap(nil)))
}

func TestAddressList(t *testing.T) {
	h := headerFromMap(map[string][]string{
		"To": {`"Alice Liddell" <alice@example.com>, bob@example.com`},
		"Cc": {"not an address at all"},
	})

	assert.Equal(t, []string{"Alice Liddell <alice@example.com>", "bob@example.com"}, addressList(h, "To"))
	assert.Equal(t, []string{"not an address at all"}, addressList(h, "Cc"))
	assert.Empty(t, addressList(h, "Bcc"))
}

func TestHTMLToText(t *testing.T) {
	html := `<html><head><title>x</title><style>p{}</style></head>
		<body><h1>Hello</h1><p>First   line</p><script>alert(1)</script><div>Second<br>Third</div></body></html>`

	assert.Equal(t, "Hello\nFirst line\nSecond\nThird", htmlToText(html))
	assert.Empty(t, htmlToText("   "))
}

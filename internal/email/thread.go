package email

import (
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// providerThreadHeader carries a provider-native conversation id when present
const providerThreadHeader = "X-GM-THRID"

// deriveThreadID picks a conversation id from the header chain: provider thread header,
// first In-Reply-To, first References entry, own Message-Id, then a generated id.
func deriveThreadID(h mail.Header) string {
	if v := strings.TrimSpace(h.Get(providerThreadHeader)); v != "" {
		return v
	}

	for _, key := range []string{"In-Reply-To", "References"} {
		ids, err := h.MsgIDList(key)
		if err == nil && len(ids) > 0 && ids[0] != "" {
			return ids[0]
		}
	}

	if id, err := h.MessageID(); err == nil && id != "" {
		return id
	}

	return uuid.NewString()
}

package types

// ComposeDraft is an outbound message
type ComposeDraft struct {
	AccountID   int64               `json:"account_id"`
	To          []string            `json:"to"`
	Cc          []string            `json:"cc,omitempty"`
	Bcc         []string            `json:"bcc,omitempty"`
	Subject     string              `json:"subject"`
	BodyText    string              `json:"body_text,omitempty"`
	BodyHTML    string              `json:"body_html,omitempty"`
	InReplyTo   string              `json:"in_reply_to,omitempty"`
	References  []string            `json:"references,omitempty"`
	Attachments []ComposeAttachment `json:"attachments,omitempty"`
}

// ComposeAttachment is an attachment carried inline in a compose draft
type ComposeAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Recipients returns every envelope recipient of the draft
func (d *ComposeDraft) Recipients() []string {
	all := make([]string, 0, len(d.To)+len(d.Cc)+len(d.Bcc))
	all = append(all, d.To...)
	all = append(all, d.Cc...)
	all = append(all, d.Bcc...)
	return all
}

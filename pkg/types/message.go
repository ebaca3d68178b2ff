package types

import "time"

// Message represents a stored email message
type Message struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	FolderID       int64     `json:"folder_id"`
	UID            string    `json:"uid"`
	ThreadID       string    `json:"thread_id"`
	MessageID      string    `json:"message_id,omitempty"`
	Subject        string    `json:"subject"`
	Sender         string    `json:"sender"`
	Recipients     []string  `json:"recipients"`
	Cc             []string  `json:"cc,omitempty"`
	Bcc            []string  `json:"bcc,omitempty"`
	BodyText       string    `json:"body_text,omitempty"`
	BodyHTML       string    `json:"body_html,omitempty"`
	Date           time.Time `json:"date"`
	IsRead         bool      `json:"is_read"`
	IsFlagged      bool      `json:"is_flagged"`
	IsAnswered     bool      `json:"is_answered"`
	IsForwarded    bool      `json:"is_forwarded"`
	SizeBytes      int64     `json:"size_bytes"`
	HasAttachments bool      `json:"has_attachments"`
	CreatedAt      time.Time `json:"created_at"`
}

// Flags returns the message's flag state
func (m *Message) Flags() MessageFlags {
	return MessageFlags{
		IsRead:      m.IsRead,
		IsFlagged:   m.IsFlagged,
		IsAnswered:  m.IsAnswered,
		IsForwarded: m.IsForwarded,
	}
}

// MessageFlags is the mutable per-message state
type MessageFlags struct {
	IsRead      bool `json:"is_read"`
	IsFlagged   bool `json:"is_flagged"`
	IsAnswered  bool `json:"is_answered"`
	IsForwarded bool `json:"is_forwarded"`
}

// Merge returns the union of two flag sets: a flag set on either side stays set
func (f MessageFlags) Merge(other MessageFlags) MessageFlags {
	return MessageFlags{
		IsRead:      f.IsRead || other.IsRead,
		IsFlagged:   f.IsFlagged || other.IsFlagged,
		IsAnswered:  f.IsAnswered || other.IsAnswered,
		IsForwarded: f.IsForwarded || other.IsForwarded,
	}
}

// MessageDraft is the normalized input for storing a message
type MessageDraft struct {
	AccountID   int64
	FolderID    int64
	UID         string
	ThreadID    string
	MessageID   string
	Subject     string
	Sender      string
	Recipients  []string
	Cc          []string
	Bcc         []string
	BodyText    string
	BodyHTML    string
	Date        time.Time
	Flags       MessageFlags
	SizeBytes   int64
	Attachments []AttachmentDraft
}

// MessagePage is one page of a folder listing
type MessagePage struct {
	Items []*Message `json:"items"`
	Total int        `json:"total"`
}

// Attachment is metadata for a message's binary part
type Attachment struct {
	ID          int64   `json:"id"`
	MessageID   int64   `json:"message_id"`
	Filename    string  `json:"filename"`
	ContentType string  `json:"content_type"`
	Size        int64   `json:"size"`
	ContentID   string  `json:"content_id,omitempty"`
	StoragePath *string `json:"storage_path,omitempty"`
}

// AttachmentDraft is attachment metadata extracted by a fetcher
type AttachmentDraft struct {
	Filename    string
	ContentType string
	Size        int64
	ContentID   string
	StoragePath *string
}

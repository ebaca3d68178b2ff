package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/brandon/mailsync/pkg/types"
)

// Query is a parsed search expression.
//
// Structured tokens: subject:, from:, to:, is:read|unread|flagged|unflagged|answered,
// has:attachment, after:YYYY-MM-DD, before:YYYY-MM-DD. Values may be double-quoted.
// Anything else is a free-text term.
type Query struct {
	Subjects      []string
	From          []string
	To            []string
	Read          *bool
	Flagged       *bool
	Answered      *bool
	HasAttachment bool
	After         *time.Time
	Before        *time.Time
	Terms         []string

	// Text is the whole query with quotes removed, used when no structured token is present
	Text       string
	structured bool
}

const dateLayout = "2006-01-02"

// Structured reports whether any filter token was recognized
func (q *Query) Structured() bool {
	return q.structured
}

// ParseQuery parses a search expression
func ParseQuery(input string) (*Query, error) {
	q := &Query{}
	var text []string

	for _, tok := range tokenize(input) {
		text = append(text, tok.value())

		if tok.key == "" {
			q.Terms = append(q.Terms, tok.raw)
			continue
		}

		value := tok.raw
		switch tok.key {
		case "subject":
			q.Subjects = append(q.Subjects, value)
		case "from":
			q.From = append(q.From, value)
		case "to":
			q.To = append(q.To, value)
		case "is":
			switch strings.ToLower(value) {
			case "read":
				q.Read = boolPtr(true)
			case "unread":
				q.Read = boolPtr(false)
			case "flagged", "starred":
				q.Flagged = boolPtr(true)
			case "unflagged":
				q.Flagged = boolPtr(false)
			case "answered":
				q.Answered = boolPtr(true)
			default:
				return nil, fmt.Errorf("is:%s: %w", value, types.ErrInvalidQuery)
			}
		case "has":
			switch strings.ToLower(value) {
			case "attachment", "attachments":
				q.HasAttachment = true
			default:
				return nil, fmt.Errorf("has:%s: %w", value, types.ErrInvalidQuery)
			}
		case "after", "before":
			day, err := time.ParseInLocation(dateLayout, value, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("%s:%s: %w", tok.key, value, types.ErrInvalidQuery)
			}
			if tok.key == "after" {
				q.After = &day
			} else {
				q.Before = &day
			}
		}
		q.structured = true
	}

	q.Text = strings.TrimSpace(strings.Join(text, " "))
	return q, nil
}

// where compiles the query into conjoined predicates over "messages m"
func (q *Query) where() ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	like := func(column, value string) {
		conditions = append(conditions, column+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(value)+"%")
	}
	anyText := func(value string) {
		pattern := "%" + escapeLike(value) + "%"
		conditions = append(conditions, `(m.subject LIKE ? ESCAPE '\' OR m.sender LIKE ? ESCAPE '\'`+
			` OR m.body_text LIKE ? ESCAPE '\' OR m.recipients LIKE ? ESCAPE '\' OR m.cc LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}

	if !q.structured {
		if q.Text != "" {
			anyText(q.Text)
		}
		return conditions, args
	}

	for _, v := range q.Subjects {
		like("m.subject", v)
	}
	for _, v := range q.From {
		like("m.sender", v)
	}
	for _, v := range q.To {
		pattern := "%" + escapeLike(v) + "%"
		conditions = append(conditions, `(m.recipients LIKE ? ESCAPE '\' OR m.cc LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if q.Read != nil {
		conditions = append(conditions, "m.is_read = ?")
		args = append(args, *q.Read)
	}
	if q.Flagged != nil {
		conditions = append(conditions, "m.is_flagged = ?")
		args = append(args, *q.Flagged)
	}
	if q.Answered != nil {
		conditions = append(conditions, "m.is_answered = ?")
		args = append(args, *q.Answered)
	}
	if q.HasAttachment {
		conditions = append(conditions, "EXISTS(SELECT 1 FROM attachments a WHERE a.message_id = m.id)")
	}
	if q.After != nil {
		conditions = append(conditions, "m.date >= ?")
		args = append(args, toMillis(*q.After))
	}
	if q.Before != nil {
		conditions = append(conditions, "m.date < ?")
		args = append(args, toMillis(*q.Before))
	}
	for _, term := range q.Terms {
		anyText(term)
	}

	return conditions, args
}

type token struct {
	key string
	raw string
}

func (t token) value() string {
	if t.key == "" {
		return t.raw
	}
	return t.key + ":" + t.raw
}

var structuredKeys = map[string]bool{
	"subject": true,
	"from":    true,
	"to":      true,
	"is":      true,
	"has":     true,
	"after":   true,
	"before":  true,
}

// tokenize splits on whitespace outside double quotes and separates known key: prefixes
func tokenize(input string) []token {
	var (
		tokens  []token
		current strings.Builder
		quoted  bool
		started bool
	)

	flush := func() {
		if !started {
			return
		}
		tokens = append(tokens, splitKey(current.String()))
		current.Reset()
		started = false
	}

	for _, r := range input {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			current.WriteRune(r)
			started = true
		}
	}
	flush()

	out := tokens[:0]
	for _, t := range tokens {
		if t.key == "" && t.raw == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func splitKey(s string) token {
	idx := strings.Index(s, ":")
	if idx <= 0 {
		return token{raw: s}
	}
	key := strings.ToLower(s[:idx])
	if !structuredKeys[key] {
		return token{raw: s}
	}
	return token{key: key, raw: s[idx+1:]}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func boolPtr(b bool) *bool {
	return &b
}

// Package display provides terminal formatting for mailsync output.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/brandon/mailsync/internal/email"
	"github.com/brandon/mailsync/pkg/types"
)

var (
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	Accent   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
)

// Now is the clock used for relative times.
var Now = time.Now

// TimeAgo formats t relative to Now.
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := Now().Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// Truncate shortens s to maxLen runes, adding an ellipsis if needed.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// SuccessMsg writes a green checkmark and message.
func SuccessMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, Success.Render("✓")+" "+fmt.Sprintf(format, args...))
}

// ErrorMsg writes a red cross and message.
func ErrorMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, ErrStyle.Render("✗")+" "+fmt.Sprintf(format, args...))
}

// Header writes a section header.
func Header(w io.Writer, title string) {
	fmt.Fprintln(w, Bold.Render(title))
}

// Accounts lists linked accounts, one per line.
func Accounts(w io.Writer, accounts []*types.Account) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, Muted.Render("No accounts"))
		return
	}
	for _, a := range accounts {
		host := a.IMAPHost
		if a.Provider == types.ProviderREST {
			host = "gmail api"
		}
		fmt.Fprintf(w, "%s  %s %s  %s\n",
			Dim.Render(fmt.Sprintf("#%-3d", a.ID)),
			Bold.Render(a.DisplayName),
			Muted.Render("<"+a.EmailAddress+">"),
			Dim.Render(string(a.Provider)+" · "+host))
	}
}

// Folders lists folders with their unread and total counts.
func Folders(w io.Writer, folders []*types.Folder) {
	if len(folders) == 0 {
		fmt.Fprintln(w, Muted.Render("No folders"))
		return
	}
	for _, f := range folders {
		counts := fmt.Sprintf("%d/%d", f.UnreadCount, f.TotalCount)
		if f.UnreadCount > 0 {
			counts = Accent.Render(counts)
		} else {
			counts = Dim.Render(counts)
		}
		synced := Muted.Render("never synced")
		if f.LastSyncedAt != nil {
			synced = Muted.Render("synced " + TimeAgo(*f.LastSyncedAt))
		}
		fmt.Fprintf(w, "%s  %-24s %-8s %s  %s\n",
			Dim.Render(fmt.Sprintf("#%-3d", f.ID)),
			Truncate(f.Name, 24),
			string(f.Kind),
			counts,
			synced)
	}
}

// Messages lists message summaries, unread ones marked with a dot.
func Messages(w io.Writer, messages []*types.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(w, Muted.Render("No messages"))
		return
	}
	for _, m := range messages {
		dot := Dim.Render("·")
		if !m.IsRead {
			dot = Accent.Render("●")
		}
		flag := " "
		if m.IsFlagged {
			flag = ErrStyle.Render("!")
		}
		subject := m.Subject
		if strings.TrimSpace(subject) == "" {
			subject = "(no subject)"
		}
		fmt.Fprintf(w, "%s%s %s  %s  %s\n",
			dot, flag,
			Dim.Render(fmt.Sprintf("#%-5d", m.ID)),
			Bold.Render(Truncate(m.Sender, 32)),
			Truncate(subject, 60)+"  "+Muted.Render(TimeAgo(m.Date)))
	}
}

// SyncResult summarizes a sync run.
func SyncResult(w io.Writer, r *email.SyncResult) {
	if r == nil {
		return
	}
	line := fmt.Sprintf("account %d: %d fetched, %d new, %d unchanged", r.AccountID, r.Fetched, r.Created, r.Skipped)
	if r.Folders > 0 {
		line = fmt.Sprintf("%s across %d folders", line, r.Folders)
	}
	if r.Failed > 0 || r.FailedFolders > 0 {
		ErrorMsg(w, "%s; %d messages and %d folders failed", line, r.Failed, r.FailedFolders)
		return
	}
	SuccessMsg(w, "%s", line)
}

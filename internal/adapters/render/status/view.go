package status

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zapgate/zapgate/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// QRStaleAfter marks the QR payload stale when the snapshot is older.
	QRStaleAfter time.Duration
}

func renderView(status domain.ConnectionStatus, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Messaging Connection"),
		s.header.Render(fmt.Sprintf("tenant: %s", status.TenantID)),
	}

	if status.State == "" {
		lines = append(lines, s.empty.Render("No connection status recorded yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, stateLine(status, s))

	if status.State == domain.StatePendingQR && status.QRCode != "" {
		lines = append(lines, s.section.Render(renderQR(status, opts, s)))
	}

	details := detailLines(status, opts, s)
	if len(details) > 0 {
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, details...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func stateLine(status domain.ConnectionStatus, s styles) string {
	label := stateStyle(status.State, s).Render(string(status.State))
	return lipgloss.JoinHorizontal(lipgloss.Top, s.fieldKey.Render("state:"), " ", label)
}

func stateStyle(state domain.ConnState, s styles) lipgloss.Style {
	switch state {
	case domain.StateConnected:
		return s.connected
	case domain.StatePendingQR:
		return s.pending
	case domain.StateRetrying, domain.StateInitializing:
		return s.retrying
	case domain.StateLoggedOut:
		return s.loggedOut
	default:
		return s.detail
	}
}

func renderQR(status domain.ConnectionStatus, opts RenderOptions, s styles) string {
	parts := []string{
		s.fieldKey.Render("scan to pair:"),
		s.qrPayload.Render(status.QRCode),
	}

	if !status.QRGeneratedAt.IsZero() {
		age := s.detail.Render(fmt.Sprintf("generated %s", formatAge(status.QRGeneratedAt, opts.Now)))
		if isStale(status.QRGeneratedAt, opts) {
			age += " " + s.warning.Render("[stale]")
		}
		parts = append(parts, age)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func detailLines(status domain.ConnectionStatus, opts RenderOptions, s styles) []string {
	lines := make([]string, 0, 4)

	if !status.LastConnectedAt.IsZero() {
		lines = append(lines, detailLine(s, "last connected:",
			s.detail.Render(formatTimestamp(status.LastConnectedAt, opts.Now))))
	}
	if status.LastDisconnectReason != "" {
		lines = append(lines, detailLine(s, "disconnect reason:",
			s.detail.Render(status.LastDisconnectReason)))
	}
	if status.LastError != "" {
		lines = append(lines, detailLine(s, "last error:", s.warning.Render(status.LastError)))
	}
	if status.RetryAttempt > 0 {
		lines = append(lines, detailLine(s, "retry attempt:",
			s.detail.Render(fmt.Sprintf("%d", status.RetryAttempt))))
	}
	if !status.UpdatedAt.IsZero() {
		lines = append(lines, detailLine(s, "updated:",
			s.detail.Render(formatTimestamp(status.UpdatedAt, opts.Now))))
	}

	return lines
}

func detailLine(s styles, key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.fieldKey.Render(key), " ", value)
}

func isStale(generatedAt time.Time, opts RenderOptions) bool {
	if opts.Now.IsZero() || opts.QRStaleAfter <= 0 {
		return false
	}
	return opts.Now.Sub(generatedAt) > opts.QRStaleAfter
}

func formatAge(at, now time.Time) string {
	if now.IsZero() || at.After(now) {
		return "at " + at.Format("15:04:05")
	}

	elapsed := now.Sub(at)
	if elapsed < time.Minute {
		seconds := int(math.Round(elapsed.Seconds()))
		return fmt.Sprintf("%ds ago", seconds)
	}
	if elapsed < time.Hour {
		minutes := int(math.Round(elapsed.Minutes()))
		return fmt.Sprintf("%dm ago", minutes)
	}

	return "at " + at.Format("15:04 on 02 Jan")
}

func formatTimestamp(at, now time.Time) string {
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04:05")
	}

	return at.Format("15:04 on 02 Jan")
}

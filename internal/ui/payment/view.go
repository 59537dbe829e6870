// Package payment renders the Lightning invoice returned after sending.
package payment

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/theme"
)

// View renders p as a bordered panel of the given width. The invoice is
// printed whole so it can be copied from the terminal.
func View(p *model.PendingPayment, width int) string {
	if p == nil {
		return ""
	}

	inv := p.Invoice
	status := p.Status.Status
	if status == "" {
		status = "pending"
	}

	sections := []string{
		theme.TitleStyle.Render("Payment Required"),
		row("Recipient:", inv.Recipient),
		row("Subject:", inv.Subject),
		row("Amount:", fmt.Sprintf("%d sats", inv.PriceSats)),
		row("Status:", theme.PaymentStyle(p.Status).Render(status)),
		row("Payment hash:", inv.PaymentHash),
	}
	if inv.Message != "" {
		sections = append(sections, row("Note:", inv.Message))
	}

	if inv.PaymentRequest != "" {
		inner := max(width-8, 20)
		sections = append(sections, "",
			theme.LabelStyle.Render("Lightning invoice:"),
			wrapHard(inv.PaymentRequest, inner),
		)
	}

	sections = append(sections, "", theme.HelpStyle.Render("Pay with any Lightning wallet · x dismiss"))

	return theme.DetailPanelStyle.
		Width(max(width-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func row(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s", theme.LabelStyle.Width(14).Render(label), theme.ValueStyle.Render(value))
}

// wrapHard breaks s every width runes; invoices contain no spaces, so word
// wrapping would leave them on one overflowing line.
func wrapHard(s string, width int) string {
	r := []rune(s)
	var b strings.Builder
	for len(r) > width {
		b.WriteString(string(r[:width]))
		b.WriteByte('\n')
		r = r[width:]
	}
	b.WriteString(string(r))
	return b.String()
}

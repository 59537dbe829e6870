package session

import (
	"time"

	"github.com/nhle/lnemail-client/internal/inbox"
	"github.com/nhle/lnemail-client/internal/model"
)

// View is the screen the client is showing.
type View string

const (
	ViewInbox   View = "inbox"
	ViewCompose View = "compose"
	ViewDetail  View = "emailDetail"
	ViewHealth  View = "health"
)

// Phase is the connection state of the session.
type Phase int

const (
	Disconnected Phase = iota
	Connecting
	Connected
)

func (p Phase) String() string {
	switch p {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// State is everything the client knows about the current session. The
// controller owns the only mutable copy; Snapshot hands out clones.
type State struct {
	Phase       Phase
	AccessToken string
	Account     *model.AccountInfo

	Emails      []model.Email
	LastRefresh time.Time

	View        View
	CurrentPage int
	Selected    *inbox.Selection

	OpenEmail          *model.Email
	CurrentAttachments []model.Attachment

	Health  *model.HealthResult
	Payment *model.PendingPayment
}

// NewState returns the defaults: inbox view, first page, nothing selected.
func NewState() State {
	return State{
		Phase:       Disconnected,
		View:        ViewInbox,
		CurrentPage: 1,
		Selected:    inbox.NewSelection(),
	}
}

// Connected reports whether a validated token is in use.
func (s State) Connected() bool {
	return s.Phase == Connected && s.AccessToken != ""
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s State) Clone() State {
	c := s

	if s.Account != nil {
		acct := *s.Account
		c.Account = &acct
	}
	if s.Emails != nil {
		c.Emails = make([]model.Email, len(s.Emails))
		copy(c.Emails, s.Emails)
	}
	if s.Selected != nil {
		c.Selected = s.Selected.Clone()
	} else {
		c.Selected = inbox.NewSelection()
	}
	if s.OpenEmail != nil {
		e := *s.OpenEmail
		c.OpenEmail = &e
	}
	if s.CurrentAttachments != nil {
		c.CurrentAttachments = make([]model.Attachment, len(s.CurrentAttachments))
		copy(c.CurrentAttachments, s.CurrentAttachments)
	}
	if s.Health != nil {
		h := *s.Health
		c.Health = &h
	}
	if s.Payment != nil {
		p := *s.Payment
		c.Payment = &p
	}
	return c
}

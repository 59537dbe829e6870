package inbox

import (
	"time"

	"github.com/nhle/lnemail-client/internal/model"
)

// Row is one inbox line ready for display.
type Row struct {
	ID             string
	Sender         string
	Subject        string
	Date           string
	Preview        string
	Unread         bool
	Selected       bool
	HasAttachments bool
}

// View is the rendered inbox: the visible page plus header state.
type View struct {
	Page      Page
	Rows      []Row
	SelectAll CheckState
	Selected  int
	Unread    int
}

// Empty reports whether there are no emails at all.
func (v View) Empty() bool { return v.Page.Total == 0 }

// Render projects emails into a page of rows. It purges stale ids from sel
// first, then clamps page, then slices; callers should store
// View.Page.Current back as the current page.
func Render(emails []model.Email, sel *Selection, page, size int, now time.Time) View {
	sel.Purge(emails)
	p := Paginate(emails, page, size)
	visible := p.IDs()

	rows := make([]Row, len(p.Emails))
	for i, e := range p.Emails {
		rows[i] = Row{
			ID:             e.ID,
			Sender:         SenderName(e.From),
			Subject:        Subject(e.Subject),
			Date:           FormatDate(e.Date, now),
			Preview:        Preview(e.Body, 80),
			Unread:         e.IsUnread(),
			Selected:       sel.Has(e.ID),
			HasAttachments: len(e.Attachments) > 0,
		}
	}

	return View{
		Page:      p,
		Rows:      rows,
		SelectAll: sel.VisibleState(visible),
		Selected:  sel.Len(),
		Unread:    UnreadCount(emails),
	}
}

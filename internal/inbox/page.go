// Package inbox projects the email list into what the inbox screen shows:
// a page of rows, the batch-delete selection, and display text for dates,
// senders and account expiry.
package inbox

import "github.com/nhle/lnemail-client/internal/model"

// DefaultPageSize is used when no positive page size is configured.
const DefaultPageSize = 15

// Page is one slice of the email list.
type Page struct {
	Emails     []model.Email
	Current    int
	TotalPages int
	Total      int
	Start      int // index of the first email on the page
	End        int // index one past the last email on the page
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Current > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Current < p.TotalPages }

// IDs returns the ids of the emails on the page.
func (p Page) IDs() []string {
	ids := make([]string, len(p.Emails))
	for i, e := range p.Emails {
		ids[i] = e.ID
	}
	return ids
}

// TotalPages returns ceil(n/size).
func TotalPages(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// ClampPage limits page to [1, max(1, totalPages)].
func ClampPage(page, totalPages int) int {
	upper := totalPages
	if upper < 1 {
		upper = 1
	}
	if page < 1 {
		return 1
	}
	if page > upper {
		return upper
	}
	return page
}

// Paginate clamps page and returns the matching slice of emails in API
// order.
func Paginate(emails []model.Email, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := TotalPages(len(emails), size)
	page = ClampPage(page, total)

	start := (page - 1) * size
	end := start + size
	if start > len(emails) {
		start = len(emails)
	}
	if end > len(emails) {
		end = len(emails)
	}

	return Page{
		Emails:     emails[start:end],
		Current:    page,
		TotalPages: total,
		Total:      len(emails),
		Start:      start,
		End:        end,
	}
}

// UnreadCount counts emails explicitly marked unread.
func UnreadCount(emails []model.Email) int {
	n := 0
	for _, e := range emails {
		if e.IsUnread() {
			n++
		}
	}
	return n
}

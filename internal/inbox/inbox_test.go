package inbox

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lnemail-client/internal/model"
)

func makeEmails(n int) []model.Email {
	emails := make([]model.Email, n)
	for i := range emails {
		emails[i] = model.Email{ID: fmt.Sprintf("e%d", i+1), Subject: fmt.Sprintf("s%d", i+1)}
	}
	return emails
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		page      int
		wantPage  int
		wantTotal int
		wantFirst string
		wantLen   int
	}{
		{name: "empty", n: 0, page: 3, wantPage: 1, wantTotal: 0, wantLen: 0},
		{name: "first page", n: 40, page: 1, wantPage: 1, wantTotal: 3, wantFirst: "e1", wantLen: 15},
		{name: "last partial page", n: 40, page: 3, wantPage: 3, wantTotal: 3, wantFirst: "e31", wantLen: 10},
		{name: "clamped high", n: 16, page: 9, wantPage: 2, wantTotal: 2, wantFirst: "e16", wantLen: 1},
		{name: "clamped low", n: 5, page: 0, wantPage: 1, wantTotal: 1, wantFirst: "e1", wantLen: 5},
		{name: "exact multiple", n: 30, page: 2, wantPage: 2, wantTotal: 2, wantFirst: "e16", wantLen: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(makeEmails(tt.n), tt.page, 15)
			assert.Equal(t, tt.wantPage, p.Current)
			assert.Equal(t, tt.wantTotal, p.TotalPages)
			require.Len(t, p.Emails, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, p.Emails[0].ID)
			}
		})
	}
}

func TestPageNavigationFlags(t *testing.T) {
	p := Paginate(makeEmails(31), 2, 15)
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())
	assert.Equal(t, 15, p.Start)
	assert.Equal(t, 30, p.End)

	p = Paginate(makeEmails(3), 1, 15)
	assert.False(t, p.HasPrev())
	assert.False(t, p.HasNext())
}

func TestSelectionVisibleState(t *testing.T) {
	sel := NewSelection()
	visible := []string{"a", "b", "c"}

	assert.Equal(t, Unchecked, sel.VisibleState(visible))
	assert.Equal(t, Unchecked, sel.VisibleState(nil))

	sel.Toggle("b")
	assert.Equal(t, Indeterminate, sel.VisibleState(visible))

	sel.SetVisible(visible, true)
	assert.Equal(t, Checked, sel.VisibleState(visible))

	sel.Set("z", true)
	sel.SetVisible(visible, false)
	assert.Equal(t, Unchecked, sel.VisibleState(visible))
	assert.Equal(t, []string{"z"}, sel.IDs(), "ids off the page are untouched")
}

func TestSelectionToggleAndOrder(t *testing.T) {
	sel := NewSelection()
	assert.True(t, sel.Toggle("x"))
	assert.True(t, sel.Toggle("y"))
	assert.False(t, sel.Toggle("x"))
	assert.True(t, sel.Toggle("x"))
	assert.Equal(t, []string{"y", "x"}, sel.IDs())

	clone := sel.Clone()
	clone.Clear()
	assert.Equal(t, 2, sel.Len())
	assert.Equal(t, 0, clone.Len())
}

func TestRenderPurgesBeforeClamping(t *testing.T) {
	sel := NewSelection()
	sel.Set("e2", true)
	sel.Set("gone", true)

	v := Render(makeEmails(20), sel, 5, 15, time.Now())

	assert.Equal(t, []string{"e2"}, sel.IDs())
	assert.Equal(t, 2, v.Page.Current)
	assert.Len(t, v.Rows, 5)
	assert.Equal(t, Unchecked, v.SelectAll)
	assert.Equal(t, 1, v.Selected)
}

func TestRenderRows(t *testing.T) {
	now := time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)
	f := false
	emails := []model.Email{
		{ID: "1", From: `"Ann" <ann@x.io>`, Date: "2026-05-01T09:30:00Z", Read: &f,
			Attachments: []model.Attachment{{Filename: "a.txt"}}},
		{ID: "2", Subject: "Hi", Date: "not a date"},
	}
	sel := NewSelection()
	sel.Set("2", true)

	v := Render(emails, sel, 1, 15, now)
	require.Len(t, v.Rows, 2)

	assert.Equal(t, "Ann", v.Rows[0].Sender)
	assert.Equal(t, "No Subject", v.Rows[0].Subject)
	assert.Equal(t, "9:30 AM", v.Rows[0].Date)
	assert.True(t, v.Rows[0].Unread)
	assert.True(t, v.Rows[0].HasAttachments)

	assert.Equal(t, "Unknown Sender", v.Rows[1].Sender)
	assert.Equal(t, "not a date", v.Rows[1].Date)
	assert.True(t, v.Rows[1].Selected)
	assert.Equal(t, Indeterminate, v.SelectAll)
	assert.Equal(t, 1, v.Unread)
}

func TestFormatDate(t *testing.T) {
	now := time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, "9:05 AM", FormatDate("2026-05-01T09:05:00Z", now))
	assert.Equal(t, "Mar 4", FormatDate("2026-03-04T10:00:00Z", now))
	assert.Equal(t, "Dec 31, 2025", FormatDate("2025-12-31T10:00:00Z", now))
	assert.Equal(t, "3:00 PM", FormatDate("", now))
	assert.Equal(t, "garbage", FormatDate("garbage", now))
}

func TestSenderName(t *testing.T) {
	assert.Equal(t, "Bob", SenderName("Bob <bob@x.io>"))
	assert.Equal(t, "bob@x.io", SenderName("<bob@x.io>"))
	assert.Equal(t, "bob@x.io", SenderName("bob@x.io"))
	assert.Equal(t, "Unknown Sender", SenderName("  "))
}

func TestExpiryText(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Contains(t, ExpiryText(now.Add(72*time.Hour), now), "Expires in 3 days")
	assert.Contains(t, ExpiryText(now.Add(30*time.Hour), now), "Expires in 2 days")
	assert.Contains(t, ExpiryText(now.Add(5*time.Hour), now), "Expires tomorrow")
	assert.Contains(t, ExpiryText(now, now), "Expires today")
	assert.Contains(t, ExpiryText(now.Add(-48*time.Hour), now), "Expired")
	assert.Contains(t, ExpiryText(now.Add(72*time.Hour), now), "May 4, 2026")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "first line", Preview("  first line\nsecond", 40))
	assert.Equal(t, "abcd…", Preview("abcdefgh", 5))
}

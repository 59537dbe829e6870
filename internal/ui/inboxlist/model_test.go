package inboxlist

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lnemail-client/internal/inbox"
	"github.com/nhle/lnemail-client/internal/keys"
	"github.com/nhle/lnemail-client/internal/model"
)

func newList(t *testing.T, n int, selected ...string) Model {
	t.Helper()
	emails := make([]model.Email, n)
	for i := range emails {
		emails[i] = model.Email{ID: fmt.Sprint(i + 1), From: "a@x.io", Subject: fmt.Sprintf("s%d", i+1)}
	}
	sel := inbox.NewSelection()
	for _, id := range selected {
		sel.Set(id, true)
	}
	m := New(keys.DefaultKeyMap(), 100, 30)
	m.SetView(inbox.Render(emails, sel, 1, 2, time.Now()))
	return m
}

func press(m Model, s string) (Model, tea.Msg) {
	var msg tea.KeyMsg
	switch s {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	next, cmd := m.Update(msg)
	if cmd == nil {
		return next, nil
	}
	return next, cmd()
}

func TestCursorStaysOnPage(t *testing.T) {
	m := newList(t, 3)

	m, _ = press(m, "k")
	assert.Equal(t, 0, m.Cursor())

	m, _ = press(m, "j")
	m, _ = press(m, "j")
	assert.Equal(t, 1, m.Cursor(), "page size is two")

	_, msg := press(m, "enter")
	assert.Equal(t, OpenMsg{ID: "2"}, msg)
}

func TestToggleKeys(t *testing.T) {
	m := newList(t, 3)

	_, msg := press(m, " ")
	assert.Equal(t, ToggleMsg{ID: "1"}, msg)

	_, msg = press(m, "a")
	assert.Equal(t, ToggleAllMsg{}, msg)
}

func TestPagingOnlyWhenPossible(t *testing.T) {
	m := newList(t, 3)

	_, msg := press(m, "h")
	assert.Nil(t, msg)

	_, msg = press(m, "l")
	assert.Equal(t, PageMsg{Delta: 1}, msg)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	m := newList(t, 3, "1")

	m, msg := press(m, "d")
	require.Nil(t, msg)
	assert.True(t, m.Confirming())
	assert.Contains(t, m.View(), "Delete 1 selected email(s)? y/N")

	m, msg = press(m, "n")
	assert.Nil(t, msg)
	assert.False(t, m.Confirming())

	m, _ = press(m, "d")
	_, msg = press(m, "y")
	assert.Equal(t, DeleteMsg{}, msg)
}

func TestDeleteWithoutSelectionGoesStraightThrough(t *testing.T) {
	m := newList(t, 3)

	m, msg := press(m, "d")

	assert.Equal(t, DeleteMsg{}, msg)
	assert.False(t, m.Confirming())
}

func TestViewShowsPagerAndEmptyState(t *testing.T) {
	m := newList(t, 3)
	assert.Contains(t, m.View(), "Page 1 of 2")
	assert.Contains(t, m.View(), "showing 1-2 of 3")

	empty := newList(t, 0)
	assert.Contains(t, empty.View(), "No emails found.")
}

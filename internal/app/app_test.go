package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lnemail-client/internal/lnemail"
	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/session"
	"github.com/nhle/lnemail-client/internal/ui/connect"
	"github.com/nhle/lnemail-client/internal/ui/detail"
	"github.com/nhle/lnemail-client/internal/ui/inboxlist"
	"github.com/nhle/lnemail-client/tests/testutil"
)

type testApp struct {
	m     Model
	api   *testutil.FakeAPI
	ctrl  *session.Controller
	dir   string
	clock time.Time
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	api := testutil.NewFakeAPI(t)
	api.Update(func(f *testutil.FakeAPI) {
		f.Token = "good"
		f.Emails = []map[string]any{
			{
				"id": "1", "from": "Bob <bob@x.io>", "subject": "hello", "body": "hi there",
				"attachments": []map[string]any{
					{"filename": "note.txt", "content": "plain words"},
					{"filename": "blob.bin", "content": "AAEC"},
				},
			},
			{"id": "2", "from": "carol@x.io", "subject": "second"},
		}
	})

	client := lnemail.NewClient(api.URL(), lnemail.WithBackoff(time.Millisecond))
	store, _ := testutil.NewTestTokenStore(t, "")
	sched, _ := testutil.NewManualScheduler()
	ctrl := session.NewController(client, store, session.Config{
		PageSize:       15,
		AutoRefresh:    5 * time.Second,
		HealthCheck:    300 * time.Second,
		PaymentPoll:    3 * time.Second,
		RequestTimeout: 5 * time.Second,
	}, session.WithScheduler(sched))
	t.Cleanup(ctrl.Close)

	ta := &testApp{api: api, ctrl: ctrl, dir: t.TempDir(), clock: time.Now()}
	ta.m = New(ctrl, Config{DownloadsDir: ta.dir, RequestTimeout: 5 * time.Second},
		WithClock(func() time.Time { return ta.clock }))
	ta.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	return ta
}

// send feeds msg to the model and returns the resulting command.
func (ta *testApp) send(msg tea.Msg) tea.Cmd {
	next, cmd := ta.m.Update(msg)
	ta.m = next.(Model)
	return ta.run(cmd)
}

// run executes cmd and feeds its message back when it is one the root
// model produces for itself. Form and cursor commands are left alone.
func (ta *testApp) run(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg.(type) {
	case autoConnectResultMsg, connectResultMsg, refreshResultMsg, openResultMsg,
		sendResultMsg, deleteResultMsg, healthResultMsg, fileResultMsg, previewResultMsg,
		detail.BackMsg, detail.DownloadMsg, detail.PreviewMsg, detail.ExportMsg,
		inboxlist.OpenMsg, inboxlist.DeleteMsg:
		return ta.send(msg)
	}
	return cmd
}

// drain applies every pending session event.
func (ta *testApp) drain() {
	for {
		select {
		case ev := <-ta.ctrl.Events():
			next, _ := ta.m.Update(ev)
			ta.m = next.(Model)
		default:
			return
		}
	}
}

func (ta *testApp) key(s string) tea.Cmd {
	var msg tea.KeyMsg
	switch s {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+d":
		msg = tea.KeyMsg{Type: tea.KeyCtrlD}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	return ta.send(msg)
}

func (ta *testApp) connect(t *testing.T) {
	t.Helper()
	ta.send(connect.SubmitMsg{Token: "good"})
	ta.drain()
	require.Equal(t, ViewInbox, ta.m.currentView)
}

func messages(notices []model.Notice) []string {
	out := make([]string, len(notices))
	for i, n := range notices {
		out[i] = n.Message
	}
	return out
}

func TestConnectSwitchesToInbox(t *testing.T) {
	ta := newTestApp(t)
	assert.Equal(t, ViewConnect, ta.m.currentView)

	ta.connect(t)

	assert.Contains(t, messages(ta.m.Notices()), "Connected successfully!")
	assert.Len(t, ta.m.snapshot.Emails, 2)
	assert.Contains(t, ta.m.View(), "alice@lnemail.net")
}

func TestConnectFailureStaysOnConnectScreen(t *testing.T) {
	ta := newTestApp(t)

	ta.send(connect.SubmitMsg{Token: "bad"})
	ta.drain()

	assert.Equal(t, ViewConnect, ta.m.currentView)
	assert.Contains(t, messages(ta.m.Notices()),
		"Connection failed: Authorization failed. Please check your access token.")
}

func TestEmptyTokenIsAValidationNotice(t *testing.T) {
	ta := newTestApp(t)

	ta.send(connect.SubmitMsg{Token: "   "})

	require.NotEmpty(t, ta.m.Notices())
	last := ta.m.Notices()[len(ta.m.Notices())-1]
	assert.Equal(t, model.NoticeWarning, last.Level)
	assert.Equal(t, "Please enter your access token", last.Message)
}

func TestNoticesExpire(t *testing.T) {
	ta := newTestApp(t)
	ta.m.addNotice(model.NoticeInfo, "first")

	ta.clock = ta.clock.Add(2 * time.Second)
	ta.m.addNotice(model.NoticeInfo, "second")

	ta.clock = ta.clock.Add(model.NoticeTTL - time.Second)
	next, _ := ta.m.Update(noticeTickMsg(ta.clock))
	ta.m = next.(Model)

	assert.Equal(t, []string{"second"}, messages(ta.m.Notices()))
}

func TestHelpToggleOutsideForms(t *testing.T) {
	ta := newTestApp(t)

	ta.key("?")
	assert.Equal(t, ViewConnect, ta.m.currentView, "typing ? into the token field")

	ta.connect(t)
	ta.key("?")
	assert.Equal(t, ViewHelp, ta.m.currentView)
	ta.key("esc")
	assert.Equal(t, ViewInbox, ta.m.currentView)
}

func TestSelectionAndDelete(t *testing.T) {
	ta := newTestApp(t)
	ta.connect(t)

	ta.send(inboxlist.ToggleMsg{ID: "2"})
	assert.True(t, ta.m.snapshot.Selected.Has("2"))

	ta.send(inboxlist.DeleteMsg{})

	assert.Equal(t, [][]string{{"2"}}, ta.api.DeletedBatches())
	assert.Contains(t, messages(ta.m.Notices()), "Deleted 1 email(s)")
	assert.Len(t, ta.m.snapshot.Emails, 1)
}

func TestDeleteWithoutSelection(t *testing.T) {
	ta := newTestApp(t)
	ta.connect(t)

	ta.send(inboxlist.DeleteMsg{})

	assert.Contains(t, messages(ta.m.Notices()), "No emails selected")
	assert.Empty(t, ta.api.DeletedBatches())
}

func TestOpenEmailAndAttachments(t *testing.T) {
	ta := newTestApp(t)
	ta.connect(t)

	ta.send(inboxlist.OpenMsg{ID: "1"})
	require.Equal(t, ViewDetail, ta.m.currentView)
	require.NotNil(t, ta.m.detailView.Email())
	assert.Equal(t, "hello", ta.m.detailView.Email().Subject)

	t.Run("download text attachment", func(t *testing.T) {
		ta.send(detail.DownloadMsg{Index: 0})
		data, err := os.ReadFile(filepath.Join(ta.dir, "note.txt"))
		require.NoError(t, err)
		assert.Equal(t, "plain words", string(data))
		assert.Contains(t, messages(ta.m.Notices()), "Downloaded note.txt")
	})

	t.Run("preview text attachment", func(t *testing.T) {
		ta.send(detail.PreviewMsg{Index: 0})
		assert.True(t, ta.m.detailView.Previewing())
		ta.key("esc")
		assert.False(t, ta.m.detailView.Previewing())
		assert.Equal(t, ViewDetail, ta.m.currentView)
	})

	t.Run("preview unsupported type", func(t *testing.T) {
		ta.send(detail.PreviewMsg{Index: 1})
		assert.Contains(t, messages(ta.m.Notices()),
			"Preview not available for this file type. Try downloading instead.")
	})

	t.Run("export eml", func(t *testing.T) {
		ta.send(detail.ExportMsg{})
		matches, err := filepath.Glob(filepath.Join(ta.dir, "*.eml"))
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	ta.key("esc")
	assert.Equal(t, ViewInbox, ta.m.currentView)
}

func TestOpenUnknownEmail(t *testing.T) {
	ta := newTestApp(t)
	ta.connect(t)

	ta.send(inboxlist.OpenMsg{ID: "404"})

	assert.Equal(t, ViewInbox, ta.m.currentView)
	assert.Contains(t, messages(ta.m.Notices()), "Email not found")
}

func TestCommandPalette(t *testing.T) {
	ta := newTestApp(t)

	ta.m.executeCommand("delete")
	assert.Contains(t, messages(ta.m.Notices()), "Please connect with your access token first")

	ta.connect(t)
	ta.m.executeCommand("select all")
	assert.Equal(t, 2, ta.m.snapshot.Selected.Len())

	ta.m.executeCommand("page x")
	assert.Contains(t, messages(ta.m.Notices()), "Usage: page <number>")

	ta.m.executeCommand("disconnect")
	ta.drain()
	assert.Equal(t, ViewConnect, ta.m.currentView)
	assert.False(t, ta.m.snapshot.Connected())
}

func TestDisconnectKey(t *testing.T) {
	ta := newTestApp(t)
	ta.connect(t)

	ta.key("ctrl+d")
	ta.drain()

	assert.Equal(t, ViewConnect, ta.m.currentView)
}

func TestManualHealthCheck(t *testing.T) {
	ta := newTestApp(t)

	cmd := ta.m.checkHealth(true)
	ta.send(cmd())
	assert.Contains(t, messages(ta.m.Notices()), "API health check completed successfully")

	ta.api.Server.Close()
	ta.send(ta.m.checkHealth(true)())
	last := ta.m.Notices()[len(ta.m.Notices())-1]
	assert.Equal(t, model.NoticeError, last.Level)
	assert.Contains(t, last.Message, "Health check failed: ")
}

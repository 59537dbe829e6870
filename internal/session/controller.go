// Package session owns the client's state and the connect, refresh, send
// and delete flows that change it.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	gosync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/lnemail-client/internal/inbox"
	"github.com/nhle/lnemail-client/internal/lnemail"
	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/sync"
)

// Task names used with the scheduler.
const (
	TaskAutoRefresh = "auto-refresh"
	TaskHealth      = "health"
	TaskPayment     = "payment"
)

// detailWorkers bounds concurrent detail fetches during a refresh.
const detailWorkers = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// API is the subset of the LNemail client the session uses.
type API interface {
	SetToken(token string)
	GetAccount(ctx context.Context) (*model.AccountInfo, error)
	ListEmails(ctx context.Context) ([]model.Email, error)
	GetEmailDetail(ctx context.Context, id string) *model.Email
	SendEmail(ctx context.Context, recipient, subject, body string) (*model.SendResult, error)
	DeleteEmails(ctx context.Context, ids []string) model.DeleteResult
	CheckHealth(ctx context.Context) model.HealthResult
	CheckPayment(ctx context.Context, hash string) (*model.PaymentStatus, error)
}

// TokenStore persists the access token between runs.
type TokenStore interface {
	Load() string
	Save(token string)
	Clear()
}

// Config holds the session timings and policies.
type Config struct {
	PageSize          int
	AutoRefresh       time.Duration
	HealthCheck       time.Duration
	PaymentPoll       time.Duration
	RequestTimeout    time.Duration
	RequireHealthyAPI bool
}

// ConfigFrom maps the application config onto session settings.
func ConfigFrom(cfg *model.AppConfig) Config {
	return Config{
		PageSize:          cfg.Inbox.PageSize,
		AutoRefresh:       time.Duration(cfg.Inbox.AutoRefreshSec) * time.Second,
		HealthCheck:       time.Duration(cfg.Inbox.HealthCheckSec) * time.Second,
		PaymentPoll:       time.Duration(cfg.Inbox.PaymentPollSec) * time.Second,
		RequestTimeout:    time.Duration(cfg.API.TimeoutSec) * time.Second,
		RequireHealthyAPI: cfg.Session.RequireHealthyAPI,
	}
}

// Controller is the single owner of State. All methods are safe for
// concurrent use; blocking methods are meant to run inside tea.Cmds.
type Controller struct {
	api    API
	tokens TokenStore
	sched  *sync.Scheduler
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time

	// ctx bounds background work started by scheduled tasks.
	ctx    context.Context
	cancel context.CancelFunc

	mu         gosync.Mutex
	state      State
	generation uint64
	// attempt numbers connect attempts; only the latest may change the
	// session.
	attempt uint64

	events chan Event
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log.With().Str("component", "session").Logger() }
}

// WithScheduler replaces the default scheduler.
func WithScheduler(s *sync.Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// NewController creates a disconnected session.
func NewController(api API, tokens TokenStore, cfg Config, opts ...Option) *Controller {
	if cfg.PageSize <= 0 {
		cfg.PageSize = inbox.DefaultPageSize
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:    api,
		tokens: tokens,
		cfg:    cfg,
		log:    zerolog.Nop(),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		state:  NewState(),
		events: make(chan Event, 64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sched == nil {
		c.sched = sync.NewScheduler(nil)
	}
	return c
}

// Events delivers notices and state-change notifications to the UI.
func (c *Controller) Events() <-chan Event { return c.events }

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// PageSize returns the configured inbox page size.
func (c *Controller) PageSize() int { return c.cfg.PageSize }

// Close stops all background work and waits for it to finish.
func (c *Controller) Close() {
	c.sched.StopAll()
	c.cancel()
	c.sched.Wait()
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn().Int("kind", int(ev.Kind)).Msg("Event channel full, dropping event")
	}
}

func (c *Controller) notify(level model.NoticeLevel, msg string) {
	n := model.NewNotice(level, msg)
	c.emit(Event{Kind: EventNotice, Notice: &n})
}

// AutoConnect validates a previously saved token. Without one, or when it
// no longer validates, the saved token is cleared and the session stays
// disconnected.
func (c *Controller) AutoConnect(ctx context.Context) error {
	token := c.tokens.Load()
	if token == "" {
		c.tokens.Clear()
		return ErrNoStoredToken
	}

	attempt := c.beginAttempt(token)
	info, err := c.api.GetAccount(ctx)
	if err != nil {
		if !c.resetToken(attempt, true) {
			return ErrSuperseded
		}
		c.log.Info().Err(err).Msg("Stored token rejected")
		return err
	}

	if !c.enterConnected(ctx, attempt, token, info) {
		return ErrSuperseded
	}
	return nil
}

// Connect validates a token typed by the user and, on success, persists
// it and starts the session.
func (c *Controller) Connect(ctx context.Context, input string) error {
	token := strings.TrimSpace(input)
	if token == "" {
		return &ValidationError{Field: "token", Message: "Please enter your access token"}
	}

	c.mu.Lock()
	health := c.state.Health
	c.mu.Unlock()
	if c.cfg.RequireHealthyAPI && health != nil && !health.Healthy() {
		return &ValidationError{
			Field:   "token",
			Message: "The LNemail API is unavailable. Check the health panel and try again.",
		}
	}

	attempt := c.beginAttempt(token)
	info, err := c.api.GetAccount(ctx)
	if err != nil {
		if !c.resetToken(attempt, false) {
			return ErrSuperseded
		}
		c.log.Info().Err(err).Msg("Connect failed")
		return err
	}

	if !c.enterConnected(ctx, attempt, token, info) {
		return ErrSuperseded
	}
	c.notify(model.NoticeSuccess, "Connected successfully!")
	return nil
}

// Disconnect ends the session and forgets the token.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	health := c.state.Health
	c.state = NewState()
	c.state.Health = health
	c.generation++
	c.attempt++
	c.api.SetToken("")
	c.tokens.Clear()
	c.mu.Unlock()

	// Tasks are stopped after the state is cleared so enterConnected,
	// which starts them under c.mu, cannot start any after this point.
	c.sched.StopAll()

	c.log.Info().Msg("Disconnected")
	c.emit(Event{Kind: EventSessionEnded})
}

// expire ends the session because the token is no longer valid.
func (c *Controller) expire() {
	c.mu.Lock()
	connected := c.state.Phase == Connected
	c.mu.Unlock()
	if !connected {
		return
	}

	c.Disconnect()
	c.notify(model.NoticeError, ExpiredMessage)
}

// beginAttempt starts a connect attempt with token and returns its number.
func (c *Controller) beginAttempt(token string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempt++
	c.state.Phase = Connecting
	c.api.SetToken(token)
	return c.attempt
}

// resetToken undoes a failed validation so no unvalidated token lingers,
// also forgetting the stored token when clearStored is set. It reports
// false, changing nothing, when attempt is no longer the latest.
func (c *Controller) resetToken(attempt uint64, clearStored bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if attempt != c.attempt {
		return false
	}
	if clearStored {
		c.tokens.Clear()
	}
	c.api.SetToken("")
	c.state.AccessToken = ""
	c.state.Account = nil
	c.state.Phase = Disconnected
	return true
}

// enterConnected switches to the connected state, saves the token, loads
// the inbox and starts the periodic tasks. It reports false, changing
// nothing, when attempt is no longer the latest.
func (c *Controller) enterConnected(ctx context.Context, attempt uint64, token string, info *model.AccountInfo) bool {
	c.mu.Lock()
	if attempt != c.attempt {
		c.mu.Unlock()
		return false
	}
	c.state.Phase = Connected
	c.state.AccessToken = token
	c.state.Account = info
	c.state.View = ViewInbox
	c.state.CurrentPage = 1
	c.tokens.Save(token)
	c.mu.Unlock()

	c.log.Info().Str("account", info.EmailAddress).Msg("Connected")
	c.emit(Event{Kind: EventConnected})

	if err := c.RefreshInbox(ctx); err != nil && !errors.Is(err, ErrStaleRefresh) {
		c.notify(model.NoticeError, "Failed to load emails: "+err.Error())
	}

	// The first refresh may already have ended the session. Checking and
	// starting under c.mu pairs with Disconnect clearing state before
	// StopAll.
	c.mu.Lock()
	defer c.mu.Unlock()
	if attempt != c.attempt {
		return false
	}
	if c.state.Connected() {
		c.sched.Start(TaskAutoRefresh, c.cfg.AutoRefresh, c.autoRefreshTick)
		c.sched.Start(TaskHealth, c.cfg.HealthCheck, c.healthTick)
	}
	return true
}

func (c *Controller) taskContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.cfg.RequestTimeout)
}

// autoRefreshTick refreshes the inbox while it is on screen and ends the
// session once the account has expired.
func (c *Controller) autoRefreshTick() {
	c.mu.Lock()
	connected := c.state.Connected()
	view := c.state.View
	account := c.state.Account
	c.mu.Unlock()

	if !connected {
		return
	}
	if account != nil && !account.Valid(c.now()) {
		c.expire()
		return
	}
	if view != ViewInbox {
		return
	}

	ctx, cancel := c.taskContext()
	defer cancel()
	if err := c.RefreshInbox(ctx); err != nil && !errors.Is(err, ErrStaleRefresh) {
		c.log.Warn().Err(err).Msg("Auto-refresh failed")
	}
}

func (c *Controller) healthTick() {
	ctx, cancel := c.taskContext()
	defer cancel()
	c.CheckHealth(ctx)
}

// RefreshInbox reloads the email list, fetching every detail concurrently
// and falling back to the summary when a detail cannot be loaded. Results
// from a refresh that has been superseded are discarded.
func (c *Controller) RefreshInbox(ctx context.Context) error {
	c.mu.Lock()
	if !c.state.Connected() {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	summaries, err := c.api.ListEmails(ctx)
	if err != nil {
		if lnemail.IsUnauthorized(err) {
			c.expire()
		}
		return fmt.Errorf("refreshing inbox: %w", err)
	}

	emails := c.fetchDetails(ctx, summaries)

	c.mu.Lock()
	if gen != c.generation || !c.state.Connected() {
		c.mu.Unlock()
		return ErrStaleRefresh
	}
	c.state.Emails = emails
	c.state.LastRefresh = c.now()
	c.state.Selected.Purge(emails)
	total := inbox.TotalPages(len(emails), c.cfg.PageSize)
	c.state.CurrentPage = inbox.ClampPage(c.state.CurrentPage, total)
	c.mu.Unlock()

	c.log.Debug().Int("count", len(emails)).Msg("Inbox refreshed")
	c.emit(Event{Kind: EventInboxRefreshed})
	return nil
}

func (c *Controller) fetchDetails(ctx context.Context, summaries []model.Email) []model.Email {
	out := make([]model.Email, len(summaries))
	sem := make(chan struct{}, detailWorkers)
	var wg gosync.WaitGroup

	for i, s := range summaries {
		out[i] = s
		if s.ID == "" {
			continue
		}
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if detail := c.api.GetEmailDetail(ctx, id); detail != nil {
				out[i] = *detail
			}
		}(i, s.ID)
	}

	wg.Wait()
	return out
}

// OpenEmail shows the detail view for id.
func (c *Controller) OpenEmail(ctx context.Context, id string) error {
	c.mu.Lock()
	var summary *model.Email
	for i := range c.state.Emails {
		if c.state.Emails[i].ID == id {
			e := c.state.Emails[i]
			summary = &e
			break
		}
	}
	c.mu.Unlock()

	if summary == nil {
		return ErrEmailNotFound
	}

	email := summary
	if detail := c.api.GetEmailDetail(ctx, id); detail != nil {
		email = detail
	}

	c.mu.Lock()
	c.state.OpenEmail = email
	c.state.CurrentAttachments = email.Attachments
	c.state.View = ViewDetail
	c.mu.Unlock()
	return nil
}

// CloseEmail returns from the detail view to the inbox.
func (c *Controller) CloseEmail() {
	c.mu.Lock()
	c.state.OpenEmail = nil
	c.state.CurrentAttachments = nil
	c.state.View = ViewInbox
	c.mu.Unlock()
}

// ValidateOutgoing checks the compose fields without sending anything.
func ValidateOutgoing(recipient, subject, body string) error {
	if recipient == "" || subject == "" || body == "" {
		return &ValidationError{Field: "all", Message: "Please fill in all fields"}
	}
	if !emailPattern.MatchString(recipient) {
		return &ValidationError{Field: "recipient", Message: "Please enter a valid email address"}
	}
	return nil
}

// SendEmail validates and submits an outgoing email. When the service
// answers with an invoice, its payment status is polled until it settles
// or fails.
func (c *Controller) SendEmail(ctx context.Context, recipient, subject, body string) (*model.SendResult, error) {
	recipient = strings.TrimSpace(recipient)
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)

	if err := ValidateOutgoing(recipient, subject, body); err != nil {
		return nil, err
	}

	c.mu.Lock()
	connected := c.state.Connected()
	c.mu.Unlock()
	if !connected {
		return nil, ErrNotConnected
	}

	res, err := c.api.SendEmail(ctx, recipient, subject, body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.state.View = ViewInbox
	if res.PaymentHash != "" {
		invoice := *res
		if invoice.Recipient == "" {
			invoice.Recipient = recipient
		}
		if invoice.Subject == "" {
			invoice.Subject = subject
		}
		c.state.Payment = &model.PendingPayment{
			Invoice: invoice,
			Status:  model.PaymentStatus{PaymentHash: res.PaymentHash, Status: "pending"},
		}
	}
	c.mu.Unlock()

	c.notify(model.NoticeSuccess, "Email sent successfully!")
	if res.PaymentHash != "" {
		c.notify(model.NoticeInfo, "Payment hash: "+res.PaymentHash)
		c.emit(Event{Kind: EventPaymentUpdated})
		hash := res.PaymentHash
		c.sched.Start(TaskPayment, c.cfg.PaymentPoll, func() { c.paymentTick(hash) })
	}
	return res, nil
}

func (c *Controller) paymentTick(hash string) {
	ctx, cancel := c.taskContext()
	defer cancel()
	c.PollPayment(ctx, hash)
}

// PollPayment checks the invoice once and stops polling when it has
// settled or failed. It reports whether polling is finished.
func (c *Controller) PollPayment(ctx context.Context, hash string) bool {
	st, err := c.api.CheckPayment(ctx, hash)
	if err != nil {
		c.log.Debug().Err(err).Str("payment_hash", hash).Msg("Payment check failed")
		return false
	}

	c.mu.Lock()
	if c.state.Payment == nil || c.state.Payment.Invoice.PaymentHash != hash {
		c.mu.Unlock()
		c.sched.Stop(TaskPayment)
		return true
	}
	c.state.Payment.Status = *st
	c.mu.Unlock()

	c.emit(Event{Kind: EventPaymentUpdated})

	switch {
	case st.Settled():
		c.sched.Stop(TaskPayment)
		c.notify(model.NoticeSuccess, "Payment received. Your email is on its way.")
		return true
	case st.Failed():
		c.sched.Stop(TaskPayment)
		c.notify(model.NoticeError, fmt.Sprintf("Payment %s", st.Status))
		return true
	}
	return false
}

// DismissPayment stops tracking the current invoice.
func (c *Controller) DismissPayment() {
	c.sched.Stop(TaskPayment)
	c.mu.Lock()
	c.state.Payment = nil
	c.mu.Unlock()
	c.emit(Event{Kind: EventPaymentUpdated})
}

// DeleteSelected deletes every selected email in one batch.
func (c *Controller) DeleteSelected(ctx context.Context) (int, error) {
	c.mu.Lock()
	ids := c.state.Selected.IDs()
	c.mu.Unlock()

	if len(ids) == 0 {
		return 0, &ValidationError{Field: "selection", Message: "No emails selected"}
	}

	res := c.api.DeleteEmails(ctx, ids)
	if !res.Success {
		return 0, &DeleteError{Reason: res.Error}
	}

	c.mu.Lock()
	c.state.Selected.Clear()
	c.mu.Unlock()

	if err := c.RefreshInbox(ctx); err != nil && !errors.Is(err, ErrStaleRefresh) {
		c.log.Warn().Err(err).Msg("Refresh after delete failed")
	}
	return len(ids), nil
}

// CheckHealth probes the API and records the result.
func (c *Controller) CheckHealth(ctx context.Context) model.HealthResult {
	res := c.api.CheckHealth(ctx)
	if res.CheckedAt.IsZero() {
		res.CheckedAt = c.now()
	}

	c.mu.Lock()
	c.state.Health = &res
	c.mu.Unlock()

	c.emit(Event{Kind: EventHealthUpdated})
	return res
}

// ToggleSelected flips the selection of one email.
func (c *Controller) ToggleSelected(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Selected.Toggle(id)
}

// SetVisibleSelected selects or clears every email on the current page.
func (c *Controller) SetVisibleSelected(selected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page := inbox.Paginate(c.state.Emails, c.state.CurrentPage, c.cfg.PageSize)
	c.state.Selected.SetVisible(page.IDs(), selected)
}

// ToggleVisibleSelected selects the whole page unless it is already fully
// selected, in which case it clears it.
func (c *Controller) ToggleVisibleSelected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := inbox.Paginate(c.state.Emails, c.state.CurrentPage, c.cfg.PageSize).IDs()
	all := c.state.Selected.VisibleState(ids) == inbox.Checked
	c.state.Selected.SetVisible(ids, !all)
}

// SetPage moves to page, clamped to the valid range.
func (c *Controller) SetPage(page int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := inbox.TotalPages(len(c.state.Emails), c.cfg.PageSize)
	c.state.CurrentPage = inbox.ClampPage(page, total)
	return c.state.CurrentPage
}

// NextPage advances one page.
func (c *Controller) NextPage() int {
	c.mu.Lock()
	page := c.state.CurrentPage + 1
	c.mu.Unlock()
	return c.SetPage(page)
}

// PrevPage goes back one page.
func (c *Controller) PrevPage() int {
	c.mu.Lock()
	page := c.state.CurrentPage - 1
	c.mu.Unlock()
	return c.SetPage(page)
}

// SetView switches screens. Leaving the detail view forgets the open
// email.
func (c *Controller) SetView(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v != ViewDetail {
		c.state.OpenEmail = nil
		c.state.CurrentAttachments = nil
	}
	c.state.View = v
}

// InboxPage renders the current page: stale selections are purged, the
// page is clamped, then sliced.
func (c *Controller) InboxPage() inbox.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := inbox.Render(c.state.Emails, c.state.Selected, c.state.CurrentPage, c.cfg.PageSize, c.now())
	c.state.CurrentPage = v.Page.Current
	return v
}

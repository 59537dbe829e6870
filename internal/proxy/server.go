// Package proxy serves the client's API prefix on the same origin and
// forwards it to the LNemail API, adding CORS headers for trusted origins.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/nhle/lnemail-client/internal/model"
)

const (
	// Prefix is the path under which the API is proxied.
	Prefix = "/api/lnemail"

	allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders = "Content-Type, Authorization, X-Requested-With"
)

// Config holds the proxy settings.
type Config struct {
	Upstream       string
	AllowedOrigins []string
	StaticDir      string
	Timeout        time.Duration
}

// ConfigFrom maps the application config onto proxy settings.
func ConfigFrom(cfg model.ProxyConfig) Config {
	return Config{
		Upstream:       cfg.Upstream,
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
		Timeout:        time.Duration(cfg.TimeoutSec) * time.Second,
	}
}

// Server is the reverse proxy.
type Server struct {
	app      *fiber.App
	cfg      Config
	upstream string
	allowed  map[string]bool
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithHTTPClient replaces the upstream HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Server) { s.client = hc }
}

// WithBreakerSettings replaces the default circuit breaker settings.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(s *Server) { s.breaker = gobreaker.NewCircuitBreaker(st) }
}

// WithClock overrides the time source for the health endpoint.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds the proxy and registers its routes.
func New(cfg Config, log zerolog.Logger, opts ...Option) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	s := &Server{
		cfg:      cfg,
		upstream: strings.TrimRight(cfg.Upstream, "/"),
		allowed:  make(map[string]bool, len(cfg.AllowedOrigins)),
		client:   &http.Client{Timeout: cfg.Timeout},
		log:      log.With().Str("component", "proxy").Logger(),
		now:      time.Now,
	}
	for _, o := range cfg.AllowedOrigins {
		s.allowed[o] = true
	}
	s.breaker = gobreaker.NewCircuitBreaker(s.defaultBreakerSettings())

	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "lnemail-proxy",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

func (s *Server) defaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "lnemail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Get("/api/health", s.handleHealth)

	s.app.Options(Prefix, s.handlePreflight)
	s.app.Options(Prefix+"/*", s.handlePreflight)
	s.app.All(Prefix, s.handleProxy)
	s.app.All(Prefix+"/*", s.handleProxy)

	if s.cfg.StaticDir != "" {
		s.app.Static("/", s.cfg.StaticDir)
	}

	s.app.Use(s.handleNotFound)
}

func (s *Server) originAllowed(origin string) bool {
	return origin == "" || s.allowed[origin]
}

func (s *Server) setCORS(c *fiber.Ctx, origin string) {
	if origin != "" && s.allowed[origin] {
		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
		c.Set(fiber.HeaderVary, fiber.HeaderOrigin)
	}
	c.Set(fiber.HeaderAccessControlAllowMethods, allowMethods)
	c.Set(fiber.HeaderAccessControlAllowHeaders, allowHeaders)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "OK",
		"message":   "LNemail Client Server is running",
		"timestamp": s.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}

func (s *Server) handlePreflight(c *fiber.Ctx) error {
	origin := c.Get(fiber.HeaderOrigin)
	if s.originAllowed(origin) {
		s.setCORS(c, origin)
	}
	return c.SendStatus(fiber.StatusOK)
}

// upstreamResponse is what the breaker-protected call returns.
type upstreamResponse struct {
	status int
	body   []byte
}

// errUpstreamServer marks a 5xx answer: it counts against the breaker but
// is still relayed to the client.
var errUpstreamServer = errors.New("upstream server error")

// TargetURL maps a path below Prefix to the upstream URL.
func (s *Server) TargetURL(apiPath, rawQuery string) string {
	if apiPath == "" {
		apiPath = "/"
	}
	var target string
	if apiPath == "/health" {
		target = s.upstream + apiPath
	} else {
		target = s.upstream + "/v1" + apiPath
	}
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

func (s *Server) handleProxy(c *fiber.Ctx) error {
	origin := c.Get(fiber.HeaderOrigin)
	if !s.originAllowed(origin) {
		s.log.Warn().Str("origin", origin).Str("path", c.Path()).Msg("Rejected request from forbidden origin")
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden origin"})
	}

	requestID := uuid.NewString()
	c.Set(fiber.HeaderXRequestID, requestID)

	apiPath := "/" + c.Params("*")
	target := s.TargetURL(apiPath, string(c.Request().URI().QueryString()))
	method := c.Method()

	log := s.log.With().Str("request_id", requestID).Str("method", method).Str("target", target).Logger()
	log.Info().Str("path", c.Path()).Msg("Proxying request")

	var body []byte
	if method != fiber.MethodGet && method != fiber.MethodHead && len(c.Body()) > 0 {
		body = append([]byte(nil), c.Body()...)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		header.Set("Authorization", auth)
	}
	if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
		header.Set("User-Agent", ua)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.forward(c.UserContext(), method, target, header, body)
	})
	if err != nil && !errors.Is(err, errUpstreamServer) {
		log.Error().Err(err).Msg("Proxy error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Proxy Error",
			"message": "Failed to proxy request to LNemail API",
			"details": err.Error(),
		})
	}

	resp := result.(*upstreamResponse)
	log.Info().Int("status", resp.status).Msg("Upstream responded")

	s.setCORS(c, origin)
	c.Status(resp.status)

	trimmed := bytes.TrimSpace(resp.body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		return c.Send(trimmed)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(resp.body)
}

func (s *Server) forward(ctx context.Context, method, target string, header http.Header, body []byte) (*upstreamResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating upstream request: %w", err)
	}
	req.Header = header

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling upstream: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upstream response: %w", err)
	}

	out := &upstreamResponse{status: resp.StatusCode, body: data}
	if resp.StatusCode >= 500 {
		return out, errUpstreamServer
	}
	return out, nil
}

func (s *Server) handleNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":   "Not Found",
		"message": "The requested resource was not found on this server.",
	})
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code == fiber.StatusNotFound {
		return s.handleNotFound(c)
	}

	s.log.Error().Err(err).Str("path", c.Path()).Msg("Handler error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "Internal Server Error",
		"message": "Something went wrong on the server.",
	})
}

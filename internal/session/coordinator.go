package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/blag/scheduler/internal/google"
	"github.com/blag/scheduler/internal/instrumentation"
	"github.com/blag/scheduler/internal/logging"
	"github.com/blag/scheduler/internal/schedule"
)

// DefaultGracePeriod is how long the coordinator waits after a successful
// token exchange before the first availability query. Freshly created grants
// need a moment before the provider serves free/busy data for them.
const DefaultGracePeriod = 3 * time.Second

// TokenExchanger is the OAuth surface the coordinator needs. It is satisfied
// by google.Exchanger.
type TokenExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*google.Grant, error)
	Revoke(ctx context.Context, grant *google.Grant) error
}

// Coordinator drives sessions through the scheduling flow: authentication,
// availability loading, slot confirmation, and logout. It holds no per-guest
// state itself; everything mutable lives on the Session passed to each call.
type Coordinator struct {
	exchanger  TokenExchanger
	aggregator *schedule.Aggregator
	booking    *schedule.BookingService
	grace      time.Duration
	sleep      func(time.Duration)
	location   *time.Location
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithGracePeriod overrides the post-authentication settling delay.
func WithGracePeriod(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d >= 0 {
			c.grace = d
		}
	}
}

// WithSleep injects the sleep function used for the grace period.
func WithSleep(sleep func(time.Duration)) CoordinatorOption {
	return func(c *Coordinator) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithLocation sets the location confirmed slot strings are parsed in.
func WithLocation(loc *time.Location) CoordinatorOption {
	return func(c *Coordinator) {
		c.location = loc
	}
}

// WithCoordinatorLogger sets the logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCoordinatorMetrics wires the OAuth and booking counters.
func WithCoordinatorMetrics(metrics *instrumentation.Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = metrics
	}
}

// NewCoordinator creates a coordinator over the given exchanger, aggregator,
// and booking service.
func NewCoordinator(exchanger TokenExchanger, aggregator *schedule.Aggregator, booking *schedule.BookingService, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		exchanger:  exchanger,
		aggregator: aggregator,
		booking:    booking,
		grace:      DefaultGracePeriod,
		sleep:      time.Sleep,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartAuth moves the session into the authenticating state and returns the
// provider URL the guest's browser should be sent to. The session ID rides
// along as the OAuth state parameter so the callback can find its session.
func (c *Coordinator) StartAuth(sess *Session) string {
	sess.beginAuth()

	logging.WithSession(c.logger, sess.ID).Info("authentication started",
		logging.Operation("login"))
	return c.exchanger.AuthCodeURL(sess.ID)
}

// HandleCallback completes the OAuth flow for the session: it exchanges the
// authorization code for a grant, waits out the grace period, and loads the
// availability list. Any failure resets the session to anonymous so a broken
// callback never leaves a half-authenticated guest behind.
func (c *Coordinator) HandleCallback(ctx context.Context, sess *Session, code string) error {
	logger := logging.WithSession(c.logger, sess.ID)

	grant, err := c.exchanger.Exchange(ctx, code)
	c.metrics.RecordOAuthAttempt(ctx, err)
	if err != nil {
		sess.reset()
		logger.Error("authorization code exchange failed",
			logging.Operation("callback"),
			logging.Err(err))
		return &schedule.Error{Op: "callback", Kind: schedule.ErrAuthentication, Err: err}
	}

	sess.authenticate(grant)
	logger.Info("guest authenticated",
		logging.Operation("callback"),
		logging.UserHash(grant.Email))

	// Freshly issued grants are not immediately queryable.
	c.sleep(c.grace)

	return c.Refresh(ctx, sess)
}

// Refresh reloads the session's availability list from scratch. It requires
// an authenticated session; the resulting list fully replaces the previous
// one.
func (c *Coordinator) Refresh(ctx context.Context, sess *Session) error {
	grant := sess.Grant()
	if grant == nil {
		return &schedule.Error{
			Op:   "availability",
			Kind: schedule.ErrAuthentication,
			Err:  errors.New("session has no grant"),
		}
	}

	slots, err := c.aggregator.Refresh(ctx, schedule.SelfParticipant(grant.Email))
	// Days queried before a failure still count; the partial list is kept.
	sess.setAvailable(slots)
	return err
}

// ConfirmSlot books the chosen slot for the session's guest and reloads the
// availability list so the booked time no longer appears. On failure the
// previous list is kept so the guest can pick again.
func (c *Coordinator) ConfirmSlot(ctx context.Context, sess *Session, value string) (string, error) {
	logger := logging.WithSession(c.logger, sess.ID)

	grant := sess.Grant()
	if grant == nil {
		return "", &schedule.Error{
			Op:   "book",
			Kind: schedule.ErrAuthentication,
			Err:  errors.New("session has no grant"),
		}
	}

	parsed, err := schedule.ParseSlot(value, c.location)
	if err != nil {
		logger.Error("slot confirmation rejected",
			logging.Operation("book"),
			logging.Slot(value),
			logging.Err(err))
		return "", err
	}

	sess.transition(StateBooking)

	eventID, err := c.booking.Book(ctx, parsed, grant.Email)
	c.metrics.RecordBooking(ctx, err)
	if err != nil {
		sess.transition(StateAvailabilityLoaded)
		return "", err
	}

	if err := c.Refresh(ctx, sess); err != nil {
		// The booking itself succeeded; report it even if the reload
		// failed part way.
		logger.Warn("availability reload after booking failed",
			logging.Operation("book"),
			logging.Err(err))
		sess.transition(StateAvailabilityLoaded)
	}

	return eventID, nil
}

// Logout revokes the session's grant at the provider and clears all local
// state. Revocation failures are reported but never block the logout; the
// session always ends anonymous.
func (c *Coordinator) Logout(ctx context.Context, sess *Session) error {
	logger := logging.WithSession(c.logger, sess.ID)

	grant := sess.Grant()
	err := c.exchanger.Revoke(ctx, grant)
	sess.reset()

	if err != nil {
		logger.Warn("grant revocation failed",
			logging.Operation("logout"),
			logging.Err(err))
		return &schedule.Error{Op: "logout", Kind: schedule.ErrRevocation, Err: err}
	}

	logger.Info("guest logged out", logging.Operation("logout"))
	return nil
}

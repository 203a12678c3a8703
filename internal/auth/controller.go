// Package auth orchestrates register and login submissions: one attempt
// per submit, token extraction from the backend's ambiguous envelope, and
// translation of failures into a single user-facing message.
package auth

import (
	"context"
	"errors"
	"sync"

	"spendtrack/internal/core"
	"spendtrack/internal/gateway"
	"spendtrack/internal/log"
)

// State is the controller's position in the auth flow.
type State int

const (
	Anonymous State = iota
	Submitting
	Authenticated
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

var (
	// ErrPending rejects a submit while another is in flight.
	ErrPending = errors.New("a submission is already in flight")
	// ErrNoToken means the backend reported success but carried no token
	// under either known key.
	ErrNoToken = errors.New("no token received from server")
)

const (
	loginFailedMsg    = "Login failed"
	registerFailedMsg = "Registration failed"
)

// Authenticator is the slice of the gateway the controller submits to.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (gateway.TokenEnvelope, error)
	Register(ctx context.Context, username, email, password string) (gateway.TokenEnvelope, error)
}

// SessionActivator receives the extracted credential on success.
type SessionActivator interface {
	Activate(ctx context.Context, cred core.Credential) error
}

var _ Authenticator = (*gateway.Client)(nil)

type Controller struct {
	gateway Authenticator
	session SessionActivator
	logger  *log.Logger

	mu      sync.Mutex
	state   State
	lastErr string
}

func NewController(gw Authenticator, session SessionActivator, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Controller{
		gateway: gw,
		session: session,
		logger:  logger.WithComponent(log.ComponentAuth),
	}
}

// SubmitLogin runs one login attempt. A concurrent submit fails fast with
// ErrPending and leaves the in-flight attempt untouched.
func (c *Controller) SubmitLogin(ctx context.Context, email, password string) error {
	return c.submit(ctx, log.OpLogin, loginFailedMsg, func() (gateway.TokenEnvelope, error) {
		return c.gateway.Login(ctx, email, password)
	})
}

// SubmitRegister runs one registration attempt.
func (c *Controller) SubmitRegister(ctx context.Context, username, email, password string) error {
	return c.submit(ctx, log.OpRegister, registerFailedMsg, func() (gateway.TokenEnvelope, error) {
		return c.gateway.Register(ctx, username, email, password)
	})
}

func (c *Controller) submit(ctx context.Context, op, fallbackMsg string, call func() (gateway.TokenEnvelope, error)) error {
	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		return ErrPending
	}
	c.state = Submitting
	c.lastErr = "" // a new attempt clears the previous message
	c.mu.Unlock()

	envelope, err := call()
	if err != nil {
		msg := fallbackMsg
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) && gwErr.Message != "" {
			msg = gwErr.Message
		}
		c.fail(msg)
		c.logger.InfoContext(ctx, "Submission rejected",
			log.FieldOperation, op,
			log.FieldError, err)
		return err
	}

	cred := extractToken(envelope)
	if cred.Empty() {
		c.fail(ErrNoToken.Error())
		c.logger.WarnContext(ctx, "Success response without a token",
			log.FieldOperation, op)
		return ErrNoToken
	}

	if err := c.session.Activate(ctx, cred); err != nil {
		c.fail(fallbackMsg)
		return err
	}

	c.mu.Lock()
	c.state = Authenticated
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Submission accepted", log.FieldOperation, op)
	return nil
}

func (c *Controller) fail(msg string) {
	c.mu.Lock()
	c.state = Anonymous
	c.lastErr = msg
	c.mu.Unlock()
}

// extractToken picks the first non-empty of the two keys the backend may
// use for the token field.
func extractToken(envelope gateway.TokenEnvelope) core.Credential {
	if envelope.AccessToken != "" {
		return core.Credential(envelope.AccessToken)
	}
	return core.Credential(envelope.Token)
}

// State returns the controller's current flow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the user-facing message of the most recent failed
// submit, empty after a success or a fresh attempt.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Reset returns the controller to Anonymous, e.g. after logout.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.state = Anonymous
	c.lastErr = ""
	c.mu.Unlock()
}

// Package session owns the current credential: acquiring it into memory,
// persisting it, restoring and revalidating it at startup, and destroying
// it on logout or invalidation.
package session

import (
	"context"
	"errors"
	"sync"

	"spendtrack/internal/core"
	"spendtrack/internal/gateway"
	"spendtrack/internal/log"
)

// ErrNoSession means no valid credential is available; the caller should
// fall back to the anonymous flow.
var ErrNoSession = errors.New("no session")

// ProfileFetcher is the one gateway operation the store needs: fetching
// the profile doubles as credential validation.
type ProfileFetcher interface {
	Profile(ctx context.Context, cred core.Credential) (core.Profile, error)
}

// CredentialStorage is the durable local copy of the credential.
type CredentialStorage interface {
	SaveCredential(ctx context.Context, cred core.Credential) error
	LoadCredential(ctx context.Context) (core.Credential, error)
	DeleteCredential(ctx context.Context) error
}

var _ ProfileFetcher = (*gateway.Client)(nil)

// Store guards the single active credential. The epoch counter moves on
// every activate and clear so that results of calls issued under an
// earlier session can be detected and discarded instead of being applied
// to the wrong session.
type Store struct {
	gateway ProfileFetcher
	state   CredentialStorage
	logger  *log.Logger

	mu      sync.Mutex
	cred    core.Credential
	profile core.Profile
	active  bool
	epoch   uint64
}

func NewStore(gw ProfileFetcher, state CredentialStorage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Store{
		gateway: gw,
		state:   state,
		logger:  logger.WithComponent(log.ComponentSession),
	}
}

// Restore loads a persisted credential, if any, and validates it against
// the backend via the profile fetch. Any failure, expired token and
// network error alike, deletes the persisted copy and reports
// ErrNoSession; a credential never survives unvalidated. Runs once at
// startup, before any other authenticated call.
func (s *Store) Restore(ctx context.Context) error {
	cred, err := s.state.LoadCredential(ctx)
	if err != nil {
		return err
	}
	if cred.Empty() {
		return ErrNoSession
	}

	profile, err := s.gateway.Profile(ctx, cred)
	if err != nil {
		s.logger.InfoContext(ctx, "Persisted credential rejected, clearing it",
			log.FieldOperation, log.OpRestore,
			log.FieldError, err)
		if delErr := s.state.DeleteCredential(ctx); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to clear rejected credential",
				log.FieldError, delErr)
		}
		return errors.Join(ErrNoSession, err)
	}

	s.mu.Lock()
	s.cred = cred
	s.profile = profile
	s.active = true
	s.epoch++
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Session restored",
		log.FieldOperation, log.OpRestore,
		log.FieldUsername, profile.Username)
	return nil
}

// Activate sets the in-memory credential and persists it.
func (s *Store) Activate(ctx context.Context, cred core.Credential) error {
	if cred.Empty() {
		return errors.New("cannot activate empty credential")
	}
	if err := s.state.SaveCredential(ctx, cred); err != nil {
		return err
	}

	s.mu.Lock()
	s.cred = cred
	s.profile = core.Profile{}
	s.active = true
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Session activated", log.FieldEpoch, epoch)
	return nil
}

// Clear removes the in-memory credential and its persisted copy.
// Clearing an anonymous store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cred = ""
	s.profile = core.Profile{}
	s.active = false
	s.epoch++
	s.mu.Unlock()

	if err := s.state.DeleteCredential(ctx); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Session cleared")
	return nil
}

// SetProfile caches the profile fetched for the active session.
func (s *Store) SetProfile(profile core.Profile) {
	s.mu.Lock()
	if s.active {
		s.profile = profile
	}
	s.mu.Unlock()
}

// Current returns the active credential, if any.
func (s *Store) Current() (core.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred, s.active
}

// Profile returns the cached profile of the active session.
func (s *Store) Profile() (core.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.profile == (core.Profile{}) {
		return core.Profile{}, false
	}
	return s.profile, true
}

// Epoch returns the current session generation. Callers snapshot it
// before an authenticated call and compare after, discarding results
// issued under a different generation.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

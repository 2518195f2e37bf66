package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/fieldserve/authgate/credstore"
)

var (
	// ErrNoRefreshToken means the session has nothing to exchange; the
	// caller should send the user back to login.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrRefreshRejected means the exchange failed. The credential
	// record has already been cleared; the session is over.
	ErrRefreshRejected = errors.New("refresh rejected")

	// ErrSessionEnded means the session was logged out while an
	// upstream exchange (login or refresh) was in flight; the result
	// was discarded.
	ErrSessionEnded = errors.New("session ended")
)

// Refresher exchanges a refresh token for a new access token. Concurrent
// calls for the same session coalesce onto a single in-flight exchange,
// so a burst of 401s from parallel requests triggers at most one
// upstream call per expiry window.
type Refresher struct {
	Backend *BackendClient

	mu       sync.Mutex
	inflight map[string]*refreshCall
}

type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

func NewRefresher(backend *BackendClient) *Refresher {
	return &Refresher{Backend: backend, inflight: make(map[string]*refreshCall)}
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh returns a valid access token for the session, performing at
// most one upstream exchange regardless of how many callers arrive
// while it is in flight. On any exchange failure the credential record
// is cleared exactly once and ErrRefreshRejected is returned to every
// waiter. No internal retry.
func (r *Refresher) Refresh(ctx context.Context, creds *credstore.Credentials) (string, error) {
	id := creds.ID()

	r.mu.Lock()
	if call, ok := r.inflight[id]; ok {
		r.mu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	r.inflight[id] = call
	r.mu.Unlock()

	call.token, call.err = r.exchange(ctx, creds)

	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
	close(call.done)

	return call.token, call.err
}

func (r *Refresher) exchange(ctx context.Context, creds *credstore.Credentials) (string, error) {
	refreshToken, err := creds.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	// Capture the epoch before the network call; a logout during the
	// exchange moves it and the result must not be written.
	epoch := creds.Epoch()

	env, err := r.Backend.Post(ctx, "/token-refresh/", refreshRequest{Refresh: refreshToken}, "")
	if err != nil {
		return "", r.reject(ctx, creds, err)
	}

	var resp struct {
		Access string `json:"access"`
	}
	if err := decodeData(env, &resp); err != nil {
		return "", r.reject(ctx, creds, err)
	}
	if resp.Access == "" {
		return "", r.reject(ctx, creds, errors.New("no access token in refresh response"))
	}

	wrote, err := creds.SetTokenIfEpoch(ctx, resp.Access, epoch)
	if err != nil {
		return "", err
	}
	if !wrote {
		return "", ErrSessionEnded
	}
	log.Printf("auth: session %s access token refreshed", creds.ID())
	return resp.Access, nil
}

// reject clears the whole credential record (a failed refresh is fatal
// to the session) and wraps the cause.
func (r *Refresher) reject(ctx context.Context, creds *credstore.Credentials, cause error) error {
	log.Printf("auth: session %s refresh failed: %v", creds.ID(), cause)
	if err := creds.ClearAll(ctx); err != nil {
		log.Printf("auth: session %s clear after failed refresh: %v", creds.ID(), err)
	}
	return fmt.Errorf("%w: %v", ErrRefreshRejected, cause)
}

// Package workers contains the gateway's background loops.
package workers

import (
	"context"
	"log"
	"time"

	"github.com/fieldserve/authgate/authz"
	"github.com/fieldserve/authgate/credstore"
	"github.com/fieldserve/authgate/services"
)

// PermissionSyncWorker periodically re-hydrates each live session's
// permission set from the upstream profile endpoint, so a grant revoked
// server-side takes effect without a re-login. A failed fetch flags the
// session's evaluator error state instead of clearing grants.
type PermissionSyncWorker struct {
	Sessions *credstore.Sessions
	Auth     *services.AuthService
	Interval time.Duration

	stop chan struct{}
}

func NewPermissionSyncWorker(sessions *credstore.Sessions, auth *services.AuthService, interval time.Duration) *PermissionSyncWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PermissionSyncWorker{
		Sessions: sessions,
		Auth:     auth,
		Interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start runs the sync loop until Stop is called. Call in a goroutine.
func (w *PermissionSyncWorker) Start() {
	log.Printf("permission sync worker started (interval %s)", w.Interval)
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.syncAll()
		case <-w.stop:
			log.Println("permission sync worker stopped")
			return
		}
	}
}

func (w *PermissionSyncWorker) Stop() {
	close(w.stop)
}

func (w *PermissionSyncWorker) syncAll() {
	ctx, cancel := context.WithTimeout(context.Background(), w.Interval)
	defer cancel()

	for _, id := range w.Sessions.LiveIDs() {
		creds := w.Sessions.Bind(id)
		token, err := creds.Token(ctx)
		if err != nil || token == "" {
			continue
		}
		role, err := creds.Role(ctx)
		if err != nil {
			continue
		}
		// Bypass roles never consult the stored set; skip the fetch.
		if authz.IsBypass(role) {
			continue
		}
		if err := w.Auth.SyncPermissions(ctx, creds); err != nil {
			log.Printf("permission sync: session %s: %v", id, err)
		}
	}
}

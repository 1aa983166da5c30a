package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// Interval for cleaning up stale guards
	guardCleanupInterval = 10 * time.Minute

	// How long a guard must be unused before cleanup
	guardStaleThreshold = 10 * time.Minute
)

// SessionGuard makes the triggering operations of one form session mutually
// exclusive. A second operation on a busy session is refused, not queued, the
// same way a form disables its buttons while a request is pending.
//
// Call Stop() during graceful shutdown.
type SessionGuard struct {
	log *logrus.Logger

	// Per-session mutex
	sessions sync.Map // map[uuid.UUID]*mutexWithTimestamp

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// NewSessionGuard starts the background cleanup of idle guards.
func NewSessionGuard(log *logrus.Logger) *SessionGuard {
	g := &SessionGuard{
		log:      log,
		stopChan: make(chan struct{}),
	}

	g.wg.Add(1)
	go g.cleanupLoop()

	return g
}

// TryAcquire claims the session. When ok is false another operation is in
// flight and release is nil.
func (g *SessionGuard) TryAcquire(sessionID uuid.UUID) (release func(), ok bool) {
	mt := g.get(sessionID)
	if !mt.mu.TryLock() {
		return nil, false
	}
	return func() {
		mt.lastUsed.Store(time.Now().Unix())
		mt.mu.Unlock()
	}, true
}

// Stop gracefully shuts down the cleanup goroutine.
// Safe to call multiple times.
func (g *SessionGuard) Stop() {
	if g.stopped.CompareAndSwap(false, true) {
		close(g.stopChan)
		g.wg.Wait()
		g.log.Info("SessionGuard stopped")
	}
}

func (g *SessionGuard) get(sessionID uuid.UUID) *mutexWithTimestamp {
	mt, _ := g.sessions.LoadOrStore(sessionID, &mutexWithTimestamp{})
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

func (g *SessionGuard) cleanupLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(guardCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			g.log.Debug("Session guard cleanup goroutine stopping")
			return
		case <-ticker.C:
			g.cleanupStale(time.Now().Add(-guardStaleThreshold))
		}
	}
}

// cleanupStale removes guards unused since cutoff. lastUsed is checked while
// holding the lock so a guard in use is never dropped.
func (g *SessionGuard) cleanupStale(cutoff time.Time) int {
	cutoffUnix := cutoff.Unix()
	var cleaned int

	g.sessions.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoffUnix {
				g.sessions.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		g.log.Debugf("Cleaned up %d idle session guards", cleaned)
	}
	return cleaned
}

package orchestrator

import (
	"sync"

	"github.com/google/uuid"
)

// runningCasesGuard allows one live run per test case.
type runningCasesGuard struct {
	mu      sync.Mutex
	running map[uuid.UUID]struct{}
}

// TryLock marks id as running. Returns false if it already is.
func (g *runningCasesGuard) TryLock(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[uuid.UUID]struct{})
	}
	if _, ok := g.running[id]; ok {
		return false
	}
	g.running[id] = struct{}{}
	return true
}

// Unlock must follow a successful TryLock.
func (g *runningCasesGuard) Unlock(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, id)
}

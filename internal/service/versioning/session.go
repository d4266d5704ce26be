package versioning

import (
	"sync"
	"time"
)

// RebaseSessionStore tracks in-flight rebase conflicts per branch: which of
// the N conflicts found by a blocked rebase have since been resolved. State
// is process-local and does not survive a restart; the conflicted items stay
// marked in the database, and a restarted process starts a fresh rebase.
// It also carries the per-branch mutex that serializes concurrent rebase
// attempts on the same branch.
type RebaseSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*rebaseSession
	locks    map[string]*sync.Mutex
}

type rebaseSession struct {
	branchID   string
	startedAt  time.Time
	unresolved map[string]bool // content item id -> still unresolved
	total      int
}

// NewRebaseSessionStore creates an empty session store
func NewRebaseSessionStore() *RebaseSessionStore {
	return &RebaseSessionStore{
		sessions: make(map[string]*rebaseSession),
		locks:    make(map[string]*sync.Mutex),
	}
}

// LockBranch acquires the branch's rebase mutex and returns the unlock func.
func (s *RebaseSessionStore) LockBranch(branchID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[branchID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[branchID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Begin opens (or replaces) the branch's session with the given conflict set.
func (s *RebaseSessionStore) Begin(branchID string, conflictItemIDs []string) {
	unresolved := make(map[string]bool, len(conflictItemIDs))
	for _, id := range conflictItemIDs {
		unresolved[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[branchID] = &rebaseSession{
		branchID:   branchID,
		startedAt:  time.Now(),
		unresolved: unresolved,
		total:      len(conflictItemIDs),
	}
}

// Active reports whether the branch has an open session.
func (s *RebaseSessionStore) Active(branchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[branchID]
	return ok
}

// MarkResolved marks one conflict resolved within the branch's session.
// Returns false when no session is open or the item is not tracked.
func (s *RebaseSessionStore) MarkResolved(branchID, contentItemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[branchID]
	if !ok {
		return false
	}
	if _, tracked := session.unresolved[contentItemID]; !tracked {
		return false
	}
	session.unresolved[contentItemID] = false
	return true
}

// Unresolved returns the ids of still-unresolved conflicts and whether a
// session is open at all.
func (s *RebaseSessionStore) Unresolved(branchID string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[branchID]
	if !ok {
		return nil, false
	}

	var ids []string
	for id, open := range session.unresolved {
		if open {
			ids = append(ids, id)
		}
	}
	return ids, true
}

// Tracked returns every conflict item id in the branch's session.
func (s *RebaseSessionStore) Tracked(branchID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[branchID]
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(session.unresolved))
	for id := range session.unresolved {
		ids = append(ids, id)
	}
	return ids
}

// End discards the branch's session.
func (s *RebaseSessionStore) End(branchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, branchID)
}

// Package session owns per-session conversational state. Sessions are
// created on first reference and never evicted; turns for the same session
// are serialized by a per-session lock granted in arrival order, while
// different sessions proceed fully in parallel.
package session

import (
	"context"
	"errors"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ovc-dev/ovc/backend/internal/model/conversation"
)

// ErrSessionIDRequired rejects lookups with an empty session id.
var ErrSessionIDRequired = errors.New("session id is required")

// entry pairs a session with its turn lock. Waiters on a channel are served
// in FIFO order, which gives same-session turns their arrival-order guarantee.
type entry struct {
	turn chan struct{}
	sess *conversation.Session
}

// Store keeps every live session. The backing cache runs with expiration
// disabled and no janitor, so a session lasts for the life of the process.
type Store struct {
	sessions *gocache.Cache
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: gocache.New(gocache.NoExpiration, 0)}
}

// Acquire returns the session for id with its turn lock held, creating the
// session on first reference. The returned release func is idempotent. When
// ctx finishes before the lock is granted, Acquire returns ctx's error and
// the session is untouched. The session must only be mutated while the lock
// is held.
func (s *Store) Acquire(ctx context.Context, id string) (*conversation.Session, func(), error) {
	if id == "" {
		return nil, nil, ErrSessionIDRequired
	}

	e := s.getOrCreate(id)
	select {
	case e.turn <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() { <-e.turn })
		}
		return e.sess, release, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Len reports how many sessions exist.
func (s *Store) Len() int {
	return s.sessions.ItemCount()
}

func (s *Store) getOrCreate(id string) *entry {
	if v, ok := s.sessions.Get(id); ok {
		return v.(*entry)
	}

	e := &entry{turn: make(chan struct{}, 1), sess: conversation.New(id)}
	if err := s.sessions.Add(id, e, gocache.NoExpiration); err != nil {
		// Lost the creation race; the winner's entry is authoritative.
		v, _ := s.sessions.Get(id)
		return v.(*entry)
	}
	return e
}

package ingest

import (
	"sync"

	"github.com/google/uuid"

	"github.com/biopulse/biopulse/internal/platform/aiparse"
)

// lastUpload is the per-account record of the most recently completed
// document, kept only long enough to stitch continuation pages onto
// it.
type lastUpload struct {
	DocumentID   uuid.UUID
	ProfileID    uuid.UUID
	PatientName  string
	LabName      *string
	TestDate     *string
	DocumentType *string
}

// Stage of a pending-name disambiguation.
type Stage string

const (
	StageSelectProfile Stage = "select_profile"
	StageEnterName     Stage = "enter_name"
)

// pendingUpload is a parsed document waiting for the user to say
// whose it is. At most one is outstanding per account.
type pendingUpload struct {
	DocumentID uuid.UUID
	Parsed     *aiparse.Result
	Stage      Stage
}

// keyedMutex serializes processing per account. Entries are reference
// counted so the map does not grow with the account population.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*refLock)}
}

func (k *keyedMutex) Lock(id uuid.UUID) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &refLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

func (k *keyedMutex) Unlock(id uuid.UUID) {
	k.mu.Lock()
	l := k.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}

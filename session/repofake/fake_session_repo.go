package repofake

import (
	"sync"

	"github.com/swiftyco/go-intra-client/session"
)

var _ session.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	current *session.Session
	puts    int
	clears  int
	lock    sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

func (r *FakeSessionRepo) Get() (*session.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.current == nil || !r.current.Complete() {
		return nil, nil
	}
	copied := *r.current
	return &copied, nil
}

func (r *FakeSessionRepo) Put(sess *session.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	copied := *sess
	r.current = &copied
	r.puts++
	return nil
}

func (r *FakeSessionRepo) Clear() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.current = nil
	r.clears++
	return nil
}

// PutCount returns how many times Put has been called.
func (r *FakeSessionRepo) PutCount() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.puts
}

// ClearCount returns how many times Clear has been called.
func (r *FakeSessionRepo) ClearCount() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.clears
}

package locksvc

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trezcool/juku/core"
)

// sortedKeys returns the distinct keys in lock order.
func sortedKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	res := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			res = append(res, k)
		}
	}
	sort.Strings(res)
	return res
}

// releaseOnce makes an unlock func safe to call more than once.
func releaseOnce(release func()) func() {
	var once sync.Once
	return func() { once.Do(release) }
}

// LocalLocker locks keys within the process.
// A key's slot lives only while some caller holds or waits for it.
type LocalLocker struct {
	mutex sync.Mutex
	slots map[string]*localSlot
	wait  time.Duration
}

type localSlot struct {
	ch   chan struct{}
	refs int
}

var _ core.Locker = (*LocalLocker)(nil)

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{slots: make(map[string]*localSlot), wait: wait}
}

func (l *LocalLocker) acquire(key string) *localSlot {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &localSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) forget(key string, s *localSlot) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *LocalLocker) size() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.slots)
}

func (l *LocalLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	keys = sortedKeys(keys)
	held := make([]*localSlot, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].ch
			l.forget(keys[i], held[i])
		}
	}

	for _, key := range keys {
		s := l.acquire(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, s)
		case <-timer.C:
			l.forget(key, s)
			release()
			return nil, core.ErrLockTimeout
		case <-ctx.Done():
			l.forget(key, s)
			release()
			return nil, ctx.Err()
		}
	}

	return releaseOnce(release), nil
}

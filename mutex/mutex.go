package mutex

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis"
	"github.com/pkg/errors"
)

const (
	linkLockExpiration = time.Minute
	jobKeyPattern      = "job:%v"
	linkKeyPattern     = "user:%v:show:%v"
)

var ErrLocked = errors.New("lock is already taken")

type Mutex interface {
	Lock() error
	Unlock() (bool, error)
}

// Builder hands out redis locks shared by every bot instance. Without a
// redis address the locks only cover the current process.
type Builder struct {
	rs    *redsync.Redsync
	local *localLocks
}

func NewBuilder(address string) *Builder {
	if len(address) == 0 {
		return &Builder{local: &localLocks{locks: make(map[string]*localEntry)}}
	}
	client := redis.NewClient(&redis.Options{Addr: address})
	pool := goredis.NewPool(client)
	rs := redsync.New(pool)
	return &Builder{rs: rs}
}

// Job guards a periodic job. Lock fails right away when another run holds it.
func (c *Builder) Job(name string, expiry time.Duration) Mutex {
	key := fmt.Sprintf(jobKeyPattern, name)
	if c.rs == nil {
		return c.local.get(key, true)
	}
	return c.rs.NewMutex(key, redsync.WithExpiry(expiry), redsync.WithTries(1))
}

// Link serializes the check and insert of one user-show link.
func (c *Builder) Link(userId int64, showId string) Mutex {
	key := fmt.Sprintf(linkKeyPattern, userId, showId)
	if c.rs == nil {
		return c.local.get(key, false)
	}
	return c.rs.NewMutex(key, redsync.WithExpiry(linkLockExpiration))
}

// localLocks hands out one channel per key. An entry lives while some
// mutex holds or waits for it and is dropped with the last release.
type localLocks struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	lock chan struct{}
	refs int
}

func (l *localLocks) get(key string, try bool) Mutex {
	return &localMutex{locks: l, key: key, try: try}
}

func (l *localLocks) acquire(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localEntry{lock: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	return entry
}

func (l *localLocks) release(key string, entry *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 && l.locks[key] == entry {
		delete(l.locks, key)
	}
}

type localMutex struct {
	locks *localLocks
	key   string
	try   bool
	held  *localEntry
}

func (m *localMutex) Lock() error {
	entry := m.locks.acquire(m.key)
	if !m.try {
		entry.lock <- struct{}{}
		m.held = entry
		return nil
	}
	select {
	case entry.lock <- struct{}{}:
		m.held = entry
		return nil
	default:
		m.locks.release(m.key, entry)
		return ErrLocked
	}
}

func (m *localMutex) Unlock() (bool, error) {
	entry := m.held
	if entry == nil {
		return false, nil
	}
	m.held = nil
	<-entry.lock
	m.locks.release(m.key, entry)
	return true, nil
}

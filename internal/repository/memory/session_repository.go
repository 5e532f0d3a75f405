package memory

import (
	"time"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps sessions in process memory only. Each read slides
// the expiry forward.
type SessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	cleanup := ttl / 6
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &SessionRepository{
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	session := x.(*store.Session)
	r.cache.Set(sessionID, session, cache.DefaultExpiration)
	return session, true
}

func (r *SessionRepository) Delete(sessionID string) bool {
	_, found := r.cache.Get(sessionID)
	r.cache.Delete(sessionID)
	return found
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

// OnExpired registers a callback for sessions dropped by TTL or deletion.
func (r *SessionRepository) OnExpired(fn func(sessionID string)) {
	r.cache.OnEvicted(func(key string, _ interface{}) {
		fn(key)
	})
}

package casestatus

import (
	"sync"
	"time"

	"ecourts-backend/lib/scrapers/ecourts"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// session is one user's portal session. A scraper client must not be used
// concurrently, every handler holds mu for as long as it talks to the portal.
type session struct {
	mu       sync.Mutex
	client   *ecourts.Client
	state    string
	district string
}

type sessionCache struct {
	cache *expirable.LRU[string, *session]
}

func newSessionCache(size int, ttl time.Duration) sessionCache {
	return sessionCache{
		cache: expirable.NewLRU[string, *session](size, nil, ttl),
	}
}

func (s sessionCache) Add(sess *session) string {
	id := uuid.NewString()
	s.cache.Add(id, sess)
	return id
}

func (s sessionCache) Get(id string) (*session, bool) {
	if id == "" {
		return nil, false
	}
	return s.cache.Get(id)
}

func (s sessionCache) Remove(id string) {
	s.cache.Remove(id)
}

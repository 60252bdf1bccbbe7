package azure

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Credential is the process-wide token/endpoint pair for the speech backend.
type Credential struct {
	Region    string
	Token     string
	ExpiresAt time.Time
}

// CredentialCache owns the single live Credential and refreshes it on demand.
// Concurrent callers hitting an expired cache share one refresh; every waiter
// of a failed refresh sees the same error and the cache stays empty.
type CredentialCache struct {
	mu    sync.Mutex
	group singleflight.Group
	cred  *Credential
	skew  time.Duration
	issue func(ctx context.Context) (*Credential, error)
}

func NewCredentialCache(skew time.Duration, issue func(ctx context.Context) (*Credential, error)) *CredentialCache {
	return &CredentialCache{skew: skew, issue: issue}
}

// Get returns a credential valid for at least the configured skew. A cached,
// non-expired credential is returned without I/O.
func (c *CredentialCache) Get(ctx context.Context) (*Credential, error) {
	if cred := c.cached(); cred != nil {
		return cred, nil
	}

	v, err, _ := c.group.Do("credential", func() (interface{}, error) {
		// A refresh may have landed between the expiry check and joining
		// the flight.
		if cred := c.cached(); cred != nil {
			return cred, nil
		}
		cred, err := c.issue(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cred = cred
		c.mu.Unlock()
		return cred, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Credential), nil
}

// Invalidate clears the cached credential. It does not cancel an in-flight
// refresh; when that refresh lands its result is still installed.
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	c.cred = nil
	c.mu.Unlock()
}

func (c *CredentialCache) cached() *Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cred != nil && time.Now().Before(c.cred.ExpiresAt.Add(-c.skew)) {
		return c.cred
	}
	return nil
}

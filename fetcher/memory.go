package fetcher

import (
	"sync"
	"time"
)

// verdict is one domain's escalation decision.
type verdict struct {
	needsBrowser bool
	decidedAt    time.Time
}

// DomainMemory records which domains defeated the plain HTTP engine, so the
// next fetch of such a domain goes straight to the browser instead of
// repeating a doomed HTTP attempt. Verdicts age out after ttl because sites
// change: a CAPTCHA wall today may be gone next week.
type DomainMemory struct {
	mu       sync.Mutex
	verdicts map[string]verdict
	ttl      time.Duration
	done     chan struct{}
}

// NewDomainMemory creates a DomainMemory whose verdicts expire after ttl.
// A background goroutine prunes expired verdicts so domains fetched once and
// never again do not pin memory.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	dm := &DomainMemory{
		verdicts: make(map[string]verdict),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go dm.pruneLoop()
	return dm
}

// BrowserRequired reports whether the domain is known to require the browser
// engine. Unknown and expired domains report false; expired verdicts are
// dropped on the spot.
func (dm *DomainMemory) BrowserRequired(domain string) bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	v, ok := dm.verdicts[domain]
	if !ok {
		return false
	}
	if time.Since(v.decidedAt) > dm.ttl {
		delete(dm.verdicts, domain)
		return false
	}
	return v.needsBrowser
}

// Record stores the escalation verdict for a domain after a successful
// fetch. Recording restarts the ttl clock.
func (dm *DomainMemory) Record(domain string, needsBrowser bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.verdicts[domain] = verdict{
		needsBrowser: needsBrowser,
		decidedAt:    time.Now(),
	}
}

// Forget drops a domain's verdict, used when its remembered engine stops
// working and the full escalation path should run again.
func (dm *DomainMemory) Forget(domain string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.verdicts, domain)
}

// Len returns the number of live verdicts.
func (dm *DomainMemory) Len() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.verdicts)
}

// Stop terminates the background pruner.
func (dm *DomainMemory) Stop() {
	close(dm.done)
}

func (dm *DomainMemory) pruneLoop() {
	interval := dm.ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			dm.mu.Lock()
			for domain, v := range dm.verdicts {
				if time.Since(v.decidedAt) > dm.ttl {
					delete(dm.verdicts, domain)
				}
			}
			dm.mu.Unlock()
		}
	}
}

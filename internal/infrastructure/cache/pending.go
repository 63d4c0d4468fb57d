package cache

import "sync"

// maxPendingKeys bounds the invalidation log; past it the next reconnect
// flushes the whole remote namespace.
const maxPendingKeys = 1024

// pendingInvalidations records the writes and clears that only reached the
// fallback map. The remote copies of those keys are stale and must be
// removed before the remote is trusted again.
type pendingInvalidations struct {
	mu       sync.Mutex
	keys     map[string]struct{}
	patterns map[string]struct{}
	all      bool
}

func newPendingInvalidations() *pendingInvalidations {
	return &pendingInvalidations{keys: map[string]struct{}{}, patterns: map[string]struct{}{}}
}

// add records a key, or a Clear pattern when isPattern is set. Callers hold mu.
func (p *pendingInvalidations) add(entry string, isPattern bool) {
	if p.all {
		return
	}
	if isPattern && literalPart(entry) == "" {
		p.markAll()
		return
	}
	target := p.keys
	if isPattern {
		target = p.patterns
	}
	target[entry] = struct{}{}
	if len(p.keys)+len(p.patterns) > maxPendingKeys {
		p.markAll()
	}
}

func (p *pendingInvalidations) markAll() {
	p.all = true
	p.keys = map[string]struct{}{}
	p.patterns = map[string]struct{}{}
}

func (p *pendingInvalidations) empty() bool {
	return !p.all && len(p.keys) == 0 && len(p.patterns) == 0
}

func (p *pendingInvalidations) reset() {
	p.all = false
	p.keys = map[string]struct{}{}
	p.patterns = map[string]struct{}{}
}

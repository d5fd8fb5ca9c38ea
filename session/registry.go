package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lex00/wetwire-lsp-go/jsonrpc"
)

// pendingRequest is an in-flight inbound request.
type pendingRequest struct {
	method  string
	cancel  context.CancelFunc
	started time.Time
}

// registry tracks in-flight requests by id so they can be cancelled.
type registry struct {
	mu      sync.Mutex
	pending map[jsonrpc.ID]*pendingRequest
}

func newRegistry() *registry {
	return &registry{pending: make(map[jsonrpc.ID]*pendingRequest)}
}

// Register records a request. It returns false if id is already in flight.
func (r *registry) Register(id jsonrpc.ID, method string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[id]; exists {
		return false
	}
	r.pending[id] = &pendingRequest{method: method, cancel: cancel, started: time.Now()}
	return true
}

// Cancel triggers the cancel func of id. Unknown ids are ignored.
func (r *registry) Cancel(id jsonrpc.ID) bool {
	r.mu.Lock()
	req, ok := r.pending[id]
	r.mu.Unlock()

	if !ok {
		return false
	}
	req.cancel()
	return true
}

// Remove drops id and releases its context.
func (r *registry) Remove(id jsonrpc.ID) {
	r.mu.Lock()
	req, ok := r.pending[id]
	delete(r.pending, id)
	r.mu.Unlock()

	if ok {
		req.cancel()
	}
}

// CancelAll cancels every in-flight request and returns how many there were.
// Entries stay registered until their goroutines remove them.
func (r *registry) CancelAll() int {
	r.mu.Lock()
	reqs := make([]*pendingRequest, 0, len(r.pending))
	for _, req := range r.pending {
		reqs = append(reqs, req)
	}
	r.mu.Unlock()

	for _, req := range reqs {
		req.cancel()
	}
	return len(reqs)
}

// Len returns the number of in-flight requests.
func (r *registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// IDs returns the in-flight ids in sorted order.
func (r *registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	return ids
}

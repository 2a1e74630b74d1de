// Package memory provides an in-process Notifier. It is the default backend
// when AMQP is not configured and the double the service tests assert on.
package memory

import (
	"context"
	"sync"

	"hisobchi/internal/notify"
)

type Recorder struct {
	mu       sync.Mutex
	requests []notify.ApprovalRequest
	notices  []notify.DecisionNotice
}

func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) PublishApprovalRequest(_ context.Context, req notify.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return nil
}

func (r *Recorder) PublishDecisionNotice(_ context.Context, notice notify.DecisionNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
	return nil
}

// ApprovalRequests returns a copy of everything published so far.
func (r *Recorder) ApprovalRequests() []notify.ApprovalRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.ApprovalRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

// DecisionNotices returns a copy of everything published so far.
func (r *Recorder) DecisionNotices() []notify.DecisionNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.DecisionNotice, len(r.notices))
	copy(out, r.notices)
	return out
}

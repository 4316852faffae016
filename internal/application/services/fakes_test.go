package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/decision"
	"github.com/AtRiskMedia/intentstack/internal/domain/events"
	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/ai"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/security"
)

var errStorageDown = errors.New("storage down")

type memPersonaRepo struct {
	mu     sync.Mutex
	scores map[string]map[persona.Type]int
	err    error
}

func newMemPersonaRepo() *memPersonaRepo {
	return &memPersonaRepo{scores: make(map[string]map[persona.Type]int)}
}

func (r *memPersonaRepo) AddScore(_ context.Context, userID string, t persona.Type, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.scores[userID] == nil {
		r.scores[userID] = make(map[persona.Type]int)
	}
	r.scores[userID][t] += delta
	return nil
}

func (r *memPersonaRepo) GetScores(_ context.Context, userID string) (map[persona.Type]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[persona.Type]int)
	for t, s := range r.scores[userID] {
		out[t] = s
	}
	return out, nil
}

func (r *memPersonaRepo) Reset(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	delete(r.scores, userID)
	return nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events []*events.InteractionEvent
	err    error
}

func (r *memEventRepo) Store(_ context.Context, e *events.InteractionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if e.ID == "" {
		e.ID = security.GenerateULID()
	}
	r.events = append(r.events, e)
	return nil
}

func (r *memEventRepo) FindRecentByUser(_ context.Context, userID string, since time.Time) ([]*events.InteractionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*events.InteractionEvent
	for _, e := range r.events {
		if e.UserIdentifier == userID && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *memEventRepo) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	var n int64
	for _, e := range r.events {
		if e.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return n, nil
}

type memLeadRepo struct {
	mu       sync.Mutex
	leads    []*leads.Lead
	err      error
	notified []string
}

func (r *memLeadRepo) Store(_ context.Context, l *leads.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if l.ID == "" {
		l.ID = security.GenerateULID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	r.leads = append(r.leads, l)
	return nil
}

func (r *memLeadRepo) FindByID(_ context.Context, id string) (*leads.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, nil
}

func (r *memLeadRepo) FindByUser(_ context.Context, userID string) ([]*leads.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*leads.Lead
	for _, l := range r.leads {
		if l.UserIdentifier == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLeadRepo) List(_ context.Context, status leads.Status, limit int) ([]*leads.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*leads.Lead
	for _, l := range r.leads {
		if status == "" || l.Status == status {
			out = append(out, l)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memLeadRepo) MarkNotified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, id)
	return nil
}

type memActionRepo struct {
	mu      sync.Mutex
	entries []*decision.ActionLog
	err     error
}

func (r *memActionRepo) Record(_ context.Context, entry *decision.ActionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memActionRepo) FindByUser(_ context.Context, userID string, _ int) ([]*decision.ActionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*decision.ActionLog
	for _, e := range r.entries {
		if e.UserIdentifier == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memConversationRepo struct {
	mu       sync.Mutex
	messages []*decision.Message
	err      error
}

func (r *memConversationRepo) Append(_ context.Context, m *decision.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, m)
	return nil
}

func (r *memConversationRepo) Recent(_ context.Context, userID string, limit int) ([]*decision.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*decision.Message
	for _, m := range r.messages {
		if m.UserIdentifier == userID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type memBlockRepo struct {
	mu      sync.Mutex
	blocked map[string]string
	err     error
}

func newMemBlockRepo() *memBlockRepo {
	return &memBlockRepo{blocked: make(map[string]string)}
}

func (r *memBlockRepo) IsBlocked(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.blocked[userID]
	return ok, nil
}

func (r *memBlockRepo) Block(_ context.Context, userID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocked[userID] = reason
	return nil
}

func (r *memBlockRepo) Unblock(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blocked, userID)
	return nil
}

type fakeInvoker struct {
	mu      sync.Mutex
	result  *ai.InvokeResult
	prompts []string
	opts    []ai.InvokeOptions
	hook    func(ctx context.Context)
}

func (f *fakeInvoker) Invoke(ctx context.Context, prompt string, opts ai.InvokeOptions) *ai.InvokeResult {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}
	return f.result
}

func (f *fakeInvoker) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent map[string][]messaging.ActionMessage
}

func (d *fakeDispatcher) Dispatch(userID string, msg messaging.ActionMessage) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sent == nil {
		d.sent = make(map[string][]messaging.ActionMessage)
	}
	d.sent[userID] = append(d.sent[userID], msg)
	return 1
}

type fakeTranscriber struct {
	text string
	err  error
}

func (t *fakeTranscriber) Transcribe(_ context.Context, _, _ string) (string, error) {
	return t.text, t.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*leads.Lead
	err  error
}

func (n *fakeNotifier) NotifyLead(_ context.Context, l *leads.Lead) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, l)
	return nil
}

type staticSite struct {
	capabilities []string
	site         map[string]any
}

func (s staticSite) Capabilities() []string { return s.capabilities }
func (s staticSite) Site() map[string]any   { return s.site }

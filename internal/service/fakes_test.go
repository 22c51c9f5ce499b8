package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"earnflow/internal/model"
	"earnflow/internal/repository"
)

type fakeOpportunityRepo struct {
	items []*model.Opportunity
	err   error
}

func (r *fakeOpportunityRepo) Upsert(_ context.Context, o *model.Opportunity) error {
	for i, it := range r.items {
		if it.ID == o.ID {
			r.items[i] = o
			return nil
		}
	}
	r.items = append(r.items, o)
	return nil
}

func (r *fakeOpportunityRepo) GetByID(_ context.Context, id string) (*model.Opportunity, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, it := range r.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, nil
}

func (r *fakeOpportunityRepo) List(_ context.Context, kind model.OpportunityKind) ([]*model.Opportunity, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*model.Opportunity
	for _, it := range r.items {
		if kind == "" || it.Kind == kind {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeOpportunityRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.items)), r.err
}

type fakeSubmissionRepo struct {
	mu    sync.Mutex
	items map[string]*model.Submission
	err   error
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{items: make(map[string]*model.Submission)}
}

func (r *fakeSubmissionRepo) Create(_ context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.items[s.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, it := range r.items {
		if it.UserID == s.UserID && it.OpportunityID == s.OpportunityID {
			return repository.ErrDuplicate
		}
	}
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id], nil
}

func (r *fakeSubmissionRepo) GetByUser(_ context.Context, userID string) ([]*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Submission
	for _, s := range r.items {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (r *fakeSubmissionRepo) GetByUserOpportunity(_ context.Context, userID, opportunityID string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.UserID == userID && it.OpportunityID == opportunityID {
			return it, nil
		}
	}
	return nil, nil
}

func (r *fakeSubmissionRepo) GetByStatus(_ context.Context, status model.SubmissionStatus, limit int) ([]*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Submission
	for _, it := range r.items {
		if it.Status == status {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeSubmissionRepo) UpdateStatus(_ context.Context, id string, status model.SubmissionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	it, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	it.Status = status
	now := time.Now()
	it.ReviewedAt = &now
	return nil
}

type fakeTransactionRepo struct {
	mu    sync.Mutex
	items []*model.Transaction
	err   error
}

func (r *fakeTransactionRepo) Create(_ context.Context, tx *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, it := range r.items {
		if it.ID == tx.ID {
			return repository.ErrDuplicate
		}
	}
	cp := *tx
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeTransactionRepo) GetByUser(_ context.Context, userID string) ([]*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Transaction
	for _, it := range r.items {
		if it.UserID == userID {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTransactionRepo) UpdateStatus(_ context.Context, id string, status model.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, it := range r.items {
		if it.ID == id {
			it.Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeTransactionRepo) get(id string) *model.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ID == id {
			cp := *it
			return &cp
		}
	}
	return nil
}

type fakeCompletionCache struct {
	mu   sync.Mutex
	sets map[string]map[string]bool
	err  error
}

func newFakeCompletionCache() *fakeCompletionCache {
	return &fakeCompletionCache{sets: make(map[string]map[string]bool)}
}

func (c *fakeCompletionCache) MarkCompleted(_ context.Context, userID, opportunityID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.sets[userID] == nil {
		c.sets[userID] = make(map[string]bool)
	}
	c.sets[userID][opportunityID] = true
	return nil
}

func (c *fakeCompletionCache) IsCompleted(_ context.Context, userID, opportunityID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[userID][opportunityID], nil
}

func (c *fakeCompletionCache) Count(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.sets[userID])), nil
}

func (c *fakeCompletionCache) List(_ context.Context, userID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for id := range c.sets[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

type fakeLeaderboard struct {
	mu      sync.Mutex
	totals  map[string]float64
	applied map[string]bool
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{totals: make(map[string]float64), applied: make(map[string]bool)}
}

func (l *fakeLeaderboard) AddEarning(_ context.Context, earningID, userID string, amount float64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.applied[earningID] {
		return false, nil
	}
	l.applied[earningID] = true
	l.totals[userID] += amount
	return true, nil
}

func (l *fakeLeaderboard) RevokeEarning(_ context.Context, earningID, userID string, amount float64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.applied[earningID] {
		return false, nil
	}
	delete(l.applied, earningID)
	l.totals[userID] -= amount
	return true, nil
}

func (l *fakeLeaderboard) GetTop(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.LeaderboardEntry
	for id, total := range l.totals {
		out = append(out, model.LeaderboardEntry{UserID: id, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (l *fakeLeaderboard) GetRank(ctx context.Context, userID string) (int64, error) {
	top, _ := l.GetTop(ctx, 1000)
	for _, e := range top {
		if e.UserID == userID {
			return int64(e.Rank), nil
		}
	}
	return -1, nil
}

type broadcastMsg struct {
	userID  string
	msgType string
	payload interface{}
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []broadcastMsg
}

func (b *fakeBroadcaster) BroadcastToUser(userID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, broadcastMsg{userID: userID, msgType: msgType, payload: payload})
}

func (b *fakeBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, m := range b.msgs {
		out = append(out, m.msgType)
	}
	return out
}

type fakeProfileRepo struct {
	mu    sync.Mutex
	items map[string]*model.Profile
	err   error
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{items: make(map[string]*model.Profile)}
}

func (r *fakeProfileRepo) Get(_ context.Context, userID string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.copyOf(r.items[userID]), nil
}

func (r *fakeProfileRepo) Create(_ context.Context, p *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.items[p.UserID]; ok {
		return repository.ErrDuplicate
	}
	for _, it := range r.items {
		if it.ReferralCode == p.ReferralCode {
			return repository.ErrDuplicate
		}
	}
	r.items[p.UserID] = r.copyOf(p)
	return nil
}

func (r *fakeProfileRepo) Replace(_ context.Context, p *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.UserID]; !ok {
		return repository.ErrNotFound
	}
	r.items[p.UserID] = r.copyOf(p)
	return nil
}

func (r *fakeProfileRepo) GetByReferralCode(_ context.Context, code string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ReferralCode == code {
			return r.copyOf(it), nil
		}
	}
	return nil, nil
}

func (r *fakeProfileRepo) GetByReferrer(_ context.Context, referrerID string) ([]*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Profile
	for _, it := range r.items {
		if it.ReferredBy == referrerID {
			out = append(out, r.copyOf(it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReferredAt.After(*out[j].ReferredAt) })
	return out, nil
}

func (r *fakeProfileRepo) SetReferrer(_ context.Context, userID, referrerID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[userID]
	if !ok || it.ReferredBy != "" {
		return false, nil
	}
	it.ReferredBy = referrerID
	it.ReferredAt = &at
	return true, nil
}

func (r *fakeProfileRepo) copyOf(p *model.Profile) *model.Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.PaymentMethods = append([]model.PaymentMethod(nil), p.PaymentMethods...)
	return &cp
}

package submission

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists submissions. Create must enforce at most one submission per
// user and activity; MarkReviewed must apply the PENDING transition at most
// once even under racing reviewers.
type Store interface {
	Create(ctx context.Context, sub Submission) error
	Get(ctx context.Context, id string) (Submission, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]Submission, error)
	ListByActivity(ctx context.Context, activityID string, limit int) ([]Submission, error)
	ListForJudge(ctx context.Context, judgeUserID string, limit int) ([]Submission, error)
	MarkReviewed(ctx context.Context, id, reviewedBy string, status Status, awardedGems int64, reviewedAt time.Time) (Submission, error)
	RevertReview(ctx context.Context, id string) error
	Exists(ctx context.Context, userID, activityID string) (bool, error)
	StatsForJudge(ctx context.Context, judgeUserID string) (Stats, error)
}

// AtomicReviewer is implemented by stores that can apply the review
// transition and the reward credit as one atomic step. When the store
// supports it, the service prefers this path so a failed credit can never
// strand an approved-but-unpaid submission.
type AtomicReviewer interface {
	ReviewAndCredit(ctx context.Context, id, reviewedBy string, status Status, awardedGems int64, reviewedAt time.Time, idemKey string) (Submission, error)
}

// InMemory implements Store with a single mutex, making the uniqueness check
// and the review transition atomic.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[string]Submission
	byPair map[string]string // userID+"\x00"+activityID -> submission id
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[string]Submission),
		byPair: make(map[string]string),
	}
}

func pairKey(userID, activityID string) string {
	return userID + "\x00" + activityID
}

func (s *InMemory) Create(ctx context.Context, sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(sub.UserID, sub.ActivityID)
	if _, ok := s.byPair[key]; ok {
		return ErrDuplicate
	}
	s.byID[sub.ID] = sub
	s.byPair[key] = sub.ID
	return nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.byID[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return sub, nil
}

func (s *InMemory) ListByStatus(ctx context.Context, status Status, limit int) ([]Submission, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Submission, 0)
	for _, sub := range s.byID {
		if sub.Status == status {
			out = append(out, sub)
		}
	}
	sortByID(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) ListByActivity(ctx context.Context, activityID string, limit int) ([]Submission, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Submission, 0)
	for _, sub := range s.byID {
		if sub.ActivityID == activityID {
			out = append(out, sub)
		}
	}
	sortByID(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) ListForJudge(ctx context.Context, judgeUserID string, limit int) ([]Submission, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Submission, 0)
	for _, sub := range s.byID {
		if sub.JudgeUserID == judgeUserID {
			out = append(out, sub)
		}
	}
	sortByID(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkReviewed applies the review transition only while the submission is
// still pending. A lost race returns ErrAlreadyReviewed.
func (s *InMemory) MarkReviewed(ctx context.Context, id, reviewedBy string, status Status, awardedGems int64, reviewedAt time.Time) (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.byID[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	if sub.Status != StatusPending {
		return Submission{}, ErrAlreadyReviewed
	}
	sub.Status = status
	sub.ReviewedBy = reviewedBy
	sub.ReviewedAt = &reviewedAt
	sub.AwardedGems = awardedGems
	s.byID[id] = sub
	return sub, nil
}

// RevertReview puts a reviewed submission back into the pending state. The
// service uses it to undo the transition when the reward credit fails.
func (s *InMemory) RevertReview(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	sub.Status = StatusPending
	sub.ReviewedBy = ""
	sub.ReviewedAt = nil
	sub.AwardedGems = 0
	s.byID[id] = sub
	return nil
}

func (s *InMemory) Exists(ctx context.Context, userID, activityID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byPair[pairKey(userID, activityID)]
	return ok, nil
}

func (s *InMemory) StatsForJudge(ctx context.Context, judgeUserID string) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	for _, sub := range s.byID {
		if sub.JudgeUserID != judgeUserID {
			continue
		}
		switch sub.Status {
		case StatusPending:
			st.Pending++
		case StatusApproved:
			st.Approved++
		case StatusRejected:
			st.Rejected++
		}
	}
	return st, nil
}

func sortByID(subs []Submission) {
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
}

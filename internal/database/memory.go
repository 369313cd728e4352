package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"feedback-bot/internal/database/models"
)

// MemoryStore is a process-local Store. It backs STORAGE_BACKEND=memory and
// the tests of the packages built on top of the repositories.
type MemoryStore struct {
	mu            sync.Mutex
	feedback      map[int64]*models.Feedback
	rooms         map[int64]*models.Room
	subscriptions map[int64]*models.Subscription
	toggles       map[string]bool
	actions       []models.ActionLog
	nextFeedback  int64
	nextSub       int64
	now           func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		feedback:      make(map[int64]*models.Feedback),
		rooms:         make(map[int64]*models.Room),
		subscriptions: make(map[int64]*models.Subscription),
		toggles:       make(map[string]bool),
		now:           time.Now,
	}
}

func (s *MemoryStore) CreateFeedback(_ context.Context, item *models.Feedback) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextFeedback++
	item.ID = s.nextFeedback
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	item.UpdatedAt = item.CreatedAt
	if item.Status == "" {
		item.Status = models.StatusPending
	}
	stored := *item
	s.feedback[item.ID] = &stored
	return item.ID, nil
}

func (s *MemoryStore) SetCardRef(_ context.Context, id int64, ref models.CardRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.feedback[id]
	if !ok {
		return ErrFeedbackNotFound
	}
	if !item.Card.IsZero() {
		return ErrCardRefAlreadySet
	}
	item.Card = ref
	item.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) findByCard(ref models.CardRef) *models.Feedback {
	for _, item := range s.feedback {
		if item.Card == ref {
			return item
		}
	}
	return nil
}

func (s *MemoryStore) DeleteFeedback(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.feedback, id)
	return nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, ref models.CardRef, status models.FeedbackStatus, actorID int64, actorName string) (bool, error) {
	return s.CommitClaimed(ctx, ref, "", status, actorID, actorName)
}

func (s *MemoryStore) ClaimFeedback(_ context.Context, ref models.CardRef, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByCard(ref)
	if item == nil || item.Status != models.StatusPending || item.ClaimToken != "" {
		return false, nil
	}
	item.ClaimToken = token
	item.UpdatedAt = s.now()
	return true, nil
}

func (s *MemoryStore) ReleaseClaim(_ context.Context, ref models.CardRef, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByCard(ref); item != nil && item.ClaimToken == token {
		item.ClaimToken = ""
	}
	return nil
}

func (s *MemoryStore) CommitClaimed(_ context.Context, ref models.CardRef, token string, status models.FeedbackStatus, actorID int64, actorName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByCard(ref)
	if item == nil || item.Status != models.StatusPending || item.ClaimToken != token {
		return false, nil
	}
	item.Status = status
	item.ClaimToken = ""
	item.ResolvedBy = actorID
	item.ResolverName = actorName
	item.UpdatedAt = s.now()
	return true, nil
}

func (s *MemoryStore) GetByCardRef(_ context.Context, ref models.CardRef) (*models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByCard(ref)
	if item == nil {
		return nil, ErrFeedbackNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *MemoryStore) ListPending(_ context.Context) ([]models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := []models.Feedback{}
	for _, item := range s.feedback {
		if item.Status == models.StatusPending {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *MemoryStore) Stats(_ context.Context) (*models.FeedbackStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	stats := &models.FeedbackStats{}
	for _, item := range s.feedback {
		stats.Total++
		switch item.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusResolved:
			stats.Resolved++
		case models.StatusRejected:
			stats.Rejected++
		}
		if !item.CreatedAt.Before(startOfDay) {
			stats.Today++
		}
		if item.Kind == models.KindMovieRequest {
			stats.Requests++
		}
	}
	return stats, nil
}

func (s *MemoryStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedback = make(map[int64]*models.Feedback)
	s.rooms = make(map[int64]*models.Room)
	return nil
}

func (s *MemoryStore) UpsertRoom(_ context.Context, room models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.rooms[room.RoomID]; ok {
		existing.Name = room.Name
		existing.IsAdminRoom = room.IsAdminRoom
		existing.UpdatedAt = now
		return nil
	}
	room.CreatedAt = now
	room.UpdatedAt = now
	s.rooms[room.RoomID] = &room
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, roomID int64) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	cp := *room
	return &cp, nil
}

func (s *MemoryStore) ListRooms(_ context.Context, role models.RoomRole) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := []models.Room{}
	for _, room := range s.rooms {
		if role == models.RoleNone || room.Role() == role {
			rooms = append(rooms, *room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomID < rooms[j].RoomID })
	return rooms, nil
}

func (s *MemoryStore) RemoveRoom(_ context.Context, roomID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, roomID)
	return nil
}

func (s *MemoryStore) DemoteAdminRooms(_ context.Context, except int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, room := range s.rooms {
		if id != except && room.IsAdminRoom {
			room.IsAdminRoom = false
			room.UpdatedAt = s.now()
		}
	}
	return nil
}

func (s *MemoryStore) GetToggle(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled, ok := s.toggles[name]
	if !ok {
		return true, nil
	}
	return enabled, nil
}

func (s *MemoryStore) SetToggle(_ context.Context, name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.toggles[name] = enabled
	return nil
}

func (s *MemoryStore) CreateSubscription(_ context.Context, sub *models.Subscription) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	sub.ID = s.nextSub
	if sub.Status == "" {
		sub.Status = models.SubscriptionPending
	}
	sub.CreatedAt = s.now()
	sub.UpdatedAt = sub.CreatedAt
	stored := *sub
	s.subscriptions[sub.ID] = &stored
	return sub.ID, nil
}

func (s *MemoryStore) UpdateSubscriptionStatus(_ context.Context, id int64, status models.SubscriptionStatus, reviewerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[id]
	if !ok || sub.Status != models.SubscriptionPending {
		return false, nil
	}
	sub.Status = status
	sub.ReviewedBy = reviewerID
	sub.UpdatedAt = s.now()
	return true, nil
}

// Subscription returns a copy of a stored subscription.
func (s *MemoryStore) Subscription(id int64) (models.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[id]
	if !ok {
		return models.Subscription{}, false
	}
	return *sub, true
}

func (s *MemoryStore) LogAction(_ context.Context, entry models.ActionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Time.IsZero() {
		entry.Time = s.now()
	}
	s.actions = append(s.actions, entry)
	return nil
}

// Actions returns the audit entries recorded so far.
func (s *MemoryStore) Actions() []models.ActionLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.ActionLog(nil), s.actions...)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*MongoStore)(nil)
)

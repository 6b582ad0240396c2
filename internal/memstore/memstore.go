// Package memstore is an in-memory stand-in for the MySQL repositories, used
// by service and transport tests. It keeps the same conditional-update rules
// the SQL enforces so state machine scenarios behave like production.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/models"
)

// Store holds every table. Set Err to make each call fail with it, e.g. an
// apperr.Unavailable to simulate a missing store.
type Store struct {
	mu sync.Mutex

	Now func() time.Time
	Err error

	nextID        int64
	users         map[int64]models.User
	subscriptions map[int64]models.Subscription
	payments      map[int64]models.PaymentRequest
	posts         map[int64]models.ContentPost
	templates     map[int64]models.ContentTemplate

	// Activations counts subscription upserts done by Decide.
	Activations int
	// Touches counts last-signed-in updates.
	Touches int
}

func New() *Store {
	return &Store{
		Now:           func() time.Time { return time.Now().UTC() },
		users:         map[int64]models.User{},
		subscriptions: map[int64]models.Subscription{},
		payments:      map[int64]models.PaymentRequest{},
		posts:         map[int64]models.ContentPost{},
		templates:     map[int64]models.ContentTemplate{},
	}
}

func (s *Store) Users() *Users                 { return &Users{s} }
func (s *Store) Subscriptions() *Subscriptions { return &Subscriptions{s} }
func (s *Store) Payments() *Payments           { return &Payments{s} }
func (s *Store) Content() *Content             { return &Content{s} }
func (s *Store) Templates() *Templates         { return &Templates{s} }

// PaymentCount returns how many payment requests exist.
func (s *Store) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

// Subscription returns the stored row for userID, if any.
func (s *Store) Subscription(userID int64) (models.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[userID]
	return sub, ok
}

// Payment returns the stored request, if any.
func (s *Store) Payment(id int64) (models.PaymentRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	return p, ok
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) upsertSubscription(sub *models.Subscription) {
	now := s.Now()
	stored, ok := s.subscriptions[sub.UserID]
	if !ok {
		stored = models.Subscription{ID: s.id(), UserID: sub.UserID, CreatedAt: now}
	}
	stored.Plan = sub.Plan
	stored.Status = sub.Status
	stored.CurrentPeriodStart = sub.CurrentPeriodStart
	stored.CurrentPeriodEnd = sub.CurrentPeriodEnd
	stored.UpdatedAt = now
	s.subscriptions[sub.UserID] = stored
}

type Users struct{ s *Store }

func (u *Users) FindByOpenID(_ context.Context, openID string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.Err != nil {
		return nil, u.s.Err
	}
	for _, user := range u.s.users {
		if user.OpenID == openID {
			return &user, nil
		}
	}
	return nil, nil
}

func (u *Users) Upsert(_ context.Context, user *models.User, promote bool) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.Err != nil {
		return nil, u.s.Err
	}
	now := u.s.Now()
	for id, existing := range u.s.users {
		if existing.OpenID != user.OpenID {
			continue
		}
		if user.Name != "" {
			existing.Name = user.Name
		}
		if user.Email != "" {
			existing.Email = user.Email
		}
		if promote {
			existing.Role = models.RoleAdmin
		}
		existing.LastSignedIn = user.LastSignedIn
		existing.UpdatedAt = now
		u.s.users[id] = existing
		return &existing, nil
	}
	created := *user
	created.ID = u.s.id()
	created.Role = models.RoleUser
	if promote {
		created.Role = models.RoleAdmin
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	u.s.users[created.ID] = created
	return &created, nil
}

func (u *Users) TouchLastSignedIn(_ context.Context, userID int64, at time.Time) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.Err != nil {
		return u.s.Err
	}
	user, ok := u.s.users[userID]
	if !ok {
		return nil
	}
	user.LastSignedIn = at
	u.s.users[userID] = user
	u.s.Touches++
	return nil
}

type Subscriptions struct{ s *Store }

func (r *Subscriptions) FindByUser(_ context.Context, userID int64) (*models.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	sub, ok := r.s.subscriptions[userID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (r *Subscriptions) Upsert(_ context.Context, sub *models.Subscription) (*models.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	r.s.upsertSubscription(sub)
	stored := r.s.subscriptions[sub.UserID]
	return &stored, nil
}

type Payments struct{ s *Store }

func (r *Payments) Create(_ context.Context, req *models.PaymentRequest) (*models.PaymentRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	created := *req
	created.ID = r.s.id()
	created.CreatedAt = r.s.Now()
	created.UpdatedAt = created.CreatedAt
	r.s.payments[created.ID] = created
	return &created, nil
}

func (r *Payments) FindByID(_ context.Context, id int64) (*models.PaymentRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *Payments) ListByUser(_ context.Context, userID int64) ([]models.PaymentRequest, error) {
	return r.list(func(p models.PaymentRequest) bool { return p.UserID == userID })
}

func (r *Payments) ListByStatus(_ context.Context, status models.PaymentStatus) ([]models.PaymentRequest, error) {
	return r.list(func(p models.PaymentRequest) bool { return p.Status == status })
}

func (r *Payments) list(keep func(models.PaymentRequest) bool) ([]models.PaymentRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := []models.PaymentRequest{}
	for _, p := range r.s.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.After(out[j].RequestedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *Payments) AttachProof(_ context.Context, id, userID int64, proof, notes *string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	p, ok := r.s.payments[id]
	if !ok || p.UserID != userID || p.Status != models.PaymentPending {
		return false, nil
	}
	if proof != nil {
		v := *proof
		p.PaymentProof = &v
	}
	if notes != nil {
		v := *notes
		p.Notes = &v
	}
	p.UpdatedAt = r.s.Now()
	r.s.payments[id] = p
	return true, nil
}

func (r *Payments) Decide(_ context.Context, id int64, status models.PaymentStatus, approvedAt *time.Time, activation *models.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	p, ok := r.s.payments[id]
	if !ok || p.Status != models.PaymentPending {
		return apperr.New(apperr.InvalidState, "payment request is no longer pending")
	}
	p.Status = status
	p.ApprovedAt = approvedAt
	p.UpdatedAt = r.s.Now()
	r.s.payments[id] = p
	if activation != nil {
		r.s.upsertSubscription(activation)
		r.s.Activations++
	}
	return nil
}

type Content struct{ s *Store }

func (r *Content) Create(_ context.Context, post *models.ContentPost) (*models.ContentPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	created := *post
	created.ID = r.s.id()
	created.CreatedAt = r.s.Now()
	created.UpdatedAt = created.CreatedAt
	r.s.posts[created.ID] = created
	return &created, nil
}

func (r *Content) FindByID(_ context.Context, id int64) (*models.ContentPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	post, ok := r.s.posts[id]
	if !ok {
		return nil, nil
	}
	return &post, nil
}

func (r *Content) ListByUser(_ context.Context, userID int64, from, to *time.Time) ([]models.ContentPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := []models.ContentPost{}
	for _, post := range r.s.posts {
		if post.UserID != userID {
			continue
		}
		if from != nil && to != nil {
			if post.ScheduledAt == nil || post.ScheduledAt.Before(*from) || !post.ScheduledAt.Before(*to) {
				continue
			}
		}
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *Content) Update(_ context.Context, post *models.ContentPost) (*models.ContentPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	stored, ok := r.s.posts[post.ID]
	if !ok || stored.UserID != post.UserID {
		return nil, nil
	}
	stored.Title = post.Title
	stored.Content = post.Content
	stored.Platforms = post.Platforms
	stored.ScheduledAt = post.ScheduledAt
	stored.Status = post.Status
	stored.UpdatedAt = r.s.Now()
	r.s.posts[post.ID] = stored
	return &stored, nil
}

func (r *Content) Delete(_ context.Context, id, userID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	post, ok := r.s.posts[id]
	if !ok || post.UserID != userID {
		return false, nil
	}
	delete(r.s.posts, id)
	return true, nil
}

type Templates struct{ s *Store }

func (r *Templates) Create(_ context.Context, tpl *models.ContentTemplate) (*models.ContentTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	created := *tpl
	created.ID = r.s.id()
	created.CreatedAt = r.s.Now()
	created.UpdatedAt = created.CreatedAt
	r.s.templates[created.ID] = created
	return &created, nil
}

func (r *Templates) FindByID(_ context.Context, id int64) (*models.ContentTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	tpl, ok := r.s.templates[id]
	if !ok {
		return nil, nil
	}
	return &tpl, nil
}

func (r *Templates) ListByUser(_ context.Context, userID int64) ([]models.ContentTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := []models.ContentTemplate{}
	for _, tpl := range r.s.templates {
		if tpl.UserID == userID {
			out = append(out, tpl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *Templates) Delete(_ context.Context, id, userID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	tpl, ok := r.s.templates[id]
	if !ok || tpl.UserID != userID {
		return false, nil
	}
	delete(r.s.templates, id)
	return true, nil
}

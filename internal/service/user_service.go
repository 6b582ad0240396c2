package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/models"
)

// Identity is what a verified session says about the caller.
type Identity struct {
	OpenID      string
	Name        string
	Email       string
	LoginMethod string
}

type UserService struct {
	log         *slog.Logger
	users       UserStore
	ownerOpenID string
	now         func() time.Time
}

func NewUserService(log *slog.Logger, users UserStore, ownerOpenID string) *UserService {
	return &UserService{
		log:         log,
		users:       users,
		ownerOpenID: ownerOpenID,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate resolves the user behind id, creating the row on first sight.
// The configured owner is always promoted to admin. Recording the sign-in
// time of a known user is best-effort when the store is unavailable.
func (s *UserService) Authenticate(ctx context.Context, id Identity) (*models.User, error) {
	if id.OpenID == "" {
		return nil, apperr.New(apperr.Unauthorized, "invalid session")
	}
	owner := s.ownerOpenID != "" && id.OpenID == s.ownerOpenID
	now := s.now()

	user, err := s.users.FindByOpenID(ctx, id.OpenID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || (owner && !user.IsAdmin()) {
		user, err = s.users.Upsert(ctx, &models.User{
			OpenID:       id.OpenID,
			Name:         id.Name,
			Email:        id.Email,
			LoginMethod:  id.LoginMethod,
			LastSignedIn: now,
		}, owner)
		if err != nil {
			return nil, fmt.Errorf("upsert user: %w", err)
		}
		s.log.Info("user signed in", "user_id", user.ID, "role", user.Role)
		return user, nil
	}

	if err := s.users.TouchLastSignedIn(ctx, user.ID, now); err != nil {
		if !apperr.Is(err, apperr.Unavailable) {
			return nil, fmt.Errorf("touch last signed in: %w", err)
		}
		s.log.Warn("skip last signed in update", "user_id", user.ID, "err", err)
	} else {
		user.LastSignedIn = now
	}
	return user, nil
}

package service

import (
	"context"
	"strings"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/querycache"
)

// ProfileService reads and edits the caller's own profile.
type ProfileService struct {
	*base
}

// Get returns the profile of userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Profile(userID), func(ctx context.Context) (*model.Profile, error) {
		return s.d.Profiles.Get(ctx, userID)
	})
}

// IsAdmin resolves the admin flag of userID through the cached profile.
func (s *ProfileService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return p.IsAdmin, nil
}

// UpdateNames changes the caller's first and last name.  Blank names are
// stored as NULL.
func (s *ProfileService) UpdateNames(ctx context.Context, userID string, first, last *string) (*model.Profile, error) {
	p, err := s.d.Profiles.UpdateNames(ctx, userID, blankToNil(first), blankToNil(last))
	if err != nil {
		return nil, err
	}
	s.applied(ctx, querycache.ProfileUpdate, querycache.Target{ID: userID})
	return p, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

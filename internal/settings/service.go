package settings

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetProfile returns the stored profile, or sensible defaults when the
// participant has never saved one.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return &Profile{
			UserID:   userID,
			Language: "en",
			Timezone: "UTC",
		}, nil
	}
	return profile, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != "" {
		profile.FullName = req.FullName
	}
	if req.DisplayName != "" {
		profile.DisplayName = req.DisplayName
	}
	if req.Phone != "" {
		profile.Phone = req.Phone
	}
	if req.Language != "" {
		profile.Language = req.Language
	}
	if req.Timezone != "" {
		profile.Timezone = req.Timezone
	}

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	s.logger.Info("profile updated", zap.String("user_id", userID.String()))
	return profile, nil
}

func (s *Service) GetNotifications(ctx context.Context, userID uuid.UUID) (*NotificationPreferences, error) {
	prefs, err := s.repo.GetNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		return &NotificationPreferences{
			UserID:         userID,
			EmailEnabled:   true,
			RealtimeEvents: true,
		}, nil
	}
	return prefs, nil
}

func (s *Service) UpdateNotifications(ctx context.Context, userID uuid.UUID, req *UpdateNotificationsRequest) (*NotificationPreferences, error) {
	prefs, err := s.GetNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.EmailEnabled != nil {
		prefs.EmailEnabled = *req.EmailEnabled
	}
	if req.RealtimeEvents != nil {
		prefs.RealtimeEvents = *req.RealtimeEvents
	}
	if req.Categories != nil {
		raw, err := json.Marshal(req.Categories)
		if err != nil {
			return nil, err
		}
		prefs.Categories = raw
	}

	if err := s.repo.UpsertNotifications(ctx, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

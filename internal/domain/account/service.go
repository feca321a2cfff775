package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUploadLimit is returned when the monthly upload quota is
// exhausted for the current window.
var ErrUploadLimit = errors.New("monthly upload limit reached")

// Unlimited is the remaining-count value reported for plans without
// an upload cap.
const Unlimited = -1

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// GetOrCreate looks an account up by its external user id, creating
// it on first contact. The stored username is refreshed when the
// platform reports a new one.
func (s *Service) GetOrCreate(ctx context.Context, externalID int64, username, displayName *string) (*Account, error) {
	a, err := s.repo.GetByExternalID(ctx, externalID)
	if errors.Is(err, ErrNotFound) {
		a = &Account{
			ExternalID:            externalID,
			Username:              username,
			DisplayName:           displayName,
			Locale:                "ru",
			Plan:                  PlanFree,
			MonthlyUploadsResetAt: firstOfNextMonth(s.now()),
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		return a, nil
	}
	if err != nil {
		return nil, err
	}
	if username != nil && (a.Username == nil || *a.Username != *username) {
		a.Username = username
		if err := s.repo.Update(ctx, a); err != nil {
			return nil, fmt.Errorf("update account: %w", err)
		}
	}
	return a, nil
}

// CheckUploadQuota rolls the monthly window forward if it has lapsed
// and returns how many uploads remain, Unlimited for uncapped plans.
// ErrUploadLimit is returned when nothing remains.
func (s *Service) CheckUploadQuota(ctx context.Context, a *Account) (int, error) {
	limits := a.Plan.Limits()
	if limits.UploadsPerMonth < 0 {
		return Unlimited, nil
	}
	now := s.now()
	if !now.Before(a.MonthlyUploadsResetAt) {
		next := firstOfNextMonth(now)
		if err := s.repo.ResetUploads(ctx, a.ID, next); err != nil {
			return 0, fmt.Errorf("reset uploads: %w", err)
		}
		a.MonthlyUploads = 0
		a.MonthlyUploadsResetAt = next
	}
	remaining := limits.UploadsPerMonth - a.MonthlyUploads
	if remaining <= 0 {
		return 0, ErrUploadLimit
	}
	return remaining, nil
}

// RecordUpload counts a completed upload against the monthly quota.
// Continuation pages do not go through here.
func (s *Service) RecordUpload(ctx context.Context, a *Account) error {
	if err := s.repo.IncrementUploads(ctx, a.ID); err != nil {
		return fmt.Errorf("increment uploads: %w", err)
	}
	a.MonthlyUploads++
	return nil
}

func (s *Service) SetLocale(ctx context.Context, a *Account, locale string) error {
	a.Locale = locale
	return s.repo.Update(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

func firstOfNextMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

package profile

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/biopulse/biopulse/pkg/fuzzy"
)

// ErrNameTooShort is returned for names under two characters.
var ErrNameTooShort = fmt.Errorf("name must be at least 2 characters")

var avatarPalette = []string{
	"#6366f1", "#ec4899", "#14b8a6", "#f59e0b",
	"#8b5cf6", "#ef4444", "#22c55e", "#0ea5e9",
}

type Service struct {
	repo Repository

	// pickColor selects an avatar palette index. Swapped in tests
	// for determinism.
	pickColor func(n int) int
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, pickColor: rand.Intn}
}

// Resolve maps a patient name extracted from a report to one of the
// account's profiles, creating a new profile when nothing matches.
// Matching is by name key: an exact key match wins, otherwise the
// closest key within the fuzzy threshold. The same name always
// resolves to the same profile.
func (s *Service) Resolve(ctx context.Context, accountID uuid.UUID, rawName string) (*Profile, error) {
	name := strings.TrimSpace(rawName)
	if utf8.RuneCountInString(name) < 2 {
		return nil, ErrNameTooShort
	}
	key := NameKey(name)

	existing, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	for _, p := range existing {
		if p.NameKey == key {
			return p, nil
		}
	}

	// Fuzzy pass tolerates OCR noise and spelling variants. The
	// first profile at the best distance wins.
	limit := fuzzy.Threshold(utf8.RuneCountInString(key))
	var best *Profile
	bestDist := limit + 1
	for _, p := range existing {
		if d := fuzzy.Distance(key, p.NameKey); d <= limit && d < bestDist {
			best = p
			bestDist = d
		}
	}
	if best != nil {
		return best, nil
	}

	return s.Create(ctx, accountID, name)
}

// Create adds a profile with a normalized display name. The first
// profile of an account becomes the primary one.
func (s *Service) Create(ctx context.Context, accountID uuid.UUID, rawName string) (*Profile, error) {
	name := strings.TrimSpace(rawName)
	if utf8.RuneCountInString(name) < 2 {
		return nil, ErrNameTooShort
	}
	existing, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	p := &Profile{
		AccountID:   accountID,
		FullName:    DisplayName(name),
		NameKey:     NameKey(name),
		AvatarColor: avatarPalette[s.pickColor(len(avatarPalette))],
		IsPrimary:   len(existing) == 0,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, accountID uuid.UUID) ([]*Profile, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

// Rename updates a profile's display name and its comparison key.
func (s *Service) Rename(ctx context.Context, p *Profile, rawName string) error {
	name := strings.TrimSpace(rawName)
	if utf8.RuneCountInString(name) < 2 {
		return ErrNameTooShort
	}
	p.FullName = DisplayName(name)
	p.NameKey = NameKey(name)
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

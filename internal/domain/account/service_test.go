package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockAccountRepo struct {
	accounts map[int64]*Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: map[int64]*Account{}}
}

func (m *mockAccountRepo) Create(ctx context.Context, a *Account) error {
	a.ID = uuid.New()
	m.accounts[a.ExternalID] = a
	return nil
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockAccountRepo) GetByExternalID(ctx context.Context, externalID int64) (*Account, error) {
	if a, ok := m.accounts[externalID]; ok {
		return a, nil
	}
	return nil, ErrNotFound
}

func (m *mockAccountRepo) Update(ctx context.Context, a *Account) error { return nil }

func (m *mockAccountRepo) IncrementUploads(ctx context.Context, id uuid.UUID) error {
	a, err := m.GetByID(context.Background(), id)
	if err != nil {
		return err
	}
	a.MonthlyUploads++
	return nil
}

func (m *mockAccountRepo) ResetUploads(ctx context.Context, id uuid.UUID, nextReset time.Time) error {
	a, err := m.GetByID(context.Background(), id)
	if err != nil {
		return err
	}
	a.MonthlyUploads = 0
	a.MonthlyUploadsResetAt = nextReset
	return nil
}

func strptr(s string) *string { return &s }

func TestGetOrCreate_NewAccountDefaults(t *testing.T) {
	svc := NewService(newMockAccountRepo())
	svc.now = func() time.Time { return time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC) }

	a, err := svc.GetOrCreate(context.Background(), 42, strptr("anna"), nil)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if a.Plan != PlanFree {
		t.Errorf("plan = %q, want free", a.Plan)
	}
	if a.Locale != "ru" {
		t.Errorf("locale = %q, want ru", a.Locale)
	}
	want := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	if !a.MonthlyUploadsResetAt.Equal(want) {
		t.Errorf("reset at = %v, want %v", a.MonthlyUploadsResetAt, want)
	}
}

func TestGetOrCreate_ExistingAccountReused(t *testing.T) {
	repo := newMockAccountRepo()
	svc := NewService(repo)

	first, _ := svc.GetOrCreate(context.Background(), 42, strptr("anna"), nil)
	second, err := svc.GetOrCreate(context.Background(), 42, strptr("anna_new"), nil)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if second.ID != first.ID {
		t.Error("expected the same account")
	}
	if second.Username == nil || *second.Username != "anna_new" {
		t.Error("username should be refreshed")
	}
}

func TestCheckUploadQuota_FreePlanCounts(t *testing.T) {
	repo := newMockAccountRepo()
	svc := NewService(repo)
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a, _ := svc.GetOrCreate(context.Background(), 1, nil, nil)

	remaining, err := svc.CheckUploadQuota(context.Background(), a)
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	if remaining != 3 {
		t.Errorf("remaining = %d, want 3", remaining)
	}

	for i := 0; i < 3; i++ {
		if err := svc.RecordUpload(context.Background(), a); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := svc.CheckUploadQuota(context.Background(), a); !errors.Is(err, ErrUploadLimit) {
		t.Errorf("expected ErrUploadLimit, got %v", err)
	}
}

func TestCheckUploadQuota_WindowRollsOver(t *testing.T) {
	repo := newMockAccountRepo()
	svc := NewService(repo)
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a, _ := svc.GetOrCreate(context.Background(), 1, nil, nil)
	for i := 0; i < 3; i++ {
		_ = svc.RecordUpload(context.Background(), a)
	}
	if _, err := svc.CheckUploadQuota(context.Background(), a); !errors.Is(err, ErrUploadLimit) {
		t.Fatalf("expected limit before rollover, got %v", err)
	}

	// Past the reset boundary the counter starts over.
	now = time.Date(2025, 4, 1, 0, 0, 0, 1, time.UTC)
	remaining, err := svc.CheckUploadQuota(context.Background(), a)
	if err != nil {
		t.Fatalf("quota after rollover: %v", err)
	}
	if remaining != 3 {
		t.Errorf("remaining = %d, want 3", remaining)
	}
	next := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	if !a.MonthlyUploadsResetAt.Equal(next) {
		t.Errorf("next reset = %v, want %v", a.MonthlyUploadsResetAt, next)
	}
}

func TestCheckUploadQuota_ProPlanUnlimited(t *testing.T) {
	repo := newMockAccountRepo()
	svc := NewService(repo)
	a, _ := svc.GetOrCreate(context.Background(), 1, nil, nil)
	a.Plan = PlanPro
	a.MonthlyUploads = 1000

	remaining, err := svc.CheckUploadQuota(context.Background(), a)
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	if remaining != Unlimited {
		t.Errorf("remaining = %d, want Unlimited", remaining)
	}
}

func TestPlanLimits_UnknownPlanFallsBackToFree(t *testing.T) {
	if got := Plan("enterprise").Limits(); got != planLimits[PlanFree] {
		t.Errorf("unknown plan limits = %+v", got)
	}
}

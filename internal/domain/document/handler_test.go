package document

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/biopulse/biopulse/internal/domain/account"
	"github.com/biopulse/biopulse/internal/domain/profile"
)

type mockDocRepo struct {
	docs          map[uuid.UUID]*Document
	profileListed bool
	accountListed bool
}

func (m *mockDocRepo) Create(ctx context.Context, d *Document) error { return nil }

func (m *mockDocRepo) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	if d, ok := m.docs[id]; ok {
		return d, nil
	}
	return nil, ErrNotFound
}

func (m *mockDocRepo) Update(ctx context.Context, d *Document) error { return nil }

func (m *mockDocRepo) HasCompleted(ctx context.Context, accountID uuid.UUID, patientName, testDate string, documentType *string) (bool, error) {
	return false, nil
}

func (m *mockDocRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	m.accountListed = true
	return nil, 0, nil
}

func (m *mockDocRepo) ListByProfile(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	m.profileListed = true
	var out []*Document
	for _, d := range m.docs {
		if d.ProfileID != nil && *d.ProfileID == profileID {
			out = append(out, d)
		}
	}
	return out, len(out), nil
}

type mockReadingRepo struct {
	readings    []*Reading
	historyRead bool
}

func (m *mockReadingRepo) CreateBatch(ctx context.Context, readings []*Reading) error { return nil }

func (m *mockReadingRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*Reading, error) {
	return m.readings, nil
}

func (m *mockReadingRepo) ListByProfileBiomarker(ctx context.Context, profileID, biomarkerID uuid.UUID) ([]*Reading, error) {
	m.historyRead = true
	return m.readings, nil
}

type mockProfiles struct {
	profiles map[uuid.UUID]*profile.Profile
}

func (m *mockProfiles) Get(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, profile.ErrNotFound
}

type handlerFixture struct {
	h        *Handler
	docs     *mockDocRepo
	readings *mockReadingRepo
	victim   *account.Account
	attacker *account.Account
	prof     *profile.Profile
}

func newHandlerFixture() *handlerFixture {
	victim := &account.Account{ID: uuid.New(), ExternalID: 100}
	attacker := &account.Account{ID: uuid.New(), ExternalID: 200}
	prof := &profile.Profile{ID: uuid.New(), AccountID: victim.ID, FullName: "Мама", CreatedAt: time.Now()}

	docs := &mockDocRepo{docs: map[uuid.UUID]*Document{}}
	doc := &Document{ID: uuid.New(), AccountID: victim.ID, ProfileID: &prof.ID, Status: StatusDone}
	docs.docs[doc.ID] = doc

	readings := &mockReadingRepo{readings: []*Reading{{ID: uuid.New(), ProfileID: prof.ID, OriginalName: "Гемоглобин"}}}
	profiles := &mockProfiles{profiles: map[uuid.UUID]*profile.Profile{prof.ID: prof}}

	return &handlerFixture{
		h:        NewHandler(docs, readings, profiles, nil),
		docs:     docs,
		readings: readings,
		victim:   victim,
		attacker: attacker,
		prof:     prof,
	}
}

func listRequest(acct *account.Account, profileID uuid.UUID) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/documents?profile_id="+profileID.String(), nil)
	c := e.NewContext(req, httptest.NewRecorder())
	account.Attach(c, acct)
	return c
}

func historyRequest(acct *account.Account, profileID uuid.UUID) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/profiles/"+profileID.String()+"/readings?biomarker_id="+uuid.NewString(), nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(profileID.String())
	account.Attach(c, acct)
	return c
}

func TestList_ByProfile_ForeignProfileRejected(t *testing.T) {
	f := newHandlerFixture()
	c := listRequest(f.attacker, f.prof.ID)

	err := f.h.List(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign profile, got %v", err)
	}
	if f.docs.profileListed {
		t.Error("documents of a foreign profile must not be queried")
	}
}

func TestList_ByProfile_OwnerAllowed(t *testing.T) {
	f := newHandlerFixture()
	c := listRequest(f.victim, f.prof.ID)

	if err := f.h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !f.docs.profileListed {
		t.Error("expected the owner's profile documents to be listed")
	}
}

func TestList_ByProfile_UnknownProfileRejected(t *testing.T) {
	f := newHandlerFixture()
	c := listRequest(f.victim, uuid.New())

	err := f.h.List(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown profile, got %v", err)
	}
}

func TestHistory_ForeignProfileRejected(t *testing.T) {
	f := newHandlerFixture()
	c := historyRequest(f.attacker, f.prof.ID)

	err := f.h.History(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign profile, got %v", err)
	}
	if f.readings.historyRead {
		t.Error("readings of a foreign profile must not be queried")
	}
}

func TestHistory_OwnerAllowed(t *testing.T) {
	f := newHandlerFixture()
	c := historyRequest(f.victim, f.prof.ID)

	if err := f.h.History(c); err != nil {
		t.Fatalf("History: %v", err)
	}
	if !f.readings.historyRead {
		t.Error("expected the owner's history to be returned")
	}
}

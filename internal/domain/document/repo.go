package document

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("document not found")

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	Update(ctx context.Context, d *Document) error
	// HasCompleted reports whether the account already has a
	// successfully processed document for the same patient name,
	// test date and document type.
	HasCompleted(ctx context.Context, accountID uuid.UUID, patientName, testDate string, documentType *string) (bool, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Document, int, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*Document, int, error)
}

type ReadingRepository interface {
	CreateBatch(ctx context.Context, readings []*Reading) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*Reading, error)
	// ListByProfileBiomarker returns a profile's history for one
	// biomarker, oldest first.
	ListByProfileBiomarker(ctx context.Context, profileID, biomarkerID uuid.UUID) ([]*Reading, error)
}

package biomarker

import "context"

type Repository interface {
	// ListAll returns the whole catalog in sort order.
	ListAll(ctx context.Context) ([]*Biomarker, error)
}

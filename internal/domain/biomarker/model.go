package biomarker

import (
	"time"

	"github.com/google/uuid"
)

// Biomarker is a catalog entry describing one measurable analyte:
// its canonical name, the unit readings are stored in, reference
// ranges and the label variants labs print for it.
type Biomarker struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Code          string    `json:"code" db:"code"`
	CanonicalName string    `json:"canonical_name" db:"canonical_name"`
	NameLocal     *string   `json:"name_local,omitempty" db:"name_local"`
	Aliases       []string  `json:"aliases" db:"aliases"`
	Category      string    `json:"category" db:"category"`
	Unit          *string   `json:"unit,omitempty" db:"unit"`
	RefMaleMin    *float64  `json:"ref_male_min,omitempty" db:"ref_male_min"`
	RefMaleMax    *float64  `json:"ref_male_max,omitempty" db:"ref_male_max"`
	RefFemaleMin  *float64  `json:"ref_female_min,omitempty" db:"ref_female_min"`
	RefFemaleMax  *float64  `json:"ref_female_max,omitempty" db:"ref_female_max"`
	SortOrder     int       `json:"sort_order" db:"sort_order"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

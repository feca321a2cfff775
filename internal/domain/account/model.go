package account

import (
	"time"

	"github.com/google/uuid"
)

type Plan string

const (
	PlanFree     Plan = "free"
	PlanPro      Plan = "pro"
	PlanLifetime Plan = "lifetime"
)

// Limits describes what a plan allows. A negative count means
// unlimited.
type Limits struct {
	UploadsPerMonth int
	MaxProfiles     int
	ExportPDF       bool
	PriorityParsing bool
}

var planLimits = map[Plan]Limits{
	PlanFree:     {UploadsPerMonth: 3, MaxProfiles: 2},
	PlanPro:      {UploadsPerMonth: -1, MaxProfiles: 10, ExportPDF: true, PriorityParsing: true},
	PlanLifetime: {UploadsPerMonth: -1, MaxProfiles: 20, ExportPDF: true, PriorityParsing: true},
}

// Limits returns the plan's limits, falling back to the free tier
// for unknown plan values.
func (p Plan) Limits() Limits {
	if l, ok := planLimits[p]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// Account is the owner of uploads and profiles, identified by the
// user id of the external messaging platform.
type Account struct {
	ID                    uuid.UUID  `json:"id" db:"id"`
	ExternalID            int64      `json:"external_id" db:"external_id"`
	Username              *string    `json:"username,omitempty" db:"username"`
	DisplayName           *string    `json:"display_name,omitempty" db:"display_name"`
	Locale                string     `json:"locale" db:"locale"`
	Plan                  Plan       `json:"plan" db:"plan"`
	PlanExpiresAt         *time.Time `json:"plan_expires_at,omitempty" db:"plan_expires_at"`
	MonthlyUploads        int        `json:"monthly_uploads" db:"monthly_uploads"`
	MonthlyUploadsResetAt time.Time  `json:"monthly_uploads_reset_at" db:"monthly_uploads_reset_at"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}

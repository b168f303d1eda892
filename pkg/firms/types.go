package firms

import (
	"time"
)

// PlanTier represents subscription plan tiers
type PlanTier string

const (
	PlanFree         PlanTier = "free"
	PlanBasic        PlanTier = "basic"
	PlanProfessional PlanTier = "professional"
	PlanEnterprise   PlanTier = "enterprise"
)

// Valid reports whether p is one of the canonical plan tiers.
func (p PlanTier) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}

// Unlimited is the quota sentinel for plans without a numeric limit.
const Unlimited int64 = -1

// Firm represents a law firm tenant. The firm ID is the owning identity's
// ID, so resolving a tenant and loading its firm row use the same key.
type Firm struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Plan      PlanTier       `json:"plan"`
	Settings  map[string]any `json:"settings,omitempty"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FirmQuotas represents the per-plan resource limits for a firm.
// A limit of Unlimited (-1) means the plan does not cap that resource.
type FirmQuotas struct {
	MaxCases        int64 `json:"max_cases"`
	MaxEmployees    int64 `json:"max_employees"`
	MaxClients      int64 `json:"max_clients"`
	MaxStorageBytes int64 `json:"max_storage_bytes"`
}

// FirmUsage represents current live usage for a firm. The counts come
// from live queries and are recomputed per request; this struct is for
// display and reporting, never for admission decisions.
type FirmUsage struct {
	FirmID        string    `json:"firm_id"`
	CasesCount    int64     `json:"cases_count"`
	EmployeeCount int64     `json:"employee_count"`
	ClientsCount  int64     `json:"clients_count"`
	ComputedAt    time.Time `json:"computed_at"`
}

// QuotaExceededError represents a quota exceeded error
type QuotaExceededError struct {
	Resource string
	Plan     PlanTier
	Current  int64
	Limit    int64
}

func (e *QuotaExceededError) Error() string {
	return "quota exceeded for " + e.Resource
}

// IsQuotaExceeded checks if an error is a quota exceeded error
func IsQuotaExceeded(err error) bool {
	_, ok := err.(*QuotaExceededError)
	return ok
}

// DefaultQuotas returns the limits for a plan tier. Unknown tiers get the
// free-plan limits, matching the fail-closed posture elsewhere.
func DefaultQuotas(plan PlanTier) FirmQuotas {
	switch plan {
	case PlanFree:
		return FirmQuotas{
			MaxCases:        50,
			MaxEmployees:    3,
			MaxClients:      100,
			MaxStorageBytes: 1 * 1024 * 1024 * 1024, // 1GB
		}
	case PlanBasic:
		return FirmQuotas{
			MaxCases:        200,
			MaxEmployees:    10,
			MaxClients:      1000,
			MaxStorageBytes: 10 * 1024 * 1024 * 1024, // 10GB
		}
	case PlanProfessional:
		return FirmQuotas{
			MaxCases:        1000,
			MaxEmployees:    50,
			MaxClients:      Unlimited,
			MaxStorageBytes: 100 * 1024 * 1024 * 1024, // 100GB
		}
	case PlanEnterprise:
		return FirmQuotas{
			MaxCases:        Unlimited,
			MaxEmployees:    Unlimited,
			MaxClients:      Unlimited,
			MaxStorageBytes: Unlimited,
		}
	default:
		return DefaultQuotas(PlanFree)
	}
}

// withinLimit reports whether one more resource fits under the limit.
func withinLimit(current, limit int64) bool {
	return limit == Unlimited || current < limit
}

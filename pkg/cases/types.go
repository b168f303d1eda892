package cases

import "time"

// Status is the lifecycle state of a case.
type Status string

const (
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusClosed   Status = "closed"
	StatusArchived Status = "archived"
)

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusClosed, StatusArchived:
		return true
	}
	return false
}

// Case is a legal matter belonging to exactly one firm. AssignedTo and
// CreatedBy are the ownership fields the resource guard checks for
// employees without a tenant-wide grant.
type Case struct {
	ID          string    `json:"id"`
	FirmID      string    `json:"firm_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	AssignedTo  *string   `json:"assigned_to,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCaseRequest is the JSON body for case creation.
type CreateCaseRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AssignedTo  *string `json:"assigned_to"`
}

// UpdateCaseRequest is the JSON body for case updates. Nil fields are
// left unchanged.
type UpdateCaseRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *Status `json:"status"`
}

// AssignCaseRequest is the JSON body for reassignment. A null assignee
// unassigns the case.
type AssignCaseRequest struct {
	AssignedTo *string `json:"assigned_to"`
}

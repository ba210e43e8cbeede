// Package servicedesk records the support services, tickets and statistics
// that make up the implementation narrative of an activity.
package servicedesk

import (
	"errors"
	"time"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// SupportedSystem is an information system the office supports.
type SupportedSystem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

// SupportService is a service delivered under an activity.
type SupportService struct {
	ID                int64  `json:"id"`
	Name              string `json:"name" validate:"required,max=255"`
	Description       string `json:"description"`
	ActivityID        int64  `json:"activity_id" validate:"required,gt=0"`
	IsRelatedToSystem bool   `json:"is_related_to_system"`
	SupportedSystemID *int64 `json:"supported_system_id"`
}

// SubService refines a SupportService.
type SubService struct {
	ID          int64  `json:"id"`
	ServiceID   int64  `json:"service_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

// ExternalReporter is a non-staff person who raises tickets.
type ExternalReporter struct {
	ID    int64  `json:"id"`
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone" validate:"max=50"`
	Email string `json:"email" validate:"omitempty,email"`
}

// UserType tells whether a ticket was raised by staff or an outsider.
type UserType string

const (
	UserInternal UserType = "internal"
	UserExternal UserType = "external"
)

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Display is the human readable status.
func (s Status) Display() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	case StatusClosed:
		return "Closed"
	default:
		return string(s)
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether the ticket counts as resolved.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

// SupportTicket is one support request against a service.
type SupportTicket struct {
	ID                 int64      `json:"id"`
	ServiceID          int64      `json:"service_id" validate:"required,gt=0"`
	SubServiceID       *int64     `json:"sub_service_id"`
	UserType           UserType   `json:"user_type" validate:"required,oneof=internal external"`
	InternalUserID     *int64     `json:"internal_user_id"`
	ExternalReporterID *int64     `json:"external_reporter_id"`
	ReporterName       string     `json:"reporter_name" validate:"max=255"`
	Description        string     `json:"description" validate:"required"`
	Status             Status     `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	SubmittedAt        time.Time  `json:"submitted_at"`
	ResolvedAt         *time.Time `json:"resolved_at"`
	ResolvedByID       *int64     `json:"resolved_by_id"`
}

// StatisticType groups statistics records of an activity.
type StatisticType struct {
	ID         int64  `json:"id"`
	Name       string `json:"name" validate:"required,max=255"`
	ActivityID int64  `json:"activity_id" validate:"required,gt=0"`
}

// StatisticsRecord is a narrative entry covering a date window.
type StatisticsRecord struct {
	ID              int64     `json:"id"`
	StatisticTypeID int64     `json:"statistic_type_id" validate:"required,gt=0"`
	Title           string    `json:"title" validate:"required,max=255"`
	Description     string    `json:"description"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	ServiceID int64
	Status    Status
	From      time.Time
	To        time.Time
	Page      int
	PerPage   int
}

var (
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("servicedesk: not found")
	// ErrInUse indicates the record is still referenced.
	ErrInUse = errors.New("servicedesk: record is still referenced")
	// ErrReferenceMissing indicates a referenced row does not exist.
	ErrReferenceMissing = shared.NewViolation("ReferenceMissing", "A referenced record does not exist.")
	// ErrDuplicateStatisticType is returned when the name is taken.
	ErrDuplicateStatisticType = shared.NewViolation("DuplicateStatisticType", "A statistic type with this name already exists.").
					WithField("name", "A statistic type with this name already exists.")
	// ErrInvalidRecordRange is returned when a statistics record ends before it starts.
	ErrInvalidRecordRange = shared.NewViolation("InvalidDateRange", "End date cannot be earlier than start date.").
				WithField("end_date", "End date cannot be earlier than start date.")
	// ErrSubServiceMismatch is returned when the sub-service belongs to another service.
	ErrSubServiceMismatch = shared.NewViolation("SubServiceMismatch", "The selected sub-service does not belong to the selected service.").
				WithField("sub_service_id", "The selected sub-service does not belong to the selected service.")
	// ErrReporterRequired is returned when the ticket does not name its reporter.
	ErrReporterRequired = shared.NewViolation("ReporterRequired", "Internal tickets need an internal user and external tickets need an external reporter.")
	// ErrInvalidStatus is returned for unknown ticket statuses.
	ErrInvalidStatus = shared.NewViolation("InvalidStatus", "Status must be one of Open, In Progress, Resolved or Closed.").
				WithField("status", "Status must be one of Open, In Progress, Resolved or Closed.")
	// ErrSystemRequired is returned when a system-related service names no system.
	ErrSystemRequired = shared.NewViolation("SystemRequired", "Select the supported system this service relates to.").
				WithField("supported_system_id", "Select the supported system this service relates to.")
)

// ValidateRecordRange rejects windows ending before they start.
func ValidateRecordRange(start, end time.Time) error {
	if end.Before(start) {
		return ErrInvalidRecordRange
	}
	return nil
}

// validateReporter enforces the internal/external reporter rule.
func validateReporter(t SupportTicket) error {
	switch t.UserType {
	case UserInternal:
		if t.InternalUserID == nil || *t.InternalUserID <= 0 {
			return ErrReporterRequired.WithField("internal_user_id", "Select the internal user who reported this ticket.")
		}
	case UserExternal:
		if t.ExternalReporterID == nil || *t.ExternalReporterID <= 0 {
			return ErrReporterRequired.WithField("external_reporter_id", "Select the external reporter of this ticket.")
		}
	}
	return nil
}

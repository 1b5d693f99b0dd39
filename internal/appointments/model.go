package appointments

import (
	"strings"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusNoShow     Status = "NO_SHOW"
)

// DefaultDurationMinutes applies when a booking omits its duration.
const DefaultDurationMinutes = 50

// MaxDurationMinutes caps a single session at one day.
const MaxDurationMinutes = 24 * 60

// Appointment is a persisted session booking.
type Appointment struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"clientId"`
	PersonnelID     string    `json:"personnelId"`
	ServiceID       string    `json:"serviceId"`
	AppointmentDate time.Time `json:"appointmentDate"`
	Duration        int       `json:"duration"`
	Status          Status    `json:"status"`
	IsOnline        bool      `json:"isOnline"`
	MeetLink        *string   `json:"meetLink"`
	Price           *float64  `json:"price,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// End is the first instant after the session.
func (a *Appointment) End() time.Time {
	return a.AppointmentDate.Add(time.Duration(a.Duration) * time.Minute)
}

// CreateRequest is the booking payload.
type CreateRequest struct {
	ClientID        string   `json:"clientId"`
	PersonnelID     string   `json:"personnelId"`
	ServiceID       string   `json:"serviceId"`
	AppointmentDate string   `json:"appointmentDate"`
	Duration        *int     `json:"duration,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	IsOnline        *bool    `json:"isOnline,omitempty"`
}

// UpdateRequest is a partial update. Nil fields are left unchanged.
type UpdateRequest struct {
	ClientID        *string  `json:"clientId,omitempty"`
	PersonnelID     *string  `json:"personnelId,omitempty"`
	ServiceID       *string  `json:"serviceId,omitempty"`
	AppointmentDate *string  `json:"appointmentDate,omitempty"`
	Duration        *int     `json:"duration,omitempty"`
	Status          *Status  `json:"status,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	IsOnline        *bool    `json:"isOnline,omitempty"`
	MeetLink        *string  `json:"meetLink,omitempty"`
}

// ClientSummary is the client projection joined into responses.
type ClientSummary struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// PersonnelSummary is the practitioner projection joined into responses.
type PersonnelSummary struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ServiceSummary is the service projection joined into responses.
type ServiceSummary struct {
	Name string `json:"name"`
}

// View is an appointment with its joined directory entities.
type View struct {
	Appointment
	Client       *ClientSummary    `json:"client,omitempty"`
	Personnel    *PersonnelSummary `json:"personnel,omitempty"`
	Service      *ServiceSummary   `json:"service,omitempty"`
	WhatsAppLink string            `json:"whatsappLink,omitempty"`
}

// SortOrder orders list results by appointment date.
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// Filter scopes a list query. Empty fields do not filter.
type Filter struct {
	ClientID    string
	PersonnelID string
	ServiceID   string
	From        *time.Time
	To          *time.Time
	Order       SortOrder
	Limit       int
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDate accepts RFC3339 or a zone-less local timestamp, which is read in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

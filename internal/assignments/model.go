package assignments

import (
	"io"
	"strings"
	"time"
)

// Type is the kind of homework handed to a client.
type Type string

const (
	TypeBook     Type = "BOOK"
	TypeReading  Type = "READING"
	TypeWriting  Type = "WRITING"
	TypeExercise Type = "EXERCISE"
	TypeVideo    Type = "VIDEO"
	TypeAudio    Type = "AUDIO"
	TypeOther    Type = "OTHER"
)

// ParseType normalizes a type value.
func ParseType(raw string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case TypeBook, TypeReading, TypeWriting, TypeExercise, TypeVideo, TypeAudio, TypeOther:
		return t, true
	}
	return "", false
}

// Status is the assignment progress.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusOverdue    Status = "OVERDUE"
)

// ParseStatus normalizes a status value.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOverdue:
		return s, true
	}
	return "", false
}

// rank orders list results: open work first.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	case StatusOverdue:
		return 3
	}
	return 4
}

// File points at an object in attachment storage.
type File struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Assignment is homework given by a practitioner to a client.
type Assignment struct {
	ID             string     `json:"id"`
	ClientID       string     `json:"clientId"`
	PersonnelID    string     `json:"personnelId"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	Type           Type       `json:"type"`
	DueDate        *time.Time `json:"dueDate"`
	Status         Status     `json:"status"`
	CompletedAt    *time.Time `json:"completedAt"`
	Notes          *string    `json:"notes"`
	ClientFeedback *string    `json:"clientFeedback"`
	Attachments    []File     `json:"attachments"`
	Submissions    []File     `json:"submissions"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// PastDue reports whether the assignment should be flagged OVERDUE at now.
func (a *Assignment) PastDue(now time.Time) bool {
	return a.DueDate != nil && a.DueDate.Before(now) &&
		a.Status != StatusCompleted && a.Status != StatusOverdue
}

// Person is the name card embedded in list responses.
type Person struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// View is an assignment with its client and practitioner names.
type View struct {
	Assignment
	Client    *Person `json:"client"`
	Personnel *Person `json:"personnel"`
}

// CreateRequest is the body of POST /assignments.
type CreateRequest struct {
	ClientID    string  `json:"clientId"`
	PersonnelID string  `json:"personnelId"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Type        string  `json:"type"`
	DueDate     *string `json:"dueDate"`
}

// UpdateRequest is a partial update. Clients may only send Status, Notes and ClientFeedback.
type UpdateRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Type           *string `json:"type"`
	DueDate        *string `json:"dueDate"`
	Status         *string `json:"status"`
	Notes          *string `json:"notes"`
	ClientFeedback *string `json:"clientFeedback"`
}

func (u UpdateRequest) touchesStaffFields() bool {
	return u.Title != nil || u.Description != nil || u.Type != nil || u.DueDate != nil
}

// Upload is one file from a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	ClientID    string
	PersonnelID string
	Status      Status
}

func (f Filter) matches(a *Assignment) bool {
	if f.ClientID != "" && a.ClientID != f.ClientID {
		return false
	}
	if f.PersonnelID != "" && a.PersonnelID != f.PersonnelID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

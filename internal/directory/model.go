package directory

import "strings"

// Kind names a directory registry. It doubles as the cache key segment.
type Kind string

const (
	KindClient    Kind = "client"
	KindPersonnel Kind = "personnel"
	KindService   Kind = "service"
)

// MaxServiceMinutes caps a catalog duration at one day.
const MaxServiceMinutes = 24 * 60

// Client is a service recipient as seen by scheduling.
type Client struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId,omitempty"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Photo     *string `json:"photo,omitempty"`
	IsActive  bool    `json:"isActive"`
}

// FullName joins first and last name.
func (c *Client) FullName() string {
	return joinName(c.FirstName, c.LastName)
}

// HasPhone reports whether a non-blank phone is on file.
func (c *Client) HasPhone() bool {
	return c != nil && c.Phone != nil && strings.TrimSpace(*c.Phone) != ""
}

// Personnel is a bookable staff member.
type Personnel struct {
	ID             string  `json:"id"`
	UserID         string  `json:"userId,omitempty"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Phone          *string `json:"phone,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	Role           string  `json:"role"`
	IsActive       bool    `json:"isActive"`
}

// FullName joins first and last name.
func (p *Personnel) FullName() string {
	return joinName(p.FirstName, p.LastName)
}

// Service is an offering from the catalog.
type Service struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Duration    int      `json:"duration"`
	Price       *float64 `json:"price,omitempty"`
	ServiceType string   `json:"serviceType"`
	IsActive    bool     `json:"isActive"`
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// ClientInput is the body of POST /clients and PUT /clients/{id}.
type ClientInput struct {
	UserID    string  `json:"userId"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Photo     *string `json:"photo"`
	IsActive  *bool   `json:"isActive"`
}

// PersonnelInput is the body of POST /personnel.
type PersonnelInput struct {
	UserID         string  `json:"userId"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Phone          *string `json:"phone"`
	Specialization *string `json:"specialization"`
	Role           string  `json:"role"`
	IsActive       *bool   `json:"isActive"`
}

// ServiceInput is the body of POST /services and PUT /services/{id}.
type ServiceInput struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Duration    int      `json:"duration"`
	Price       *float64 `json:"price"`
	ServiceType string   `json:"serviceType"`
	IsActive    *bool    `json:"isActive"`
}

// optional trims s and maps blank to nil.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Package packages manages prepaid session bundles built from catalog services.
package packages

import (
	"time"

	"github.com/wolfman30/counseling-clinic/internal/directory"
)

// Package is a priced bundle of sessions across one or more services.
type Package struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     *string          `json:"description,omitempty"`
	TotalSessions   int              `json:"totalSessions"`
	TotalPrice      float64          `json:"totalPrice"`
	DiscountPercent float64          `json:"discountPercent"`
	ValidityDays    *int             `json:"validityDays,omitempty"`
	IsActive        bool             `json:"isActive"`
	Services        []PackageService `json:"services"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// PackageService is the number of sessions of one service a package includes.
type PackageService struct {
	ServiceID string             `json:"serviceId"`
	Sessions  int                `json:"sessions"`
	Service   *directory.Service `json:"service,omitempty"`
}

// Input is the body of POST /packages and PUT /packages/{id}.
type Input struct {
	Name            string         `json:"name"`
	Description     *string        `json:"description"`
	TotalSessions   int            `json:"totalSessions"`
	TotalPrice      float64        `json:"totalPrice"`
	DiscountPercent float64        `json:"discountPercent"`
	ValidityDays    *int           `json:"validityDays"`
	IsActive        *bool          `json:"isActive"`
	Services        []ServiceInput `json:"services"`
}

// ServiceInput is one line of Input.Services.
type ServiceInput struct {
	ServiceID string `json:"serviceId"`
	Sessions  int    `json:"sessions"`
}

// clone copies p including its service lines.
func (p *Package) clone() *Package {
	cp := *p
	cp.Services = append([]PackageService(nil), p.Services...)
	return &cp
}

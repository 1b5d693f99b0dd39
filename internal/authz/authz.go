// Package authz holds the clinic's role model and the single permission gate
// every service operation goes through.
package authz

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the account role issued by the identity provider.
type Role string

const (
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleCoordinator   Role = "COORDINATOR"
	RolePsychologist  Role = "PSYCHOLOGIST"
	RoleClient        Role = "CLIENT"
)

// ParseRole normalizes a role claim. Unknown roles are rejected.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleAdministrator, RoleCoordinator, RolePsychologist, RoleClient:
		return role, nil
	}
	return "", fmt.Errorf("authz: unknown role %q", raw)
}

// IsStaff reports whether the role belongs to clinic personnel.
func (r Role) IsStaff() bool {
	return r == RoleAdministrator || r == RoleCoordinator || r == RolePsychologist
}

// Action names a guarded operation.
type Action string

const (
	ActionAppointmentCreate  Action = "appointment:create"
	ActionAppointmentUpdate  Action = "appointment:update"
	ActionAppointmentDelete  Action = "appointment:delete"
	ActionAppointmentList    Action = "appointment:list"
	ActionAppointmentListOwn Action = "appointment:list-own"
	ActionAppointmentExport  Action = "appointment:export"
	ActionDashboardView      Action = "dashboard:view"
	ActionRevenueView        Action = "dashboard:revenue"
	ActionClientCount        Action = "dashboard:clients"
	ActionPersonnelList      Action = "personnel:list"
	ActionPersonnelCreate    Action = "personnel:create"
	ActionServiceList        Action = "service:list"
	ActionServiceManage      Action = "service:manage"
	ActionClientList         Action = "client:list"
	ActionClientView         Action = "client:view"
	ActionClientManage       Action = "client:manage"
	ActionClientDelete       Action = "client:delete"
	ActionPackageList        Action = "package:list"
	ActionPackageManage      Action = "package:manage"
	ActionTransactionList    Action = "transaction:list"
	ActionTransactionCreate  Action = "transaction:create"
	ActionTransactionListOwn Action = "transaction:list-own"
	ActionAssignmentList     Action = "assignment:list"
	ActionAssignmentCreate   Action = "assignment:create"
	ActionAssignmentUpdate   Action = "assignment:update"
	ActionAssignmentUpload   Action = "assignment:upload"
	ActionAssignmentDownload Action = "assignment:download"
	ActionAssignmentDelete   Action = "assignment:delete"
)

var (
	everyone = []Role{RoleAdministrator, RoleCoordinator, RolePsychologist, RoleClient}
	staff    = []Role{RoleAdministrator, RoleCoordinator, RolePsychologist}
	managers = []Role{RoleAdministrator, RoleCoordinator}
)

// permissions is the (action, role) -> allow table. Absent pairs deny.
var permissions = map[Action]map[Role]bool{
	ActionAppointmentCreate:  allow(everyone...),
	ActionAppointmentUpdate:  allow(staff...),
	ActionAppointmentDelete:  allow(managers...),
	ActionAppointmentList:    allow(everyone...),
	ActionAppointmentListOwn: allow(RoleClient),
	ActionAppointmentExport:  allow(managers...),
	ActionDashboardView:      allow(staff...),
	ActionRevenueView:        allow(RoleAdministrator),
	ActionClientCount:        allow(managers...),
	ActionPersonnelList:      allow(staff...),
	ActionPersonnelCreate:    allow(RoleAdministrator),
	ActionServiceList:        allow(everyone...),
	ActionServiceManage:      allow(RoleAdministrator),
	ActionClientList:         allow(staff...),
	ActionClientView:         allow(everyone...),
	ActionClientManage:       allow(managers...),
	ActionClientDelete:       allow(RoleAdministrator),
	ActionPackageList:        allow(everyone...),
	ActionPackageManage:      allow(managers...),
	ActionTransactionList:    allow(managers...),
	ActionTransactionCreate:  allow(managers...),
	ActionTransactionListOwn: allow(RoleClient),
	ActionAssignmentList:     allow(everyone...),
	ActionAssignmentCreate:   allow(RoleAdministrator, RolePsychologist),
	ActionAssignmentUpdate:   allow(RoleAdministrator, RolePsychologist, RoleClient),
	ActionAssignmentUpload:   allow(RoleAdministrator, RolePsychologist, RoleClient),
	ActionAssignmentDownload: allow(everyone...),
	ActionAssignmentDelete:   allow(RoleAdministrator, RolePsychologist),
}

func allow(roles ...Role) map[Role]bool {
	out := make(map[Role]bool, len(roles))
	for _, r := range roles {
		out[r] = true
	}
	return out
}

// ErrPermissionDenied is returned when the actor's role may not perform an action
// or the targeted resource is not theirs.
var ErrPermissionDenied = errors.New("insufficient permissions")

// ErrUnauthenticated is returned when no actor is attached to the request.
var ErrUnauthenticated = errors.New("unauthorized")

// Actor is the authenticated caller, passed explicitly into service operations.
type Actor struct {
	UserID      string
	Role        Role
	ClientID    string
	PersonnelID string
}

// Can reports whether the actor's role is allowed to perform action.
func (a Actor) Can(action Action) bool {
	return Allowed(a.Role, action)
}

// Allowed consults the permission table.
func Allowed(role Role, action Action) bool {
	return permissions[action][role]
}

// Authorize is the single gate used by services.
func Authorize(actor Actor, action Action) error {
	if actor.UserID == "" || actor.Role == "" {
		return ErrUnauthenticated
	}
	if !Allowed(actor.Role, action) {
		return fmt.Errorf("%w: %s cannot %s", ErrPermissionDenied, actor.Role, action)
	}
	return nil
}

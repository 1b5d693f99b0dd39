package authz

import (
	"context"
	"errors"
	"testing"
)

func TestAuthorizeTable(t *testing.T) {
	tests := []struct {
		action Action
		role   Role
		want   bool
	}{
		{ActionAppointmentCreate, RoleClient, true},
		{ActionAppointmentCreate, RolePsychologist, true},
		{ActionAppointmentUpdate, RoleClient, false},
		{ActionAppointmentUpdate, RolePsychologist, true},
		{ActionAppointmentDelete, RolePsychologist, false},
		{ActionAppointmentDelete, RoleCoordinator, true},
		{ActionAppointmentDelete, RoleAdministrator, true},
		{ActionRevenueView, RoleCoordinator, false},
		{ActionRevenueView, RoleAdministrator, true},
		{ActionTransactionCreate, RolePsychologist, false},
		{ActionAssignmentCreate, RoleCoordinator, false},
		{ActionAssignmentCreate, RolePsychologist, true},
		{ActionAssignmentUpdate, RoleCoordinator, false},
		{ActionAssignmentDelete, RoleClient, false},
		{ActionClientList, RoleClient, false},
		{ActionClientList, RolePsychologist, true},
		{ActionClientManage, RolePsychologist, false},
		{ActionClientManage, RoleCoordinator, true},
		{ActionClientDelete, RoleCoordinator, false},
		{ActionClientDelete, RoleAdministrator, true},
		{ActionPersonnelCreate, RoleCoordinator, false},
		{ActionServiceManage, RoleCoordinator, false},
		{ActionServiceManage, RoleAdministrator, true},
		{ActionPackageList, RoleClient, true},
		{ActionPackageManage, RolePsychologist, false},
		{ActionPackageManage, RoleCoordinator, true},
		{Action("unknown:action"), RoleAdministrator, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+string(tt.role), func(t *testing.T) {
			err := Authorize(Actor{UserID: "u1", Role: tt.role}, tt.action)
			if tt.want && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tt.want && !errors.Is(err, ErrPermissionDenied) {
				t.Fatalf("expected ErrPermissionDenied, got %v", err)
			}
		})
	}
}

func TestAuthorizeRequiresIdentity(t *testing.T) {
	err := Authorize(Actor{Role: RoleAdministrator}, ActionAppointmentList)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" psychologist ")
	if err != nil || role != RolePsychologist {
		t.Fatalf("expected PSYCHOLOGIST, got %q (%v)", role, err)
	}
	if _, err := ParseRole("JANITOR"); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
	if !RoleCoordinator.IsStaff() || RoleClient.IsStaff() {
		t.Fatal("unexpected IsStaff result")
	}
}

func TestActorContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := ActorFromContext(ctx); ok {
		t.Fatal("expected no actor in empty context")
	}
	actor := Actor{UserID: "user-1", Role: RoleClient, ClientID: "client-1"}
	got, ok := ActorFromContext(WithActor(ctx, actor))
	if !ok || got != actor {
		t.Fatalf("expected %+v, got %+v (ok=%v)", actor, got, ok)
	}
}

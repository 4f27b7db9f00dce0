package auth

import (
	"errors"
	"testing"
)

func masterIdentity() Identity {
	return Identity{
		AccountID: "01MASTER000000000000000000",
		Email:     "master@example.org",
		Role:      RoleMasterAdmin,
		Scope:     ScopeAll(),
	}
}

func adminIdentity(barangay string) Identity {
	return Identity{
		AccountID: "01ADMIN0000000000000000000",
		Email:     "admin@example.org",
		Role:      RoleAdmin,
		Scope:     ScopeBarangay(barangay),
	}
}

func TestAuthorizePolicyTable(t *testing.T) {
	master := masterIdentity()
	admin := adminIdentity("San Isidro")

	cases := []struct {
		name     string
		identity Identity
		action   Action
		target   *Target
		allowed  bool
		reason   DenyReason
		allScope bool
	}{
		{
			name:     "master manages accounts",
			identity: master,
			action:   ActionManageAccounts,
			allowed:  true,
			allScope: true,
		},
		{
			name:     "admin cannot manage accounts",
			identity: admin,
			action:   ActionManageAccounts,
			reason:   DenyInsufficientRole,
		},
		{
			name:     "master deletes an admin",
			identity: master,
			action:   ActionDeleteAccount,
			target:   &Target{AccountID: "x", Role: RoleAdmin},
			allowed:  true,
			allScope: true,
		},
		{
			name:     "master cannot delete a master",
			identity: master,
			action:   ActionDeleteAccount,
			target:   &Target{AccountID: "x", Role: RoleMasterAdmin},
			reason:   DenyProtected,
		},
		{
			name:     "admin cannot delete a master",
			identity: admin,
			action:   ActionDeleteAccount,
			target:   &Target{AccountID: "x", Role: RoleMasterAdmin},
			reason:   DenyProtected,
		},
		{
			name:     "admin cannot delete an admin",
			identity: admin,
			action:   ActionDeleteAccount,
			target:   &Target{AccountID: "x", Role: RoleAdmin},
			reason:   DenyInsufficientRole,
		},
		{
			name:     "master reads students everywhere",
			identity: master,
			action:   ActionReadStudents,
			target:   &Target{Barangay: "Poblacion"},
			allowed:  true,
			allScope: true,
		},
		{
			name:     "admin reads students in own barangay",
			identity: admin,
			action:   ActionReadStudents,
			target:   &Target{Barangay: "San Isidro"},
			allowed:  true,
		},
		{
			name:     "admin cannot read students elsewhere",
			identity: admin,
			action:   ActionReadStudents,
			target:   &Target{Barangay: "Poblacion"},
			reason:   DenyOutOfScope,
		},
		{
			name:     "admin writes students in own barangay",
			identity: admin,
			action:   ActionWriteStudents,
			target:   &Target{Barangay: "San Isidro"},
			allowed:  true,
		},
		{
			name:     "admin cannot write students elsewhere",
			identity: admin,
			action:   ActionWriteStudents,
			target:   &Target{Barangay: "Poblacion"},
			reason:   DenyOutOfScope,
		},
		{
			name:     "admin lists students without target",
			identity: admin,
			action:   ActionReadStudents,
			allowed:  true,
		},
		{
			name:     "self update allowed",
			identity: admin,
			action:   ActionSelfUpdate,
			target:   &Target{AccountID: admin.AccountID},
			allowed:  true,
		},
		{
			name:     "self update of someone else denied",
			identity: admin,
			action:   ActionSelfUpdate,
			target:   &Target{AccountID: "someone-else"},
			reason:   DenyInsufficientRole,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			decision, err := Authorize(c.identity, c.action, c.target)
			if err != nil {
				t.Fatal(err)
			}
			if decision.Allowed != c.allowed {
				t.Fatalf("allowed = %v, want %v (reason %q)", decision.Allowed, c.allowed, decision.Reason)
			}
			if !c.allowed && decision.Reason != c.reason {
				t.Fatalf("reason = %q, want %q", decision.Reason, c.reason)
			}
			if c.allowed && decision.Scope.All != c.allScope {
				t.Fatalf("scope.All = %v, want %v", decision.Scope.All, c.allScope)
			}
			if c.allowed && !c.allScope && decision.Scope.Barangay != c.identity.Scope.Barangay {
				t.Fatalf("effective scope %+v should mirror the identity's", decision.Scope)
			}
		})
	}
}

func TestAuthorizeIsIdempotent(t *testing.T) {
	admin := adminIdentity("San Isidro")
	target := &Target{Barangay: "Poblacion"}

	first, err := Authorize(admin, ActionReadStudents, target)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Authorize(admin, ActionReadStudents, target)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("same inputs produced different decisions: %+v vs %+v", first, second)
	}
}

func TestAuthorizeBrokenAdminScopeIsFault(t *testing.T) {
	broken := Identity{
		AccountID: "01ADMIN0000000000000000000",
		Role:      RoleAdmin,
		Scope:     Scope{},
	}
	for _, action := range []Action{ActionReadStudents, ActionWriteStudents, ActionManageAccounts} {
		if _, err := Authorize(broken, action, nil); !errors.Is(err, ErrScopeIntegrity) {
			t.Fatalf("Authorize(%s) = %v, want ErrScopeIntegrity", action, err)
		}
	}
}

func TestAuthorizeUnknownAction(t *testing.T) {
	if _, err := Authorize(masterIdentity(), Action("reports.export"), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown action, got %v", err)
	}
}

func TestScopeContains(t *testing.T) {
	all := ScopeAll()
	one := ScopeBarangay("San Isidro")

	if !all.Contains("anything") || !all.Contains("") {
		t.Fatal("all scope must contain every barangay")
	}
	if !one.Contains("San Isidro") {
		t.Fatal("scope must contain its own barangay")
	}
	if one.Contains("Poblacion") || one.Contains("") {
		t.Fatal("scope must not contain other or empty barangays")
	}
}

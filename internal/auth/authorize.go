package auth

import "fmt"

// Action classifies what a request wants to do. Every handler that touches
// protected data asks Authorize with one of these; role checks live nowhere
// else.
type Action string

const (
	// ActionManageAccounts covers creating, listing, reading and editing
	// console accounts.
	ActionManageAccounts Action = "accounts.manage"
	// ActionDeleteAccount is separate because deletion carries the master
	// admin protection rule.
	ActionDeleteAccount Action = "accounts.delete"
	// ActionSelfUpdate lets any account edit its own non-privileged fields.
	ActionSelfUpdate Action = "accounts.self_update"
	// ActionReadStudents and ActionWriteStudents cover scholar records.
	ActionReadStudents  Action = "students.read"
	ActionWriteStudents Action = "students.write"
)

// DenyReason says why the policy said no.
type DenyReason string

const (
	DenyInsufficientRole DenyReason = "insufficient_role"
	DenyOutOfScope       DenyReason = "out_of_scope"
	DenyProtected        DenyReason = "protected"
)

// Target identifies the record an action is aimed at, when there is one.
// List and create calls with no single target pass nil.
type Target struct {
	AccountID string
	Role      Role
	Barangay  string
}

// Decision is the policy's answer for one identity, action, target triple.
// Scope is the effective visibility for reads and is meaningful only when
// Allowed is true.
type Decision struct {
	Allowed bool
	Scope   Scope
	Reason  DenyReason
}

func allow(scope Scope) Decision { return Decision{Allowed: true, Scope: scope} }
func deny(why DenyReason) Decision { return Decision{Reason: why} }

// Authorize evaluates the policy table. It is a pure function of its inputs,
// so the same triple always yields the same decision. The only error paths
// are integrity faults: an admin identity with no scope, or an action the
// table does not know.
func Authorize(identity Identity, action Action, target *Target) (Decision, error) {
	if identity.Role == RoleAdmin && !identity.Scope.All && identity.Scope.Barangay == "" {
		return Decision{}, ErrScopeIntegrity
	}

	switch action {
	case ActionDeleteAccount:
		// The protection rule outranks role: nobody deletes a master admin
		// through this console.
		if target != nil && target.Role == RoleMasterAdmin {
			return deny(DenyProtected), nil
		}
		if identity.Role != RoleMasterAdmin {
			return deny(DenyInsufficientRole), nil
		}
		return allow(ScopeAll()), nil

	case ActionManageAccounts:
		if identity.Role != RoleMasterAdmin {
			return deny(DenyInsufficientRole), nil
		}
		return allow(ScopeAll()), nil

	case ActionSelfUpdate:
		if target == nil || target.AccountID != identity.AccountID {
			return deny(DenyInsufficientRole), nil
		}
		return allow(identity.Scope), nil

	case ActionReadStudents, ActionWriteStudents:
		if identity.Role == RoleMasterAdmin {
			return allow(ScopeAll()), nil
		}
		if target != nil && target.Barangay != "" && !identity.Scope.Contains(target.Barangay) {
			return deny(DenyOutOfScope), nil
		}
		return allow(identity.Scope), nil

	default:
		return Decision{}, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}
}

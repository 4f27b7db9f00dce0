package httpapi

import (
	"net/http"
	"strings"

	"iskolar.org/internal/auth"
)

type createAccountRequest struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
	Barangay string    `json:"barangay"`
}

type updateAccountRequest struct {
	Email    *string    `json:"email"`
	Name     *string    `json:"name"`
	Password *string    `json:"password"`
	Role     *auth.Role `json:"role"`
	Barangay *string    `json:"barangay"`
}

type accountListResponse struct {
	Accounts []auth.AccountView `json:"accounts"`
	Count    int                `json:"count"`
}

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := a.authorize(w, r, identity, auth.ActionManageAccounts, nil); !ok {
			return
		}
		accounts, err := a.auth.ListAccounts(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		views := make([]auth.AccountView, 0, len(accounts))
		for _, account := range accounts {
			views = append(views, account.View())
		}
		writeJSON(w, http.StatusOK, accountListResponse{Accounts: views, Count: len(views)})

	case http.MethodPost:
		if _, ok := a.authorize(w, r, identity, auth.ActionManageAccounts, nil); !ok {
			return
		}
		var req createAccountRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		account, err := a.auth.CreateAccount(r.Context(), auth.CreateAccountParams{
			Email:    req.Email,
			Name:     req.Name,
			Password: req.Password,
			Role:     req.Role,
			Barangay: req.Barangay,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.record(r.Context(), "account.created", map[string]any{
			"account_id": account.ID,
			"email":      account.Email,
			"role":       string(account.Role),
			"barangay":   account.Barangay,
		})
		writeJSON(w, http.StatusCreated, account.View())

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getAccount(w, r, identity, id)
	case http.MethodPut:
		a.updateAccount(w, r, identity, id)
	case http.MethodDelete:
		a.deleteAccount(w, r, identity, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// accountAction picks the policy action for a resource request. Touching your
// own record is self service; everything else is account management.
func accountAction(identity auth.Identity, id string) auth.Action {
	if id == identity.AccountID {
		return auth.ActionSelfUpdate
	}
	return auth.ActionManageAccounts
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request, identity auth.Identity, id string) {
	if _, ok := a.authorize(w, r, identity, accountAction(identity, id), &auth.Target{AccountID: id}); !ok {
		return
	}
	account, err := a.auth.GetAccount(r.Context(), id)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account.View())
}

func (a *API) updateAccount(w http.ResponseWriter, r *http.Request, identity auth.Identity, id string) {
	action := accountAction(identity, id)
	if _, ok := a.authorize(w, r, identity, action, &auth.Target{AccountID: id}); !ok {
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// Self service stops at name and password. Email, role and barangay
	// changes go through a master admin, including for the caller's own
	// account.
	if action == auth.ActionSelfUpdate && identity.Role != auth.RoleMasterAdmin &&
		(req.Email != nil || req.Role != nil || req.Barangay != nil) {
		writeDenied(w, r, auth.Decision{Reason: auth.DenyInsufficientRole})
		return
	}

	account, err := a.auth.UpdateAccount(r.Context(), id, auth.UpdateAccountParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
		Barangay: req.Barangay,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.record(r.Context(), "account.updated", map[string]any{
		"account_id": account.ID,
		"fields":     updatedFields(req),
	})
	writeJSON(w, http.StatusOK, account.View())
}

func (a *API) deleteAccount(w http.ResponseWriter, r *http.Request, identity auth.Identity, id string) {
	// Refuse non-masters before touching the store so the answer cannot
	// reveal whether the id exists.
	if _, ok := a.authorize(w, r, identity, auth.ActionDeleteAccount, nil); !ok {
		return
	}
	account, err := a.auth.GetAccount(r.Context(), id)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if _, ok := a.authorize(w, r, identity, auth.ActionDeleteAccount, &auth.Target{
		AccountID: account.ID,
		Role:      account.Role,
	}); !ok {
		return
	}
	if err := a.auth.DeleteAccount(r.Context(), id); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.record(r.Context(), "account.deleted", map[string]any{
		"account_id": account.ID,
		"email":      account.Email,
	})
	w.WriteHeader(http.StatusNoContent)
}

func updatedFields(req updateAccountRequest) []string {
	fields := make([]string, 0, 5)
	if req.Email != nil {
		fields = append(fields, "email")
	}
	if req.Name != nil {
		fields = append(fields, "name")
	}
	if req.Password != nil {
		fields = append(fields, "password")
	}
	if req.Role != nil {
		fields = append(fields, "role")
	}
	if req.Barangay != nil {
		fields = append(fields, "barangay")
	}
	return fields
}

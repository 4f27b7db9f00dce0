package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"iskolar.org/internal/auth"
	"iskolar.org/internal/student"
)

type studentRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Barangay  string `json:"barangay"`
	School    string `json:"school"`
	YearLevel string `json:"year_level"`
	Status    string `json:"status"`
}

type studentListResponse struct {
	Students []*student.Student `json:"students"`
	Count    int                `json:"count"`
}

func (a *API) handleStudentsCollection(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.listStudents(w, r, identity)
	case http.MethodPost:
		a.createStudent(w, r, identity)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listStudents(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	q := r.URL.Query()

	// An explicit barangay param becomes the authorization target, so asking
	// for another admin's barangay is refused rather than silently emptied.
	requested := strings.TrimSpace(q.Get("barangay"))
	var target *auth.Target
	if requested != "" {
		target = &auth.Target{Barangay: requested}
	}
	decision, ok := a.authorize(w, r, identity, auth.ActionReadStudents, target)
	if !ok {
		return
	}

	status := strings.ToLower(strings.TrimSpace(q.Get("status")))
	if status != "" && !student.ValidStatus(status) {
		writeError(w, r, http.StatusBadRequest, "unsupported status "+strconv.Quote(status))
		return
	}
	limit, err := parsePageParam(q.Get("limit"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	offset, err := parsePageParam(q.Get("offset"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	filter := student.Filter{
		Barangay: requested,
		Status:   status,
		Limit:    limit,
		Offset:   offset,
	}
	if !decision.Scope.All && filter.Barangay == "" {
		filter.Barangay = decision.Scope.Barangay
	}

	students, err := a.students.List(r.Context(), filter)
	if err != nil {
		handleStudentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, studentListResponse{Students: students, Count: len(students)})
}

func (a *API) createStudent(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req studentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// Barangay admins may omit the barangay; the record lands in their own.
	if strings.TrimSpace(req.Barangay) == "" && !identity.Scope.All {
		req.Barangay = identity.Scope.Barangay
	}
	if _, ok := a.authorize(w, r, identity, auth.ActionWriteStudents, &auth.Target{Barangay: strings.TrimSpace(req.Barangay)}); !ok {
		return
	}

	s := &student.Student{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Barangay:  req.Barangay,
		School:    req.School,
		YearLevel: req.YearLevel,
		Status:    req.Status,
	}
	if err := a.students.Create(r.Context(), s); err != nil {
		handleStudentError(w, r, err)
		return
	}
	a.record(r.Context(), "student.created", map[string]any{
		"student_id": s.ID,
		"barangay":   s.Barangay,
	})
	writeJSON(w, http.StatusCreated, s)
}

func (a *API) handleStudentResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/students/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}

	current, err := a.students.Get(r.Context(), id)
	if err != nil {
		handleStudentError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := a.authorize(w, r, identity, auth.ActionReadStudents, &auth.Target{Barangay: current.Barangay}); !ok {
			return
		}
		writeJSON(w, http.StatusOK, current)

	case http.MethodPut:
		a.updateStudent(w, r, identity, current)

	case http.MethodDelete:
		if _, ok := a.authorize(w, r, identity, auth.ActionWriteStudents, &auth.Target{Barangay: current.Barangay}); !ok {
			return
		}
		if err := a.students.Delete(r.Context(), id); err != nil {
			handleStudentError(w, r, err)
			return
		}
		a.record(r.Context(), "student.deleted", map[string]any{
			"student_id": current.ID,
			"barangay":   current.Barangay,
		})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) updateStudent(w http.ResponseWriter, r *http.Request, identity auth.Identity, current *student.Student) {
	// The caller must control the record where it lives today.
	if _, ok := a.authorize(w, r, identity, auth.ActionWriteStudents, &auth.Target{Barangay: current.Barangay}); !ok {
		return
	}

	var req studentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Barangay) == "" {
		req.Barangay = current.Barangay
	}
	// Moving a record also needs authority over the destination barangay.
	if dest := strings.TrimSpace(req.Barangay); dest != current.Barangay {
		if _, ok := a.authorize(w, r, identity, auth.ActionWriteStudents, &auth.Target{Barangay: dest}); !ok {
			return
		}
	}

	updated := &student.Student{
		ID:        current.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Barangay:  req.Barangay,
		School:    req.School,
		YearLevel: req.YearLevel,
		Status:    req.Status,
	}
	if err := a.students.Update(r.Context(), updated); err != nil {
		handleStudentError(w, r, err)
		return
	}
	a.record(r.Context(), "student.updated", map[string]any{
		"student_id": updated.ID,
		"barangay":   updated.Barangay,
	})
	writeJSON(w, http.StatusOK, updated)
}

func parsePageParam(v string) (int, error) {
	if strings.TrimSpace(v) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

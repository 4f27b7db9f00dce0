package student

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status tracks where a scholar stands in the program.
const (
	StatusActive    = "active"
	StatusGraduated = "graduated"
	StatusDropped   = "dropped"
)

// Student is one scholar record kept by the console. Barangay is the scoping
// field: barangay admins only ever see records matching their assignment.
type Student struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Barangay  string    `json:"barangay"`
	School    string    `json:"school"`
	YearLevel string    `json:"year_level,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows list reads. An empty Barangay means no barangay constraint;
// the HTTP layer fills it from the caller's effective scope.
type Filter struct {
	Barangay string
	Status   string
	Limit    int
	Offset   int
}

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Clamp bounds the page size so one list call cannot drag the whole table.
func (f Filter) Clamp() Filter {
	if f.Limit <= 0 || f.Limit > maxLimit {
		f.Limit = defaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

var (
	ErrNotFound     = errors.New("student: not found")
	ErrInvalidInput = errors.New("student: invalid input")
)

// Normalize trims the free-text fields and defaults the status.
func (s *Student) Normalize() {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	s.Barangay = strings.TrimSpace(s.Barangay)
	s.School = strings.TrimSpace(s.School)
	s.YearLevel = strings.TrimSpace(s.YearLevel)
	s.Status = strings.ToLower(strings.TrimSpace(s.Status))
	if s.Status == "" {
		s.Status = StatusActive
	}
}

// Validate reports the first field that disqualifies the record.
func (s *Student) Validate() error {
	if s.FirstName == "" || s.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if s.Barangay == "" {
		return fmt.Errorf("%w: barangay is required", ErrInvalidInput)
	}
	if !ValidStatus(s.Status) {
		return fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, s.Status)
	}
	return nil
}

// ValidStatus reports whether the status is one of the known values.
func ValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusGraduated, StatusDropped:
		return true
	}
	return false
}

package models

import "time"

// UserRole gates access through the RBAC middleware.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStudent UserRole = "STUDENT"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// User is a row of the users table. Only students carry a roll number.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	RollNumber   *string    `db:"roll_number" json:"roll_number,omitempty"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActiveAdmin reports whether u can administer the class.
func (u *User) IsActiveAdmin() bool {
	return u != nil && u.Active && u.Role == RoleAdmin
}

// UserSort names a sortable users column.
type UserSort string

const (
	SortByCreated UserSort = "created_at"
	SortByEmail   UserSort = "email"
	SortByName    UserSort = "full_name"
	SortByRoll    UserSort = "roll_number"
)

func (s UserSort) Valid() bool {
	switch s {
	case SortByCreated, SortByEmail, SortByName, SortByRoll:
		return true
	}
	return false
}

// UserFilter narrows a user listing. The repository expects it normalised:
// a valid Sort, Page >= 1 and PageSize in 1..100.
type UserFilter struct {
	Role     *UserRole
	Active   *bool
	Search   string
	Page     int
	PageSize int
	Sort     UserSort
	Desc     bool
}

// Offset is the number of rows skipped before the current page.
func (f UserFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Pagination is the page metadata of list envelopes.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// StudentRef is the slice of a student the roster and reports need.
type StudentRef struct {
	ID         string `db:"id" json:"id"`
	RollNumber string `db:"roll_number" json:"roll_number"`
	FullName   string `db:"full_name" json:"full_name"`
	Email      string `db:"email" json:"email"`
}

// UpdateUserRequest renames or (de)activates an account.
type UpdateUserRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=2,max=120"`
	Active   *bool   `json:"active"`
}

package models

import "errors"

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrMemberNotFound   = errors.New("project member not found")
	ErrRoleNotFound     = errors.New("role not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrUserNotFound     = errors.New("user not found")

	ErrAlreadyMember  = errors.New("user is already a member of this project")
	ErrDuplicateRole  = errors.New("role name already exists")
	ErrDuplicateEmail = errors.New("a customer with this email already exists")
	ErrCustomerInUse  = errors.New("customer is linked to projects owned by other users")
)

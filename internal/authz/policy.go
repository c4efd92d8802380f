// Package authz holds the single authorization policy consulted by every
// protected operation.
package authz

import (
	"fmt"

	"storefront/internal/domain"
)

// Action is an operation a principal attempts on a resource
type Action string

const (
	ActionReadOrder         Action = "order:read"
	ActionUpdateOrderStatus Action = "order:update_status"
	ActionManageProducts    Action = "product:manage"
)

// Principal is the authenticated caller
type Principal struct {
	UserID int64
	Role   domain.Role
}

// IsAdmin reports whether the principal holds the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == domain.RoleAdmin
}

// Resource describes what is being accessed. OwnerID is zero for resources
// without an owner.
type Resource struct {
	OwnerID int64
}

// Authorize returns nil when requester may perform action on resource and
// an error wrapping domain.ErrForbidden otherwise.
func Authorize(requester Principal, resource Resource, action Action) error {
	switch action {
	case ActionReadOrder:
		if requester.IsAdmin() || (resource.OwnerID != 0 && requester.UserID == resource.OwnerID) {
			return nil
		}
		return fmt.Errorf("%w: not authorized to view this order", domain.ErrForbidden)
	case ActionUpdateOrderStatus, ActionManageProducts:
		if requester.IsAdmin() {
			return nil
		}
		return fmt.Errorf("%w: admin access required", domain.ErrForbidden)
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrForbidden, action)
	}
}

// Package chat decides whether a user may open a conversation with another.
//
// Helpers may only reach out to people whose open needs fall in a category
// they committed to. Admins are unrestricted. Replies inside an existing
// conversation are not gated here.
package chat

import (
	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/model"
)

// ReasonNoMatchingCategories is the denial code when the initiator's
// categories do not cover any of the target's needs.
const ReasonNoMatchingCategories = "no_matching_categories"

const noMatchMessage = "You can only contact people who need help in a category you committed to help with."

// Initiator is the subset of the requesting user the gate needs.
type Initiator struct {
	Role           model.Role
	HelpCategories category.Set
}

// Decision is the outcome of an eligibility check. Reason is nil and
// Message empty when Allowed.
type Decision struct {
	Allowed bool    `json:"can_chat"`
	Reason  *string `json:"reason"`
	Message string  `json:"message,omitempty"`
}

// ReasonCode returns the denial code, or "" when allowed.
func (d Decision) ReasonCode() string {
	if d.Reason == nil {
		return ""
	}
	return *d.Reason
}

func deny(code, message string) Decision {
	return Decision{Allowed: false, Reason: &code, Message: message}
}

// CanInitiate applies the category rule: admins always pass, targets with
// no open needs are open to everyone, otherwise the sets must intersect.
func CanInitiate(initiator Initiator, targetNeeds category.Set) Decision {
	if initiator.Role == model.RoleAdmin {
		return Decision{Allowed: true}
	}
	if len(targetNeeds) == 0 {
		return Decision{Allowed: true}
	}
	if initiator.HelpCategories.Intersects(targetNeeds) {
		return Decision{Allowed: true}
	}
	return deny(ReasonNoMatchingCategories, noMatchMessage)
}

package chat

import (
	"github.com/rotisserie/eris"

	"github.com/watizat/helpmap/internal/category"
)

// ErrInvalidSelfChat is returned when a user tries to open a chat with
// themselves.
var ErrInvalidSelfChat = eris.New("chat: cannot chat with self")

// Gate is the stateless entry point used by the service layer.
type Gate struct{}

// Evaluate rejects self-chat and otherwise defers to CanInitiate.
func (Gate) Evaluate(initiatorID, targetID string, initiator Initiator, targetNeeds category.Set) (Decision, error) {
	if initiatorID == targetID {
		return Decision{}, eris.Wrapf(ErrInvalidSelfChat, "user %s", initiatorID)
	}
	return CanInitiate(initiator, targetNeeds), nil
}

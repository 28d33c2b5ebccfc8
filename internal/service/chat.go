package service

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/chat"
	"github.com/watizat/helpmap/internal/events"
	"github.com/watizat/helpmap/internal/model"
	"github.com/watizat/helpmap/internal/store"
)

// ErrUserNotFound is returned when either side of a chat check is unknown.
var ErrUserNotFound = eris.New("service: user not found")

// ChatService decides whether one user may open a conversation with another.
type ChatService struct {
	store     store.Store
	publisher events.Publisher
	gate      chat.Gate
	now       func() time.Time
}

// NewChatService creates a ChatService. A nil publisher disables events.
func NewChatService(st store.Store, pub events.Publisher) *ChatService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &ChatService{store: st, publisher: pub, now: time.Now}
}

// CanChat evaluates the gate for initiatorID contacting targetID. The
// initiator, the target and the target's open needs are read concurrently.
func (s *ChatService) CanChat(ctx context.Context, initiatorID, targetID string) (chat.Decision, error) {
	if initiatorID == targetID {
		return s.gate.Evaluate(initiatorID, targetID, chat.Initiator{}, nil)
	}

	var (
		initiator, target *model.User
		needs             category.Set
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.store.GetUser(gctx, initiatorID)
		if err != nil {
			return eris.Wrapf(err, "service: get initiator %s", initiatorID)
		}
		initiator = u
		return nil
	})
	g.Go(func() error {
		u, err := s.store.GetUser(gctx, targetID)
		if err != nil {
			return eris.Wrapf(err, "service: get target %s", targetID)
		}
		target = u
		return nil
	})
	g.Go(func() error {
		set, err := s.store.OpenNeedCategories(gctx, targetID)
		if err != nil {
			return eris.Wrapf(err, "service: open needs of %s", targetID)
		}
		needs = set
		return nil
	})
	if err := g.Wait(); err != nil {
		return chat.Decision{}, err
	}

	if initiator == nil {
		return chat.Decision{}, eris.Wrapf(ErrUserNotFound, "initiator %s", initiatorID)
	}
	if target == nil {
		return chat.Decision{}, eris.Wrapf(ErrUserNotFound, "target %s", targetID)
	}

	d, err := s.gate.Evaluate(initiatorID, targetID, chat.Initiator{
		Role:           initiator.Role,
		HelpCategories: initiator.HelpCategories,
	}, needs)
	if err != nil {
		return chat.Decision{}, err
	}

	s.publish(ctx, events.ChatDecision{
		InitiatorID: initiatorID,
		TargetID:    targetID,
		Allowed:     d.Allowed,
		Reason:      d.ReasonCode(),
		At:          s.now().UTC(),
	})
	return d, nil
}

func (s *ChatService) publish(ctx context.Context, ev events.ChatDecision) {
	if err := s.publisher.PublishChatDecision(ctx, ev); err != nil {
		zap.L().Warn("service: publish chat decision failed",
			zap.String("initiator_id", ev.InitiatorID),
			zap.String("target_id", ev.TargetID),
			zap.Error(err),
		)
	}
}

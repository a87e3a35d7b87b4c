// Package notify fans one classified change out to every user entitled to
// see the affected list.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jacentio/listsync/repo"
	"github.com/jacentio/listsync/store"
)

// Mutation names pushed to the subscription API.
const (
	ItemMutation       = "onTodoItemChange"
	MembershipMutation = "onUserToListChange"
)

// Variables is the variable set every outbound mutation carries. Type is
// the store's raw event name, passed through verbatim
// (INSERT, MODIFY, REMOVE).
type Variables struct {
	Username string `json:"username"`
	Type     string `json:"type"`
	Item     any    `json:"item"`
}

// Mutator is the outbound subscription transport. Implementations push one
// GraphQL mutation per call.
type Mutator interface {
	Mutate(ctx context.Context, mutation string, vars Variables) error
}

// TodoItemChange is the item field set subscribers receive.
type TodoItemChange struct {
	ListID      string `json:"listId"`
	TodoID      string `json:"todoId"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	Name        string `json:"name,omitempty"`
	Status      string `json:"status,omitempty"`
}

// MembershipChange is the membership field set subscribers receive.
type MembershipChange struct {
	ListID string `json:"listId"`
	UserID string `json:"userId"`
	Role   int    `json:"role"`
}

// Service resolves the subscribers interested in a change and emits one
// outbound mutation per subscriber.
type Service struct {
	config      store.Config
	memberships *repo.MembershipRepo
	mutator     Mutator
	logger      *slog.Logger
}

// NewService creates a fan-out service.
func NewService(cfg store.Config, memberships *repo.MembershipRepo, mutator Mutator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config:      cfg,
		memberships: memberships,
		mutator:     mutator,
		logger:      logger,
	}
}

// OnItemChanged notifies every member of the item's list. Deliveries run
// concurrently and independently: one member's failure is logged and
// swallowed, never fails the others, and is not retried here.
func (s *Service) OnItemChanged(ctx context.Context, listID, changeKind string, item store.Record) error {
	members, err := s.memberships.FindAllByList(ctx, listID)
	if err != nil {
		return fmt.Errorf("resolve members of list %s: %w", listID, err)
	}

	payload := s.itemChange(item)

	var g errgroup.Group
	for _, m := range members {
		username := m.UserID
		g.Go(func() error {
			err := s.mutator.Mutate(ctx, ItemMutation, Variables{
				Username: username,
				Type:     changeKind,
				Item:     payload,
			})
			if err != nil {
				s.logger.Error("failed to deliver item change",
					"username", username,
					"listId", listID,
					"type", changeKind,
					"error", err,
				)
			}
			return nil
		})
	}
	g.Wait()

	s.logger.Info("notified list members", "listId", listID, "members", len(members), "type", changeKind)
	return nil
}

// OnMembershipChanged notifies exactly the user whose membership changed.
func (s *Service) OnMembershipChanged(ctx context.Context, userID, changeKind string, membership store.Record) error {
	return s.mutator.Mutate(ctx, MembershipMutation, Variables{
		Username: userID,
		Type:     changeKind,
		Item:     s.membershipChange(membership),
	})
}

func (s *Service) itemChange(item store.Record) TodoItemChange {
	return TodoItemChange{
		ListID:      item.String(s.config.ItemPartitionKey),
		TodoID:      item.String(s.config.ItemSortKey),
		Description: item.String("description"),
		DueDate:     item.String("dueDate"),
		Name:        item.String("name"),
		Status:      item.String("status"),
	}
}

func (s *Service) membershipChange(membership store.Record) MembershipChange {
	change := MembershipChange{
		UserID: membership.String(s.config.MembershipPartitionKey),
		ListID: membership.String(s.config.MembershipSortKey),
	}
	switch role := membership["role"].(type) {
	case float64:
		change.Role = int(role)
	case int:
		change.Role = role
	}
	return change
}

// Package group manages settlement groups and their membership.
package group

import (
	"context"
	"log/slog"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/models"
	"github.com/deepflow/settlement/internal/storage"
)

// Service creates groups and manages who belongs to them.
type Service struct {
	store storage.Store
}

// NewService creates a new group service with the given storage backend.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Create makes a new group. The creator always ends up a member, and every
// listed member must be a registered user.
func (s *Service) Create(ctx context.Context, callerID, name string, memberIDs []string) (*models.Group, error) {
	if name == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "group name required")
	}

	members := append([]string{callerID}, memberIDs...)
	seen := make(map[string]bool, len(members))
	deduped := members[:0]
	for _, id := range members {
		if !seen[id] {
			seen[id] = true
			deduped = append(deduped, id)
		}
	}

	users, err := s.store.GetUsersByIDs(ctx, deduped)
	if err != nil {
		return nil, err
	}
	for _, id := range deduped {
		if users[id] == nil {
			return nil, apperr.Newf(apperr.CodeUserNotFound, "user %s not found", id)
		}
	}

	group := &models.Group{Name: name, Members: deduped}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	slog.Info("group created", "group_id", group.ID, "name", name, "members", len(group.Members))
	return group, nil
}

// Get retrieves a group. Only members may look.
func (s *Service) Get(ctx context.Context, callerID, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(callerID) {
		return nil, apperr.Newf(apperr.CodeNotGroupMember, "user %s is not a member of group %s", callerID, groupID)
	}
	return group, nil
}

// AddMembers invites users into a group. The caller must already be a member,
// and every invitee must be a registered user. Re-adding an existing member
// is a no-op.
func (s *Service) AddMembers(ctx context.Context, callerID, groupID string, userIDs []string) (*models.Group, error) {
	if len(userIDs) == 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "no members given")
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(callerID) {
		return nil, apperr.Newf(apperr.CodeNotGroupMember, "user %s is not a member of group %s", callerID, groupID)
	}

	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range userIDs {
		if users[id] == nil {
			return nil, apperr.Newf(apperr.CodeUserNotFound, "user %s not found", id)
		}
	}

	if err := s.store.AddGroupMembers(ctx, groupID, userIDs); err != nil {
		return nil, err
	}

	slog.Info("group members added", "group_id", groupID, "added", len(userIDs))
	return s.store.GetGroup(ctx, groupID)
}

package websocket

import (
	"context"

	"agenthub/internal/repository"

	"github.com/google/uuid"
)

// RepoDirectory adapts the user repository to the AssigneeDirectory the
// search session consumes.
type RepoDirectory struct {
	users repository.UserRepository
}

func NewRepoDirectory(users repository.UserRepository) *RepoDirectory {
	return &RepoDirectory{users: users}
}

func (d *RepoDirectory) SearchAssignees(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]AssigneeHit, error) {
	users, err := d.users.Search(ctx, tenantID, query, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]AssigneeHit, 0, len(users))
	for _, u := range users {
		hits = append(hits, AssigneeHit{
			ID:       u.ID.String(),
			Username: u.Username,
			Email:    u.Email,
			FullName: u.FullName,
			Role:     u.Role,
		})
	}
	return hits, nil
}

package dashboard

import (
	"context"
	"fmt"

	"github.com/questcraft/rewards-cms/internal/rewards"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
)

// RecentLimit is how many rewards the dashboard's recent list shows.
const RecentLimit = 5

type rewardsRepository interface {
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]models.Reward, error)
}

type counter interface {
	Count(ctx context.Context) (int64, error)
}

// Stats are the headline numbers shown on the dashboard.
type Stats struct {
	TotalRewards     int64 `json:"totalRewards"`
	TotalCollections int64 `json:"totalCollections"`
	TotalTags        int64 `json:"totalTags"`
	ActiveRewards    int64 `json:"activeRewards"`
}

type Service interface {
	Stats(ctx context.Context) (*Stats, error)
	Recent(ctx context.Context) ([]rewards.Reward, error)
}

type service struct {
	rewards     rewardsRepository
	collections counter
	tags        counter
}

func NewService(rewardsRepo rewardsRepository, collections, tags counter) (Service, error) {
	if rewardsRepo == nil || collections == nil || tags == nil {
		return nil, fmt.Errorf("rewards, collections and tags repositories required")
	}
	return &service{rewards: rewardsRepo, collections: collections, tags: tags}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	var (
		out Stats
		err error
	)
	if out.TotalRewards, err = s.rewards.Count(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to count rewards")
	}
	if out.ActiveRewards, err = s.rewards.CountActive(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to count rewards")
	}
	if out.TotalCollections, err = s.collections.Count(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to count collections")
	}
	if out.TotalTags, err = s.tags.Count(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to count tags")
	}
	return &out, nil
}

func (s *service) Recent(ctx context.Context) ([]rewards.Reward, error) {
	rows, err := s.rewards.ListRecent(ctx, RecentLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list recent rewards")
	}
	out := make([]rewards.Reward, 0, len(rows))
	for _, row := range rows {
		out = append(out, rewards.ToReward(row))
	}
	return out, nil
}

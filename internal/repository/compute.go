package repository

import (
	"context"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
)

// ResourcePager walks the resources carrying a tag key, one page at a time.
type ResourcePager interface {
	HasMorePages() bool
	NextPage(ctx context.Context) ([]string, error)
}

// ComputeAPI is the compute-resource collaborator.
//
// Start and Stop return domain.ErrResourceNotFound, domain.ErrActionDenied or
// domain.ErrIncorrectState for refusals that concern one resource only; any
// other error means the API itself is unusable.
type ComputeAPI interface {
	ListTagged(tagKey string) ResourcePager
	TagValues(ctx context.Context, resourceID string, keys ...string) (map[string]string, error)
	Start(ctx context.Context, resourceID string) (domain.StateTransition, error)
	Stop(ctx context.Context, resourceID string) (domain.StateTransition, error)
}

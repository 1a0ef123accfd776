package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/repository"
)

// Selector enumerates the compute resources that carry the scheduler tag.
type Selector struct {
	compute     repository.ComputeAPI
	overrideKey string
	logger      *slog.Logger
}

func NewSelector(compute repository.ComputeAPI, overrideKey string, logger *slog.Logger) *Selector {
	return &Selector{
		compute:     compute,
		overrideKey: overrideKey,
		logger:      logger.With("component", "selector"),
	}
}

// SelectResources flattens the paginated tag-key listing and reads the
// schedule and override tag values of every resource. Resources that vanish
// between listing and tag lookup are reported as issues.
func (s *Selector) SelectResources(ctx context.Context, tagKey string) ([]domain.Resource, domain.Issues, error) {
	var (
		resources []domain.Resource
		issues    domain.Issues
	)
	seen := make(map[string]struct{})

	pager := s.compute.ListTagged(tagKey)
	for pager.HasMorePages() {
		ids, err := pager.NextPage(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("list resources tagged %q: %w", tagKey, err)
		}

		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			keys := []string{tagKey}
			if s.overrideKey != "" {
				keys = append(keys, s.overrideKey)
			}
			tags, err := s.compute.TagValues(ctx, id, keys...)
			if errors.Is(err, domain.ErrResourceNotFound) {
				issues.Add(domain.ComponentSelector, "resource %s disappeared before its tags could be read", id)
				continue
			}
			if err != nil {
				return nil, nil, fmt.Errorf("read tags of %s: %w", id, err)
			}

			r := domain.Resource{ID: id, ScheduleTag: tags[tagKey]}
			if s.overrideKey != "" {
				r.Override = tags[s.overrideKey]
			}
			if r.Override != "" {
				s.logger.InfoContext(ctx, "resource carries an override tag, action logic ignores it",
					"resource_id", id, "override", r.Override)
			}
			resources = append(resources, r)
		}
	}

	if len(resources) == 0 {
		s.logger.WarnContext(ctx, "no resources carry the scheduler tag", "tag", tagKey)
	}
	return resources, issues, nil
}

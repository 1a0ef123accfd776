// Package ec2 implements the compute collaborator on Amazon EC2.
package ec2

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/repository"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// Client is the subset of *ec2.Client the adapter uses.
type Client interface {
	DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeTags(ctx context.Context, in *ec2.DescribeTagsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeTagsOutput, error)
	StartInstances(ctx context.Context, in *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, in *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
}

type Compute struct {
	client Client
	logger *slog.Logger
}

func NewCompute(client Client, logger *slog.Logger) *Compute {
	return &Compute{client: client, logger: logger.With("component", "ec2")}
}

// ListTagged pages through instances carrying tagKey. Terminated instances
// are excluded since they can never be started again.
func (c *Compute) ListTagged(tagKey string) repository.ResourcePager {
	return &instancePager{
		p: ec2.NewDescribeInstancesPaginator(c.client, &ec2.DescribeInstancesInput{
			Filters: []types.Filter{
				{Name: aws.String("tag-key"), Values: []string{tagKey}},
				{Name: aws.String("instance-state-name"), Values: []string{"pending", "running", "stopping", "stopped"}},
			},
		}),
	}
}

type instancePager struct {
	p *ec2.DescribeInstancesPaginator
}

func (ip *instancePager) HasMorePages() bool {
	return ip.p.HasMorePages()
}

func (ip *instancePager) NextPage(ctx context.Context) ([]string, error) {
	page, err := ip.p.NextPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe instances: %w", err)
	}
	var ids []string
	for _, r := range page.Reservations {
		for _, inst := range r.Instances {
			ids = append(ids, aws.ToString(inst.InstanceId))
		}
	}
	return ids, nil
}

// TagValues reads every tag of the resource in one call and returns the
// requested keys that are present.
func (c *Compute) TagValues(ctx context.Context, resourceID string, keys ...string) (map[string]string, error) {
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	values := make(map[string]string, len(keys))
	p := ec2.NewDescribeTagsPaginator(c.client, &ec2.DescribeTagsInput{
		Filters: []types.Filter{{Name: aws.String("resource-id"), Values: []string{resourceID}}},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe tags of %s: %w", resourceID, mapError(err))
		}
		for _, tag := range page.Tags {
			k := aws.ToString(tag.Key)
			if _, ok := wanted[k]; ok {
				values[k] = aws.ToString(tag.Value)
			}
		}
	}
	return values, nil
}

func (c *Compute) Start(ctx context.Context, resourceID string) (domain.StateTransition, error) {
	c.logger.InfoContext(ctx, "starting instance", "instance_id", resourceID)
	out, err := c.client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{resourceID}})
	if err != nil {
		return domain.StateTransition{}, fmt.Errorf("start instance %s: %w", resourceID, mapError(err))
	}
	return c.transition(ctx, resourceID, out.StartingInstances)
}

func (c *Compute) Stop(ctx context.Context, resourceID string) (domain.StateTransition, error) {
	c.logger.InfoContext(ctx, "stopping instance", "instance_id", resourceID)
	out, err := c.client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{resourceID},
		Hibernate:   aws.Bool(false),
	})
	if err != nil {
		return domain.StateTransition{}, fmt.Errorf("stop instance %s: %w", resourceID, mapError(err))
	}
	return c.transition(ctx, resourceID, out.StoppingInstances)
}

func (c *Compute) transition(ctx context.Context, resourceID string, changes []types.InstanceStateChange) (domain.StateTransition, error) {
	for _, ch := range changes {
		if aws.ToString(ch.InstanceId) != resourceID {
			continue
		}
		t := domain.StateTransition{Previous: stateName(ch.PreviousState), Current: stateName(ch.CurrentState)}
		if t.Changed() {
			c.logger.InfoContext(ctx, "instance changed state", "instance_id", resourceID, "from", t.Previous, "to", t.Current)
		} else {
			c.logger.InfoContext(ctx, "instance already in requested state", "instance_id", resourceID, "state", t.Current)
		}
		return t, nil
	}
	return domain.StateTransition{}, fmt.Errorf("no state change reported for %s", resourceID)
}

func stateName(s *types.InstanceState) string {
	if s == nil {
		return ""
	}
	return string(s.Name)
}

// mapError turns per-instance refusals into domain sentinels. The API error
// stays in the chain for logging.
func mapError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed":
		return errors.Join(domain.ErrResourceNotFound, err)
	case "UnauthorizedOperation":
		return errors.Join(domain.ErrActionDenied, err)
	case "IncorrectInstanceState":
		return errors.Join(domain.ErrIncorrectState, err)
	}
	return err
}

// NewClient builds an EC2 client from the shared AWS config.
func NewClient(cfg aws.Config) *ec2.Client {
	return ec2.NewFromConfig(cfg)
}

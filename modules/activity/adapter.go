package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ActivityPort defines the activity queries other modules depend on.
type ActivityPort interface {
	RoomStats(ctx context.Context, roomID string) (*RoomStats, error)
	Summary(ctx context.Context) (*Summary, error)
}

// activityAdapter implements ActivityPort using the service container.
type activityAdapter struct {
	container mono.ServiceContainer
}

// NewActivityAdapter creates a new adapter for the activity services.
func NewActivityAdapter(container mono.ServiceContainer) ActivityPort {
	return &activityAdapter{container: container}
}

// RoomStats retrieves one room's activity.
func (a *activityAdapter) RoomStats(ctx context.Context, roomID string) (*RoomStats, error) {
	req := RoomStatsRequest{RoomID: roomID}
	var resp RoomStats
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRoomStats,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceRoomStats, err)
	}
	return &resp, nil
}

// Summary retrieves the service-wide activity summary.
func (a *activityAdapter) Summary(ctx context.Context) (*Summary, error) {
	req := SummaryRequest{}
	var resp Summary
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceSummary,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceSummary, err)
	}
	return &resp, nil
}

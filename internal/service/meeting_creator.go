package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/alessio-signorini/slack-meet-command/internal/adapter/google"
	"github.com/alessio-signorini/slack-meet-command/internal/domain"
)

// MeetingCreator provisions Meet spaces with the configured options.
type MeetingCreator struct {
	meet google.MeetClient
	opts domain.MeetingOptions
}

// NewMeetingCreator wires the creator.
func NewMeetingCreator(meet google.MeetClient, opts domain.MeetingOptions) *MeetingCreator {
	return &MeetingCreator{meet: meet, opts: opts}
}

// Create provisions a meeting. Blank or whitespace-only names become the
// default label.
func (c *MeetingCreator) Create(ctx context.Context, accessToken, meetingName string) (*domain.Meeting, error) {
	name := strings.TrimSpace(meetingName)
	if name == "" {
		name = domain.DefaultMeetingName
	}

	meeting, err := c.meet.CreateSpace(ctx, accessToken, c.opts)
	if err != nil {
		return nil, fmt.Errorf("create space: %w", err)
	}
	meeting.Name = name
	return meeting, nil
}

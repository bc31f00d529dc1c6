package server

import (
	"context"
	"encoding/json"

	"lumen/internal/middleware"
	"lumen/internal/observability"
)

// Event type constants prevent typos in event names.
const (
	EventPostCreated         = "post_created"
	EventPostUpdated         = "post_updated"
	EventPostDeleted         = "post_deleted"
	EventPostReactionUpdated = "post_reaction_updated"
	EventCommentCreated      = "comment_created"
	EventProfileUpdated      = "profile_updated"
	EventStoryCreated        = "story_created"
	EventFollowerAdded       = "follower_added"
)

func (s *Server) publishUserEvent(userID uint, eventType string, payload map[string]interface{}) {
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		middleware.Logger.Error("failed to marshal event", "event_type", eventType, "error", err)
		return
	}
	// With Redis present the hub receives the event back through its own
	// subscription, so publishing and local broadcast are mutually exclusive.
	message := string(eventJSON)
	if s.notifier != nil {
		if err := s.notifier.PublishUser(context.Background(), userID, message); err != nil {
			middleware.Logger.Error("failed to publish user event",
				"event_type", eventType, "user_id", userID, "error", err)
			return
		}
	} else if s.hub != nil {
		s.hub.Broadcast(userID, message)
	}
	observability.FeedEventsPublished.WithLabelValues(eventType).Inc()
}

func (s *Server) publishBroadcastEvent(eventType string, payload map[string]interface{}) {
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		middleware.Logger.Error("failed to marshal event", "event_type", eventType, "error", err)
		return
	}
	message := string(eventJSON)
	if s.notifier != nil {
		if err := s.notifier.PublishBroadcast(context.Background(), message); err != nil {
			middleware.Logger.Error("failed to publish broadcast event",
				"event_type", eventType, "error", err)
			return
		}
	} else if s.hub != nil {
		s.hub.BroadcastAll(message)
	}
	observability.FeedEventsPublished.WithLabelValues(eventType).Inc()
}

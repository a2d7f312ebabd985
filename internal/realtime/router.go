package realtime

import (
	"encoding/json"
	"strconv"

	"feedme-console/internal/bus"
	"feedme-console/internal/model"
	"feedme-console/internal/pkg/logger"
)

// Router interprets inbound payloads and dispatches them. Domain stores are
// never called directly: everything except pongs goes out as a typed bus
// event, which keeps the dependency graph layered (stores depend on the bus,
// not on the realtime package).
type Router struct {
	events    *bus.Bus
	tracker   *Tracker
	heartbeat *Monitor
	logger    logger.ILogger
}

func NewRouter(events *bus.Bus, tracker *Tracker, heartbeat *Monitor, log logger.ILogger) *Router {
	return &Router{
		events:    events,
		tracker:   tracker,
		heartbeat: heartbeat,
		logger:    log,
	}
}

// Handle processes one inbound message. Malformed payloads are logged and
// dropped; they never crash the router or the connection.
func (r *Router) Handle(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.logger.Warn("Router", "Dropping malformed realtime message", map[string]interface{}{"error": err.Error()})
		return
	}

	switch env.Type {
	case MessageTypePong:
		var msg pongMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warn("Router", "Dropping malformed pong", map[string]interface{}{"error": err.Error()})
			return
		}
		r.heartbeat.HandlePong(msg.Timestamp)

	case MessageTypeProcessingUpdate:
		var msg processingUpdateMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warn("Router", "Dropping malformed processing update", map[string]interface{}{"error": err.Error()})
			return
		}
		update := model.ProcessingUpdate{
			ConversationID:    msg.ConversationID,
			Status:            model.ProcessingStatus(msg.Status),
			Progress:          msg.Progress,
			Message:           msg.Message,
			ExamplesExtracted: msg.ExamplesExtracted,
		}
		r.tracker.Apply(update)
		r.publish(bus.ProcessingUpdatedEvent{Update: update})

	case MessageTypeFolderCountsUpdate:
		var msg folderCountsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warn("Router", "Dropping malformed folder counts update", map[string]interface{}{"error": err.Error()})
			return
		}
		counts := make(map[int64]int, len(msg.Counts))
		for key, count := range msg.Counts {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue
			}
			counts[id] = count
		}
		r.publish(bus.FolderCountsUpdatedEvent{Counts: counts})

	case MessageTypeNotification:
		var msg notificationMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warn("Router", "Dropping malformed notification", map[string]interface{}{"error": err.Error()})
			return
		}
		level := model.NotificationLevel(msg.Level)
		if !level.Valid() {
			level = model.NotificationLevelInfo
		}
		r.publish(bus.NotificationRaisedEvent{
			Level:   level,
			Title:   msg.Title,
			Message: msg.Message,
		})

	default:
		r.logger.Debug("Router", "Ignoring unrecognized message type", map[string]interface{}{"type": string(env.Type)})
	}
}

func (r *Router) publish(ev bus.Event) {
	if err := r.events.Publish(ev); err != nil {
		r.logger.Error("Router", "Failed to publish event", map[string]interface{}{"topic": ev.EventTopic(), "error": err.Error()})
	}
}

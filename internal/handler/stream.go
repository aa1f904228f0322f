package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/forgo/raidplan/api/internal/model"
	"github.com/forgo/raidplan/api/internal/service"
)

// StreamHandler handles SSE roster streaming
type StreamHandler struct {
	eventService *service.EventService
	notifier     *service.ChangeNotifier
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(eventService *service.EventService, notifier *service.ChangeNotifier) *StreamHandler {
	return &StreamHandler{
		eventService: eventService,
		notifier:     notifier,
	}
}

// Stream handles GET /v1/events/{eventId}/stream. The first message is the
// full event as "initial"; a subscriber that fell behind gets a fresh
// "initial" in place of the changes it missed.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, model.NewInternalError("streaming not supported"))
		return
	}

	// subscribe before the snapshot so no committed change falls between them
	sub := h.notifier.Subscribe(eventID)
	defer h.notifier.Unsubscribe(sub)

	snapshot, err := h.eventService.GetEvent(r.Context(), eventID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "stream event"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, initialChange(snapshot).Format())
	flusher.Flush()
	lastVersion := snapshot.Version

	for {
		select {
		case change, ok := <-sub.Changes:
			if !ok {
				return
			}
			if change.Type == service.ChangeEventDeleted {
				fmt.Fprint(w, change.Format())
				flusher.Flush()
				return
			}
			if sub.TakeMissed() > 0 {
				snapshot, err := h.eventService.GetEvent(r.Context(), eventID)
				if err != nil {
					slog.Warn("resync failed",
						slog.String("event_id", eventID),
						slog.String("subscriber_id", sub.ID),
						slog.String("error", err.Error()))
					return
				}
				fmt.Fprint(w, initialChange(snapshot).Format())
				flusher.Flush()
				lastVersion = snapshot.Version
			}
			// already reflected in the last snapshot
			if change.Version != 0 && change.Version <= lastVersion {
				continue
			}
			fmt.Fprint(w, change.Format())
			flusher.Flush()

		case <-sub.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}

func initialChange(ev *model.ScheduledEvent) *service.Change {
	return &service.Change{
		Type:    service.ChangeInitial,
		EventID: ev.ID,
		Version: ev.Version,
		Data:    ev,
		At:      ev.LastModified,
	}
}

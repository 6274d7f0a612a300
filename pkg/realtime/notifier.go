// Package realtime fans domain events out to connected clients.
package realtime

import "sync"

// Event names pushed to clients.
const (
	EventNewIdea                   = "newIdea"
	EventUpdateIdea                = "updateIdea"
	EventDeleteIdea                = "deleteIdea"
	EventCollaborationUpdate       = "collaborationUpdate"
	EventUpvoteUpdate              = "upvoteUpdate"
	EventCollaborationRequest      = "collaborationRequest"
	EventCollaborationStatusUpdate = "collaborationStatusUpdate"
	EventNewStartup                = "newStartup"
	EventCollaboratorInvited       = "collaboratorInvited"
	EventNewTask                   = "newTask"
	EventTaskUpdated               = "taskUpdated"
	EventFundingUpdated            = "fundingUpdated"
	EventStartupStatusUpdate       = "startupStatusUpdate"
	EventNotification              = "notification"
)

// Notifier delivers events on a best-effort basis. Implementations must not
// block the caller on slow or absent clients.
type Notifier interface {
	// Broadcast sends the event to every connected client.
	Broadcast(event string, payload interface{})
	// SendToUser sends the event only to clients authenticated as userID.
	SendToUser(userID, event string, payload interface{})
}

// Event is the wire envelope written to websocket clients.
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"data"`
	// UserID is empty for broadcasts.
	UserID string `json:"user_id,omitempty"`
}

// NopNotifier drops every event. Used by the serverless entry point where no
// long-lived connections exist.
type NopNotifier struct{}

func (NopNotifier) Broadcast(string, interface{})          {}
func (NopNotifier) SendToUser(string, string, interface{}) {}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Broadcast(event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: event, Payload: payload})
}

func (r *Recorder) SendToUser(userID, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: event, Payload: payload, UserID: userID})
}

// Events returns a snapshot of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.Name)
	}
	return names
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Package bridge models the Storyblok live-preview bridge on the Go side: editor
// events, the two-stage load protocol, the reload policy, an in-process hub and a
// websocket client.
package bridge

import "slices"

// Editor event names.
const (
	EventPublished   = "published"
	EventChange      = "change"
	EventInput       = "input"
	EventUnpublished = "unpublished"
)

// ReloadEvents are the events the reload policy listens to.
var ReloadEvents = []string{EventPublished, EventChange}

// Event is a live-preview event.
type Event struct {
	Action      string `json:"action"`
	StoryID     int64  `json:"storyId,omitempty"`
	Slug        string `json:"slug,omitempty"`
	SlugChanged bool   `json:"slugChanged"`
}

// Handler receives bridge events.
type Handler func(Event)

// Bridge registers handlers for event names.
type Bridge interface {
	On(events []string, handler Handler)
}

// Reloader performs the reload action.
type Reloader interface {
	Reload(Event)
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func(Event)

// Reload implements Reloader.
func (f ReloaderFunc) Reload(ev Event) { f(ev) }

// ReloadOnChange reloads when the event's slug did not change. Slug changes are
// left to the bridge's own navigation.
func ReloadOnChange(r Reloader) Handler {
	return func(ev Event) {
		if !ev.SlugChanged {
			r.Reload(ev)
		}
	}
}

type subscription struct {
	events  []string
	handler Handler
}

func (s subscription) matches(action string) bool {
	return slices.Contains(s.events, action)
}

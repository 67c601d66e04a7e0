package install

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui"
)

// Observer receives structured events while phases run.
type Observer interface {
	Event(event Event)
}

// Event is one structured installer event.
type Event struct {
	Type      EventType
	Phase     string
	Message   string
	Resource  string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType classifies an event.
type EventType string

const (
	EventPhaseStarted   EventType = "phase.started"
	EventPhaseCompleted EventType = "phase.completed"
	EventPhaseFailed    EventType = "phase.failed"

	EventResourceCreating EventType = "resource.creating"
	EventResourceCreated  EventType = "resource.created"
	EventResourceExists   EventType = "resource.exists"

	EventResourceDeleting EventType = "resource.deleting"
	EventResourceDeleted  EventType = "resource.deleted"
)

// PrinterObserver shows events to the user and mirrors them to the log.
// Phase events become section headings and resource events progress
// lines.
type PrinterObserver struct {
	out *ui.Printer
	log logr.Logger
}

// NewPrinterObserver creates an observer writing to out.
func NewPrinterObserver(out *ui.Printer) *PrinterObserver {
	return &PrinterObserver{out: out, log: out.Logger().WithName("install")}
}

// Event implements Observer.
func (o *PrinterObserver) Event(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	switch e.Type {
	case EventPhaseStarted:
		o.out.Section("%s", e.Message)
	case EventPhaseFailed:
		o.out.Error("%s", e.Message)
	case EventResourceCreating, EventResourceDeleting:
		o.out.Info("%s", e.Message)
	case EventResourceCreated, EventResourceDeleted:
		o.out.Success("%s", e.Message)
	case EventResourceExists:
		o.out.Info("%s", e.Message)
	}

	kv := []any{"type", string(e.Type), "phase", e.Phase}
	if e.Resource != "" {
		kv = append(kv, "resource", e.Resource)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kv = append(kv, k, e.Fields[k])
	}
	o.log.V(1).Info(e.Message, kv...)
}

// recordingObserver keeps events in memory.
type recordingObserver struct {
	events []Event
}

func (r *recordingObserver) Event(e Event) {
	r.events = append(r.events, e)
}

func (r *recordingObserver) types() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, string(e.Type)+" "+e.Phase)
	}
	return out
}

func phaseStarted(o Observer, phase, title string) {
	o.Event(Event{Type: EventPhaseStarted, Phase: phase, Message: title})
}

func phaseCompleted(o Observer, phase string, d time.Duration) {
	o.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("%s completed in %v", phase, d.Round(time.Millisecond)),
	})
}

func phaseFailed(o Observer, phase string, err error) {
	o.Event(Event{Type: EventPhaseFailed, Phase: phase, Message: fmt.Sprintf("%s failed: %v", phase, err)})
}

func creating(o Observer, phase, kind, name string) {
	o.Event(Event{
		Type:     EventResourceCreating,
		Phase:    phase,
		Resource: name,
		Message:  fmt.Sprintf("Creating %s %s...", kind, name),
		Fields:   map[string]string{"kind": kind},
	})
}

func created(o Observer, phase, kind, name string) {
	o.Event(Event{
		Type:     EventResourceCreated,
		Phase:    phase,
		Resource: name,
		Message:  fmt.Sprintf("%s %s ready", capitalize(kind), name),
		Fields:   map[string]string{"kind": kind},
	})
}

func exists(o Observer, phase, kind, name string) {
	o.Event(Event{
		Type:     EventResourceExists,
		Phase:    phase,
		Resource: name,
		Message:  fmt.Sprintf("%s %s already exists", capitalize(kind), name),
		Fields:   map[string]string{"kind": kind},
	})
}

func deleting(o Observer, phase, kind, name string) {
	o.Event(Event{
		Type:     EventResourceDeleting,
		Phase:    phase,
		Resource: name,
		Message:  fmt.Sprintf("Deleting %s %s...", kind, name),
		Fields:   map[string]string{"kind": kind},
	})
}

func deleted(o Observer, phase, kind, name string) {
	o.Event(Event{
		Type:     EventResourceDeleted,
		Phase:    phase,
		Resource: name,
		Message:  fmt.Sprintf("%s %s deleted", capitalize(kind), name),
		Fields:   map[string]string{"kind": kind},
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

package events

import (
	"context"
	"errors"
	"testing"
)

func TestNewTypedEvent(t *testing.T) {
	ctx := context.Background()

	event := NewTypedEvent(ctx, ViewRendered, ViewRenderedEvent{
		View:   "overview",
		Source: "backend",
		Charts: []string{"distribution", "contract"},
	})

	if event.Type != ViewRendered {
		t.Errorf("Expected type '%s', got '%s'", ViewRendered, event.Type)
	}
	if event.Time.IsZero() {
		t.Error("Expected Time to be set")
	}

	typed, ok := event.Data.(ViewRenderedEvent)
	if !ok {
		t.Fatal("Expected Data to be ViewRenderedEvent")
	}
	if typed.View != "overview" || len(typed.Charts) != 2 {
		t.Errorf("Unexpected payload: %+v", typed)
	}
}

func TestNewTypedEvent_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is tolerated
	event := NewTypedEvent(nil, SectionChanged, SectionChangedEvent{Active: "pca"})
	if event.Context == nil {
		t.Error("Expected a background context")
	}
}

func TestGetTypedData(t *testing.T) {
	event := NewTypedEvent(context.Background(), SectionChanged, SectionChangedEvent{
		Previous: "overview",
		Active:   "models",
	})

	data, ok := GetTypedData[SectionChangedEvent](event)
	if !ok {
		t.Error("Expected GetTypedData to succeed")
	}
	if data.Active != "models" {
		t.Errorf("Expected Active 'models', got '%s'", data.Active)
	}

	_, ok = GetTypedData[ViewErrorEvent](event)
	if ok {
		t.Error("Expected GetTypedData to fail for wrong type")
	}
}

func TestGetTypedData_NilData(t *testing.T) {
	event := Event{Type: ViewStale}

	_, ok := GetTypedData[ViewStaleEvent](event)
	if ok {
		t.Error("Expected GetTypedData to fail for nil data")
	}
}

type failingObserver struct{ calls int }

func (f *failingObserver) OnEvent(Event) error {
	f.calls++
	return errors.New("boom")
}
func (f *failingObserver) GetName() string { return "failing" }
func (f *failingObserver) ShouldHandle(string) bool { return true }

func TestDispatch_ContinuesAfterObserverError(t *testing.T) {
	d := NewEventDispatcher()
	failing := &failingObserver{}
	recorder := NewRecordingObserver("recorder")
	d.Register(failing)
	d.Register(recorder)

	d.Dispatch(NewTypedEvent(context.Background(), ViewError, ViewErrorEvent{View: "pca"}))

	if failing.calls != 1 {
		t.Errorf("Expected failing observer to be called once, got %d", failing.calls)
	}
	if len(recorder.Events()) != 1 {
		t.Errorf("Expected recorder to receive the event, got %d", len(recorder.Events()))
	}
}

func TestDispatch_Filtering(t *testing.T) {
	d := NewEventDispatcher()
	views := NewRecordingObserver("views", "view:")
	d.Register(views)

	d.Dispatch(NewTypedEvent(context.Background(), SectionChanged, SectionChangedEvent{Active: "pca"}))
	d.Dispatch(NewTypedEvent(context.Background(), ViewLoading, ViewLoadingEvent{View: "pca"}))

	types := views.Types()
	if len(types) != 1 || types[0] != ViewLoading {
		t.Errorf("Expected only view events, got %v", types)
	}
}

func TestRegisterUnregister(t *testing.T) {
	d := NewEventDispatcher()
	a := NewRecordingObserver("a")
	b := NewRecordingObserver("b")
	d.Register(a)
	d.Register(b)

	if d.ObserverCount() != 2 {
		t.Fatalf("Expected 2 observers, got %d", d.ObserverCount())
	}

	d.Unregister(a)
	d.Dispatch(NewTypedEvent(context.Background(), ViewStale, ViewStaleEvent{View: "overview"}))

	if len(a.Events()) != 0 {
		t.Error("Unregistered observer should not receive events")
	}
	if len(b.Events()) != 1 {
		t.Error("Remaining observer should receive events")
	}

	d.Clear()
	if d.ObserverCount() != 0 {
		t.Error("Clear should remove all observers")
	}
}

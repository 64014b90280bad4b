package task

import (
	"context"
	"errors"
	"testing"

	"github.com/GoCodeAlone/taskflow/comms"
)

func newTestService(t *testing.T) (*Service, *comms.InMemoryBus) {
	t.Helper()
	bus := comms.NewInMemoryBus(0)
	return NewService(NewMemoryStore(), bus, nil), bus
}

func decode(t *testing.T, raw RawPatch) Patch {
	t.Helper()
	p, err := raw.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return p
}

func TestService_CreateValidation(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Patch{Title: strPtr("   ")})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Create blank title err = %v, want ValidationError", err)
	}

	list, _ := svc.List(ctx, Filter{})
	if len(list) != 0 {
		t.Errorf("invalid create persisted %d tasks", len(list))
	}
	hist, _ := bus.History(0)
	if len(hist) != 0 {
		t.Errorf("invalid create published %d events", len(hist))
	}
}

func TestService_UpdateNotFoundBeforeValidation(t *testing.T) {
	svc, _ := newTestService(t)
	bad := Priority("urgent")

	_, err := svc.Update(context.Background(), 77, Patch{Priority: &bad})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update missing with invalid payload: err = %v, want ErrNotFound", err)
	}
}

func TestService_UpdateInvalidLeavesRecord(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, decode(t, RawPatch{Title: strPtr("Find me")}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	bad := Priority("urgent")
	_, err = svc.Update(ctx, created.ID, Patch{Title: strPtr("New title"), Priority: &bad})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "priority" {
		t.Fatalf("Update err = %v, want priority ValidationError", err)
	}

	got, _ := svc.Get(ctx, created.ID)
	if got.Title != "Find me" || got.Priority != PriorityMedium {
		t.Errorf("record changed by failed update: %+v", got)
	}
	hist, _ := bus.History(0)
	if len(hist) != 1 || hist[0].Type != comms.TypeTaskCreated {
		t.Errorf("events = %d, want only the create event", len(hist))
	}
}

func TestService_PartialUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, decode(t, RawPatch{
		Title:       strPtr("Test"),
		Description: strPtr("details"),
		Priority:    strPtr("high"),
	}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, decode(t, RawPatch{Status: strPtr("done")}))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != StatusDone {
		t.Errorf("Status = %q, want done", updated.Status)
	}
	if updated.Title != "Test" || updated.Description != "details" || updated.Priority != PriorityHigh {
		t.Errorf("unsupplied fields changed: %+v", updated)
	}
}

func TestService_Lifecycle(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, decode(t, RawPatch{Title: strPtr("Lifecycle")}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != StatusTodo {
		t.Errorf("default status = %q, want todo", created.Status)
	}

	first, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, _ := svc.Get(ctx, created.ID)
	if *first != *second {
		t.Errorf("repeated Get differs: %+v vs %+v", first, second)
	}

	if _, err := svc.Update(ctx, created.ID, decode(t, RawPatch{Status: strPtr("done")})); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete twice err = %v, want ErrNotFound", err)
	}

	hist, _ := bus.History(0)
	want := []comms.EventType{comms.TypeTaskCreated, comms.TypeTaskUpdated, comms.TypeTaskDeleted}
	if len(hist) != len(want) {
		t.Fatalf("events = %d, want %d", len(hist), len(want))
	}
	for i, ev := range hist {
		if ev.Type != want[i] || ev.TaskID != created.ID {
			t.Errorf("event[%d] = %s/%d, want %s/%d", i, ev.Type, ev.TaskID, want[i], created.ID)
		}
	}
}

func TestService_ListEmptyIsNotNil(t *testing.T) {
	svc, _ := newTestService(t)
	list, err := svc.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list == nil {
		t.Fatal("List returned nil, want empty slice")
	}
}

func TestService_NilBus(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil)
	if _, err := svc.Create(context.Background(), Patch{Title: strPtr("no bus")}); err != nil {
		t.Fatalf("Create without bus: %v", err)
	}
}

package conversation

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"group_helper/internal/model"
)

func TestStore(t *testing.T) {
	s := NewStore()

	if _, ok := s.Get(1); ok {
		t.Fatal("expected no state for new chat")
	}

	s.Set(1, AwaitingContent{})
	st, ok := s.Get(1)
	if !ok {
		t.Fatal("expected state after Set")
	}
	if diff := cmp.Diff("awaiting_content", Name(st)); diff != "" {
		t.Errorf("state name (-want +got):\n%s", diff)
	}

	content := model.Content{Kind: model.ContentText, Text: "Hello"}
	s.Set(1, AwaitingTime{Content: content})
	st, _ = s.Get(1)
	at, ok := st.(AwaitingTime)
	if !ok {
		t.Fatalf("expected AwaitingTime, got %T", st)
	}
	if diff := cmp.Diff(content, at.Content); diff != "" {
		t.Errorf("content (-want +got):\n%s", diff)
	}

	if _, ok := s.Get(2); ok {
		t.Error("state must be per chat")
	}

	s.Clear(1)
	if _, ok := s.Get(1); ok {
		t.Error("expected state to be cleared")
	}
	if diff := cmp.Diff("none", Name(nil)); diff != "" {
		t.Errorf("nil state name (-want +got):\n%s", diff)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Set(id, AwaitingContent{})
			s.Get(id)
			s.Clear(id)
		}(i)
	}
	wg.Wait()

	for i := int64(0); i < 50; i++ {
		if _, ok := s.Get(i); ok {
			t.Fatalf("chat %d still has state", i)
		}
	}
}

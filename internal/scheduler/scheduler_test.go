package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"group_helper/internal/model"
	"group_helper/internal/storage"
)

type sentMessage struct {
	ChatID  int64
	Text    string
	PhotoID string
	Caption string
}

type mockSender struct {
	mu       sync.Mutex
	messages []sentMessage
	err      error
}

func (m *mockSender) SendMessage(chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, sentMessage{ChatID: chatID, Text: text})
	return m.err
}

func (m *mockSender) SendPhoto(chatID int64, fileID, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, sentMessage{ChatID: chatID, PhotoID: fileID, Caption: caption})
	return m.err
}

func (m *mockSender) getMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]sentMessage, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestScheduler(store storage.Storage, sender Sender) *Scheduler {
	return New(store, sender, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func seedPost(t *testing.T, store *storage.SQLite, p model.Post) model.Post {
	t.Helper()
	if err := store.CreatePost(context.Background(), &p); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func weekday(d time.Weekday) *time.Weekday { return &d }

// friday returns Friday 2026-10-16 at hh:mm local time.
func friday(hh, mm int) time.Time {
	return fridayAt(hh, mm, 0, 0)
}

func fridayAt(hh, mm, ss, ms int) time.Time {
	return time.Date(2026, time.October, 16, hh, mm, ss, ms*int(time.Millisecond), time.Local)
}

var ignoreIDs = cmpopts.IgnoreFields(model.Post{}, "ID", "CreatedAt")

func TestCheckDueDeliversText(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedPost(t, store, model.Post{
		ChatID: 100, Hour: 14, Minute: 30,
		Content: model.Content{Kind: model.ContentText, Text: "Hello"},
	})

	sender := &mockSender{}
	newTestScheduler(store, sender).checkDue(ctx, friday(14, 30))

	want := []sentMessage{{ChatID: 100, Text: "Hello"}}
	if diff := cmp.Diff(want, sender.getMessages()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckDueDeliversPhoto(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedPost(t, store, model.Post{
		ChatID: 100, Hour: 9, Minute: 15, Day: weekday(time.Friday), Recurring: true,
		Content: model.Content{Kind: model.ContentPhoto, PhotoFileID: "file-xl", Caption: "Weekend"},
	})

	sender := &mockSender{}
	newTestScheduler(store, sender).checkDue(ctx, friday(9, 15))

	want := []sentMessage{{ChatID: 100, PhotoID: "file-xl", Caption: "Weekend"}}
	if diff := cmp.Diff(want, sender.getMessages()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckDueRemovesOneOffKeepsRecurring(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	text := model.Content{Kind: model.ContentText, Text: "x"}
	seedPost(t, store, model.Post{ChatID: 100, Hour: 14, Minute: 30, Content: text})
	recurring := seedPost(t, store, model.Post{
		ChatID: 100, Hour: 14, Minute: 30, Day: weekday(time.Friday), Recurring: true, Content: text,
	})

	sender := &mockSender{}
	sched := newTestScheduler(store, sender)
	sched.checkDue(ctx, friday(14, 30))

	if diff := cmp.Diff(2, len(sender.getMessages())); diff != "" {
		t.Errorf("message count (-want +got):\n%s", diff)
	}

	left, err := store.ListPosts(ctx, 100)
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if diff := cmp.Diff([]model.Post{recurring}, left, ignoreIDs); diff != "" {
		t.Errorf("remaining posts (-want +got):\n%s", diff)
	}

	// A week later only the recurring post fires again.
	sched.checkDue(ctx, friday(14, 30).AddDate(0, 0, 7))
	if diff := cmp.Diff(3, len(sender.getMessages())); diff != "" {
		t.Errorf("message count after a week (-want +got):\n%s", diff)
	}
}

func TestCheckDueSkipsOtherWeekdaysAndTimes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	text := model.Content{Kind: model.ContentText, Text: "x"}
	seedPost(t, store, model.Post{ChatID: 100, Hour: 14, Minute: 30, Day: weekday(time.Monday), Recurring: true, Content: text})
	seedPost(t, store, model.Post{ChatID: 100, Hour: 14, Minute: 31, Content: text})

	sender := &mockSender{}
	newTestScheduler(store, sender).checkDue(ctx, friday(14, 30))

	if diff := cmp.Diff(0, len(sender.getMessages())); diff != "" {
		t.Errorf("expected no deliveries (-want +got):\n%s", diff)
	}
	left, _ := store.ListPosts(ctx, 100)
	if diff := cmp.Diff(2, len(left)); diff != "" {
		t.Errorf("posts must remain (-want +got):\n%s", diff)
	}
}

func TestCheckDueSendFailureStillRemovesOneOff(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedPost(t, store, model.Post{
		ChatID: 100, Hour: 8, Minute: 0,
		Content: model.Content{Kind: model.ContentText, Text: "lost"},
	})

	sender := &mockSender{err: errors.New("telegram down")}
	newTestScheduler(store, sender).checkDue(ctx, friday(8, 0))

	left, _ := store.ListPosts(ctx, 100)
	if diff := cmp.Diff(0, len(left)); diff != "" {
		t.Errorf("one-off post should be dropped (-want +got):\n%s", diff)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	sender := &mockSender{}
	sched := newTestScheduler(store, sender)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunUsesClock(t *testing.T) {
	store := newTestStore(t)
	seedPost(t, store, model.Post{
		ChatID: 7, Hour: 6, Minute: 45,
		Content: model.Content{Kind: model.ContentText, Text: "morning"},
	})

	sender := &mockSender{}
	sched := newTestScheduler(store, sender)
	sched.now = func() time.Time { return friday(6, 45) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sched.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.Now().Add(time.Second)
	for len(sender.getMessages()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	want := []sentMessage{{ChatID: 7, Text: "morning"}}
	if diff := cmp.Diff(want, sender.getMessages()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckDueFiresEachMinuteOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedPost(t, store, model.Post{
		ChatID: 1, Hour: 12, Minute: 0,
		Content: model.Content{Kind: model.ContentText, Text: "noon"},
	})
	seedPost(t, store, model.Post{
		ChatID: 1, Hour: 12, Minute: 1, Day: weekday(time.Friday), Recurring: true,
		Content: model.Content{Kind: model.ContentText, Text: "weekly"},
	})

	sender := &mockSender{}
	sched := newTestScheduler(store, sender)

	// A late sample skips 12:00 entirely and the next one lands in the same minute.
	sched.checkDue(ctx, fridayAt(11, 59, 59, 999))
	sched.checkDue(ctx, fridayAt(12, 1, 0, 1))
	sched.checkDue(ctx, fridayAt(12, 1, 59, 999))

	want := []sentMessage{{ChatID: 1, Text: "noon"}, {ChatID: 1, Text: "weekly"}}
	if diff := cmp.Diff(want, sender.getMessages()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckDueSkipsLongGaps(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	text := model.Content{Kind: model.ContentText, Text: "x"}
	seedPost(t, store, model.Post{ChatID: 1, Hour: 10, Minute: 5, Content: text})
	seedPost(t, store, model.Post{ChatID: 1, Hour: 10, Minute: 30, Content: text})

	sender := &mockSender{}
	sched := newTestScheduler(store, sender)

	sched.checkDue(ctx, friday(10, 0))
	sched.checkDue(ctx, friday(10, 30))

	if diff := cmp.Diff(1, len(sender.getMessages())); diff != "" {
		t.Errorf("only the current minute should fire (-want +got):\n%s", diff)
	}
	left, _ := store.ListPosts(ctx, 1)
	if diff := cmp.Diff(1, len(left)); diff != "" {
		t.Errorf("missed 10:05 post should remain (-want +got):\n%s", diff)
	}
}

// Package scheduler delivers scheduled posts once per minute.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"group_helper/internal/metrics"
	"group_helper/internal/model"
	"group_helper/internal/storage"
)

const (
	// everyMinute fires at second 0 of every minute.
	everyMinute = "* * * * *"

	// maxCatchUp bounds how many missed minutes a late check replays.
	maxCatchUp = 5 * time.Minute
)

// Sender is the interface for sending Telegram messages.
type Sender interface {
	SendMessage(chatID int64, text string) error
	SendPhoto(chatID int64, fileID, caption string) error
}

// Scheduler fires due posts at the start of every minute.
type Scheduler struct {
	store  storage.Storage
	sender Sender
	log    *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	last time.Time // last minute checked, zero before the first check
}

// New creates a Scheduler that runs in server local time.
func New(store storage.Storage, sender Sender, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		sender: sender,
		log:    log,
		now:    time.Now,
	}
}

// Run checks the current minute, then every minute on the wall clock,
// blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(time.Local),
		cron.WithLogger(cronLogger{s.log}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	if _, err := c.AddFunc(everyMinute, func() { s.checkDue(ctx, s.now()) }); err != nil {
		return fmt.Errorf("schedule minute check: %w", err)
	}

	s.checkDue(ctx, s.now())

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// checkDue fires every minute since the previous check up to the minute of
// now. A minute is never fired twice; after a long gap only now is fired.
func (s *Scheduler) checkDue(ctx context.Context, now time.Time) {
	minute := now.Truncate(time.Minute)

	s.mu.Lock()
	defer s.mu.Unlock()

	from := minute
	if !s.last.IsZero() {
		if !minute.After(s.last) {
			s.log.Debug("minute already checked", "at", minute.Format("Mon 15:04"))
			return
		}
		next := s.last.Add(time.Minute)
		if minute.Sub(next) <= maxCatchUp {
			from = next
		} else {
			s.log.Warn("skipping missed minutes", "from", next.Format("Mon 15:04"), "to", minute.Format("Mon 15:04"))
		}
	}

	for at := from; !at.After(minute); at = at.Add(time.Minute) {
		if ctx.Err() != nil {
			return
		}
		s.fire(ctx, at)
	}
	s.last = minute
}

// fire delivers every post due at the given minute and removes fired one-off posts.
func (s *Scheduler) fire(ctx context.Context, at time.Time) {
	posts, err := s.store.ListDuePosts(ctx, at.Weekday(), at.Hour(), at.Minute())
	if err != nil {
		s.log.Error("list due posts", "error", err)
		return
	}

	for _, post := range posts {
		if ctx.Err() != nil {
			return
		}
		s.deliver(post)

		if post.Recurring {
			continue
		}
		if err := s.store.DeletePost(ctx, post.ID); err != nil {
			s.log.Error("delete fired post", "post_id", post.ID, "error", err)
		}
	}

	if len(posts) > 0 {
		s.log.Info("delivered posts", "count", len(posts), "at", at.Format("Mon 15:04"))
	}
}

func (s *Scheduler) deliver(post model.Post) {
	var err error
	switch post.Content.Kind {
	case model.ContentPhoto:
		err = s.sender.SendPhoto(post.ChatID, post.Content.PhotoFileID, post.Content.Caption)
	default:
		err = s.sender.SendMessage(post.ChatID, post.Content.Text)
	}
	metrics.IncDelivered(string(post.Content.Kind), err)

	if err != nil {
		s.log.Error("deliver post", "post_id", post.ID, "chat_id", post.ChatID, "error", err)
		return
	}
	s.log.Debug("post delivered", "post_id", post.ID, "chat_id", post.ChatID, "recurring", post.Recurring)
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

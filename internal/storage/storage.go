// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"group_helper/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all state operations.
type Storage interface {
	// ClaimSuperAdmin registers admin as super admin if none is set yet.
	// It reports whether the claim succeeded.
	ClaimSuperAdmin(ctx context.Context, admin model.Admin) (bool, error)
	GetSuperAdmin(ctx context.Context) (*model.Admin, error)

	IsChatAdmin(ctx context.Context, chatID int64, username string) (bool, error)
	ListChatAdmins(ctx context.Context, chatID int64) ([]string, error)

	CreatePendingRequest(ctx context.Context, req *model.PendingRequest) error
	ListPendingRequests(ctx context.Context, username string) ([]model.PendingRequest, error)
	// ApprovePendingRequests grants admin rights in every chat with a pending
	// request for username and removes those requests. It returns the
	// requests that were approved.
	ApprovePendingRequests(ctx context.Context, username string) ([]model.PendingRequest, error)

	CreatePost(ctx context.Context, post *model.Post) error
	ListPosts(ctx context.Context, chatID int64) ([]model.Post, error)
	ListDuePosts(ctx context.Context, day time.Weekday, hour, minute int) ([]model.Post, error)
	DeletePost(ctx context.Context, id int64) error

	Close() error
}

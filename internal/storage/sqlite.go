package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"group_helper/internal/model"
	"group_helper/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
// A ":memory:" dsn keeps all state for the lifetime of the process only.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection: a single writer, and one shared in-memory database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ClaimSuperAdmin stores admin as the super admin unless one already exists.
func (s *SQLite) ClaimSuperAdmin(ctx context.Context, admin model.Admin) (bool, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO super_admin (id, user_id, username, created_at) VALUES (1, ?, ?, ?)`,
		admin.UserID, admin.Username, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert super admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// GetSuperAdmin returns the registered super admin or ErrNotFound.
func (s *SQLite) GetSuperAdmin(ctx context.Context) (*model.Admin, error) {
	var a model.Admin
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, username, created_at FROM super_admin WHERE id = 1`,
	).Scan(&a.UserID, &a.Username, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan super admin: %w", err)
	}
	a.CreatedAt, _ = time.Parse(timeLayout, created)
	return &a, nil
}

// IsChatAdmin checks whether username was approved as admin of chatID.
func (s *SQLite) IsChatAdmin(ctx context.Context, chatID int64, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_admins WHERE chat_id = ? AND username = ?`,
		chatID, username,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check chat admin: %w", err)
	}
	return count > 0, nil
}

// ListChatAdmins returns the approved usernames of a chat in approval order.
func (s *SQLite) ListChatAdmins(ctx context.Context, chatID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username FROM chat_admins WHERE chat_id = ? ORDER BY rowid`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat admins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan chat admin: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CreatePendingRequest inserts a new request and populates its ID and CreatedAt.
func (s *SQLite) CreatePendingRequest(ctx context.Context, req *model.PendingRequest) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_requests (chat_id, requested_username, requester_username, created_at)
		 VALUES (?, ?, ?, ?)`,
		req.ChatID, req.RequestedUsername, req.RequesterUsername, now,
	)
	if err != nil {
		return fmt.Errorf("insert pending request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	req.ID = id
	req.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListPendingRequests returns the pending requests for username in creation order.
func (s *SQLite) ListPendingRequests(ctx context.Context, username string) ([]model.PendingRequest, error) {
	return listPending(ctx, s.db, username)
}

// ApprovePendingRequests moves every pending request for username into the
// chat admin sets within a single transaction.
func (s *SQLite) ApprovePendingRequests(ctx context.Context, username string) ([]model.PendingRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	reqs, err := listPending(ctx, tx, username)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}

	now := time.Now().UTC().Format(timeLayout)
	for _, r := range reqs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO chat_admins (chat_id, username, approved_at) VALUES (?, ?, ?)`,
			r.ChatID, username, now,
		); err != nil {
			return nil, fmt.Errorf("insert chat admin: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pending_requests WHERE requested_username = ?`, username,
	); err != nil {
		return nil, fmt.Errorf("delete pending requests: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return reqs, nil
}

// CreatePost inserts a new scheduled post and populates its ID and CreatedAt.
func (s *SQLite) CreatePost(ctx context.Context, post *model.Post) error {
	if post.Recurring != (post.Day != nil) {
		return fmt.Errorf("insert post: day must be set exactly for recurring posts")
	}
	var day *int
	if post.Day != nil {
		d := int(*post.Day)
		day = &d
	}
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (chat_id, hour, minute, day, recurring, content_kind, text, photo_file_id, caption, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ChatID, post.Hour, post.Minute, day, boolToInt(post.Recurring),
		string(post.Content.Kind), post.Content.Text, post.Content.PhotoFileID, post.Content.Caption, now,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	post.ID = id
	post.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListPosts returns all posts of a chat in insertion order.
func (s *SQLite) ListPosts(ctx context.Context, chatID int64) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, hour, minute, day, recurring, content_kind, text, photo_file_id, caption, created_at
		 FROM posts WHERE chat_id = ? ORDER BY id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanPosts(rows)
}

// ListDuePosts returns the posts that fire at the given weekday, hour and minute.
// One-off posts match on time alone; recurring posts also need the weekday.
func (s *SQLite) ListDuePosts(ctx context.Context, day time.Weekday, hour, minute int) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, hour, minute, day, recurring, content_kind, text, photo_file_id, caption, created_at
		 FROM posts
		 WHERE hour = ? AND minute = ?
		   AND (recurring = 0 OR day = ?)
		 ORDER BY id`,
		hour, minute, int(day),
	)
	if err != nil {
		return nil, fmt.Errorf("query due posts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanPosts(rows)
}

// DeletePost removes a post by its ID.
func (s *SQLite) DeletePost(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listPending(ctx context.Context, q querier, username string) ([]model.PendingRequest, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, chat_id, requested_username, requester_username, created_at
		 FROM pending_requests WHERE requested_username = ? ORDER BY id`, username,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reqs []model.PendingRequest
	for rows.Next() {
		var r model.PendingRequest
		var created string
		if err := rows.Scan(&r.ID, &r.ChatID, &r.RequestedUsername, &r.RequesterUsername, &created); err != nil {
			return nil, fmt.Errorf("scan pending request: %w", err)
		}
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPost(row scannable) (*model.Post, error) {
	var p model.Post
	var day sql.NullInt64
	var recurring int
	var kind, created string
	err := row.Scan(&p.ID, &p.ChatID, &p.Hour, &p.Minute, &day, &recurring,
		&kind, &p.Content.Text, &p.Content.PhotoFileID, &p.Content.Caption, &created)
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	p.Recurring = recurring == 1
	if day.Valid {
		d := time.Weekday(day.Int64)
		p.Day = &d
	}
	p.Content.Kind = model.ContentKind(kind)
	p.CreatedAt, _ = time.Parse(timeLayout, created)
	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]model.Post, error) {
	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

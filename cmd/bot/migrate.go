package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"group_helper/migrations"
)

// statusTables are reported row by row by "-migrate status".
var statusTables = []string{"super_admin", "chat_admins", "pending_requests", "posts"}

// runMigrate applies a goose command to the on-disk database at dbPath.
// Supported commands: up, down, reset, version, status.
func runMigrate(ctx context.Context, dbPath, command string, out io.Writer) error {
	if dbPath == ":memory:" {
		return errors.New("DATABASE_PATH must point to a database file, an in-memory database is migrated on startup")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Setup(); err != nil {
		return err
	}

	switch command {
	case "up":
		err = goose.UpContext(ctx, db, ".")
	case "down":
		err = goose.DownContext(ctx, db, ".")
	case "reset":
		err = goose.ResetContext(ctx, db, ".")
	case "version":
		_, err = printVersion(ctx, db, out)
	case "status":
		err = printStatus(ctx, db, out)
	default:
		return fmt.Errorf("unknown migrate command %q, use: up, down, reset, version, status", command)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}

func printVersion(ctx context.Context, db *sql.DB, out io.Writer) (int64, error) {
	v, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	fmt.Fprintf(out, "schema version: %d\n", v)
	return v, nil
}

// printStatus reports the applied schema version and how much bot state the
// database holds.
func printStatus(ctx context.Context, db *sql.DB, out io.Writer) error {
	v, err := printVersion(ctx, db, out)
	if err != nil {
		return err
	}
	if v == 0 {
		fmt.Fprintln(out, "schema not applied, run -migrate up")
		return nil
	}

	for _, table := range statusTables {
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return fmt.Errorf("count %s: %w", table, err)
		}
		fmt.Fprintf(out, "%s: %d\n", table, n)
	}

	var recurring int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts WHERE recurring = 1").Scan(&recurring); err != nil {
		return fmt.Errorf("count recurring posts: %w", err)
	}
	fmt.Fprintf(out, "recurring posts: %d\n", recurring)
	return nil
}

// Package storage persists the small set of settings that must survive
// restarts: provider choice, model choice and the (sealed) API key. It is a
// plain key-value table on sqlite by default, postgres optional.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var ErrNotFound = errors.New("not found")

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	q := s.sql.Select("value").From("settings").Where(sq.Eq{"key": key})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return "", fmt.Errorf("build get setting query: %w", err)
	}

	var value string
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	q := s.sql.Insert("settings").
		Columns("key", "value", "updated_at").
		Values(key, value, nowExpr(s.driver)).
		Suffix("ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set setting query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	q := s.sql.Delete("settings").Where(sq.Eq{"key": key})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete setting query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Settings(ctx context.Context) (map[string]string, error) {
	q := s.sql.Select("key", "value").From("settings").OrderBy("key ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list settings query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting row: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setting rows: %w", err)
	}
	return out, nil
}

func nowExpr(driver string) any {
	if driver == "postgres" {
		return sq.Expr("NOW()")
	}
	return sq.Expr("CURRENT_TIMESTAMP")
}

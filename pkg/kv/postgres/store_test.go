package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/voxkit/voxkit/pkg/kv"
)

// ---------------------------------------------------------------------------
// Test helpers — mock DB types
// ---------------------------------------------------------------------------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockRows implements pgx.Rows for testing.
type mockRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *[]byte:
			*d = v.([]byte)
		default:
			return fmt.Errorf("scan: unsupported type at index %d: %T", i, dest[i])
		}
	}
	return nil
}

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

// ---------------------------------------------------------------------------
// Store tests
// ---------------------------------------------------------------------------

func TestMigrate(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
				if !strings.Contains(sql, "CREATE TABLE") {
					t.Errorf("Migrate SQL should contain CREATE TABLE, got: %s", sql)
				}
				return pgconn.CommandTag{}, nil
			},
		}
		if err := New(db).Migrate(context.Background()); err != nil {
			t.Fatalf("Migrate() unexpected error: %v", err)
		}
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			execFunc: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("connection refused")
			},
		}
		err := New(db).Migrate(context.Background())
		if err == nil {
			t.Fatal("Migrate() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "kv postgres: migrate:") {
			t.Errorf("error = %q, want prefix 'kv postgres: migrate:'", err.Error())
		}
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
				if len(args) != 1 || args[0] != "voice_settings" {
					t.Errorf("args = %v, want [voice_settings]", args)
				}
				return &mockRow{
					scanFunc: func(dest ...any) error {
						*(dest[0].(*[]byte)) = []byte("stored-value")
						return nil
					},
				}
			},
		}
		got, err := New(db).Get(context.Background(), "voice_settings")
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		if string(got) != "stored-value" {
			t.Errorf("Get() = %q, want 'stored-value'", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		_, err := New(&mockDB{}).Get(context.Background(), "missing")
		if !errors.Is(err, kv.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("db error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &mockRow{scanFunc: func(_ ...any) error { return errors.New("timeout") }}
			},
		}
		_, err := New(db).Get(context.Background(), "k")
		if err == nil {
			t.Fatal("Get() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "kv postgres: get") {
			t.Errorf("error = %q, want prefix 'kv postgres: get'", err.Error())
		}
	})
}

func TestSet(t *testing.T) {
	t.Parallel()

	t.Run("upserts", func(t *testing.T) {
		t.Parallel()
		var capturedSQL string
		var capturedArgs []any
		db := &mockDB{
			execFunc: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				capturedSQL = sql
				capturedArgs = args
				return pgconn.CommandTag{}, nil
			},
		}
		if err := New(db).Set(context.Background(), "k", []byte("v")); err != nil {
			t.Fatalf("Set() unexpected error: %v", err)
		}
		if !strings.Contains(capturedSQL, "ON CONFLICT") {
			t.Errorf("SQL should contain ON CONFLICT, got: %s", capturedSQL)
		}
		if len(capturedArgs) != 2 || capturedArgs[0] != "k" {
			t.Errorf("args = %v, want [k v]", capturedArgs)
		}
	})

	t.Run("db error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			execFunc: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("disk full")
			},
		}
		if err := New(db).Set(context.Background(), "k", []byte("v")); err == nil {
			t.Fatal("Set() expected error, got nil")
		}
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	var capturedArgs []any
	db := &mockDB{
		execFunc: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			if !strings.Contains(sql, "DELETE FROM voxkit_kv") {
				t.Errorf("SQL = %q, want DELETE statement", sql)
			}
			capturedArgs = args
			return pgconn.CommandTag{}, nil
		},
	}
	if err := New(db).Delete(context.Background(), "k"); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if len(capturedArgs) != 1 || capturedArgs[0] != "k" {
		t.Errorf("args = %v, want [k]", capturedArgs)
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	t.Run("prefix scan", func(t *testing.T) {
		t.Parallel()
		rows := &mockRows{data: [][]any{{"selected_voice"}, {"selected_voice_de-DE"}}}
		db := &mockDB{
			queryFunc: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
				if !strings.Contains(sql, "LIKE") {
					t.Errorf("SQL should filter by prefix, got: %s", sql)
				}
				if len(args) != 1 || args[0] != "selected_voice" {
					t.Errorf("args = %v, want [selected_voice]", args)
				}
				return rows, nil
			},
		}
		keys, err := New(db).Keys(context.Background(), "selected_voice")
		if err != nil {
			t.Fatalf("Keys() unexpected error: %v", err)
		}
		if len(keys) != 2 || keys[0] != "selected_voice" || keys[1] != "selected_voice_de-DE" {
			t.Errorf("Keys() = %v", keys)
		}
		if !rows.closed {
			t.Error("rows not closed")
		}
	})

	t.Run("query error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryFunc: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return nil, errors.New("connection reset")
			},
		}
		if _, err := New(db).Keys(context.Background(), ""); err == nil {
			t.Fatal("Keys() expected error, got nil")
		}
	})

	t.Run("rows error after iteration", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryFunc: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return &mockRows{err: errors.New("stream interrupted")}, nil
			},
		}
		if _, err := New(db).Keys(context.Background(), ""); err == nil {
			t.Fatal("Keys() expected error from rows.Err()")
		}
	})
}

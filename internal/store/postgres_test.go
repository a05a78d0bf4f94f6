package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dvf-map/scrape/pkg/models"
)

type fakeRow struct {
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 1 {
		if p, ok := dest[0].(*int); ok {
			*p = 1
		}
	}
	return nil
}

type fakeDB struct {
	execSQL   []string
	execArgs  [][]any
	querySQL  []string
	queryArgs [][]any
	rowErr    error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.querySQL = append(f.querySQL, sql)
	f.queryArgs = append(f.queryArgs, args)
	return fakeRow{err: f.rowErr}
}

func strPtr(s string) *string { return &s }

func storedListing() *models.Listing {
	return &models.Listing{
		URL:        "https://www.leboncoin.fr/ad/123",
		Title:      strPtr("Maison 4 pièces"),
		ImageURLs:  []string{"https://img/1.jpg", "https://img/2.jpg"},
		ImagePaths: []string{"/data/image_01.jpg", ""},
	}
}

func TestUpdate_MissingTargetCreatesNoRow(t *testing.T) {
	db := &fakeDB{rowErr: pgx.ErrNoRows}
	s := &Store{db: db}

	err := s.Update(context.Background(), 42, 7, storedListing())
	if !errors.Is(err, ErrTargetMissing) {
		t.Fatalf("expected ErrTargetMissing, got %v", err)
	}
	if len(db.execSQL) != 0 {
		t.Errorf("a missing target must not write any row, got %d statements", len(db.execSQL))
	}
}

func TestUpdate_ExistingTarget(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}

	if err := s.Update(context.Background(), 42, 7, storedListing()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(db.querySQL) != 1 || !strings.Contains(db.querySQL[0], "SELECT 1 FROM saved_properties") {
		t.Fatalf("expected an existence lookup first, got %v", db.querySQL)
	}
	if got := db.queryArgs[0]; len(got) != 2 || got[0] != int64(42) || got[1] != int64(7) {
		t.Errorf("lookup must be scoped to id and owner, got %v", got)
	}

	if len(db.execSQL) != 1 {
		t.Fatalf("expected exactly one write, got %d", len(db.execSQL))
	}
	if !strings.Contains(db.execSQL[0], "UPDATE saved_properties") {
		t.Errorf("update mode must UPDATE, got %q", db.execSQL[0])
	}
	if strings.Contains(db.execSQL[0], "INSERT") {
		t.Errorf("update mode must never INSERT, got %q", db.execSQL[0])
	}
	if args := db.execArgs[0]; args[0] != int64(42) || args[1] != int64(7) {
		t.Errorf("update must be scoped to id and owner, got %v %v", args[0], args[1])
	}
}

func TestUpdate_RepeatedUpdateIsIdempotent(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}
	l := storedListing()

	for i := 0; i < 2; i++ {
		if err := s.Update(context.Background(), 42, 7, l); err != nil {
			t.Fatalf("update %d failed: %v", i+1, err)
		}
	}

	if len(db.execSQL) != 2 {
		t.Fatalf("expected two writes, got %d", len(db.execSQL))
	}
	for _, sql := range db.execSQL {
		if !strings.Contains(sql, "UPDATE saved_properties") || strings.Contains(sql, "INSERT") {
			t.Errorf("every repeated write must stay an UPDATE, got %q", sql)
		}
	}
}

func TestUpdate_LookupFailure(t *testing.T) {
	db := &fakeDB{rowErr: errors.New("connection reset")}
	s := &Store{db: db}

	err := s.Update(context.Background(), 42, 7, storedListing())
	if err == nil || errors.Is(err, ErrTargetMissing) {
		t.Fatalf("expected a wrapped lookup error, got %v", err)
	}
	if len(db.execSQL) != 0 {
		t.Errorf("a failed lookup must not write, got %d statements", len(db.execSQL))
	}
}

func TestInsert_StoresOnlyMaterializedPaths(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}

	if err := s.Insert(context.Background(), storedListing()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(db.execSQL) != 1 || !strings.Contains(db.execSQL[0], "INSERT INTO annonces") {
		t.Fatalf("expected one INSERT INTO annonces, got %v", db.execSQL)
	}
	paths, ok := db.execArgs[0][11].([]string)
	if !ok {
		t.Fatalf("expected image_paths argument, got %T", db.execArgs[0][11])
	}
	if len(paths) != 1 || paths[0] != "/data/image_01.jpg" {
		t.Errorf("failed downloads must be filtered out before storage, got %v", paths)
	}
}

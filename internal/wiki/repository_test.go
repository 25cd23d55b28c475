package wiki

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pagewiki/app/internal/db"
)

func TestNewRepositoryRequiresAccess(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when database access is nil")
	}
}

func TestFetchByNameReturnsNilForMissingPage(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)

	page, err := repo.FetchByName(context.Background(), "missing")
	if err != nil {
		t.Fatalf("FetchByName returned error: %v", err)
	}
	if page != nil {
		t.Fatalf("expected nil page for missing name, got %#v", page)
	}
}

func TestCreateThenFetchRoundTrip(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "example", "# Hello")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID < 0 {
		t.Fatalf("expected store assigned id, got %d", created.ID)
	}

	stored, err := repo.FetchByName(ctx, "example")
	if err != nil {
		t.Fatalf("FetchByName returned error: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected stored page to be present")
	}
	if stored.ID != created.ID || stored.Content != "# Hello" {
		t.Fatalf("expected stored page %#v, got %#v", created, stored)
	}

	byID, err := repo.FetchByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FetchByID returned error: %v", err)
	}
	if byID == nil || byID.Name != "example" {
		t.Fatalf("expected page named example, got %#v", byID)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "alpha", "first"); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	_, err := repo.Create(ctx, "alpha", "second")
	if err == nil {
		t.Fatalf("expected duplicate name error")
	}
	if !eris.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	stored, err := repo.FetchByName(ctx, "alpha")
	if err != nil {
		t.Fatalf("FetchByName returned error: %v", err)
	}
	if stored.Content != "first" {
		t.Fatalf("expected original content to survive, got %q", stored.Content)
	}
}

func TestIsDuplicateKeyOnlyMatchesTranslatedError(t *testing.T) {
	t.Parallel()

	if !isDuplicateKey(eris.Wrap(gorm.ErrDuplicatedKey, "insert page")) {
		t.Fatalf("expected translated duplicate key error to match")
	}
	if isDuplicateKey(errors.New("column name is not unique enough to be a duplicate")) {
		t.Fatalf("expected untranslated error text not to match")
	}
}

func TestSaveReplacesContent(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "beta", "old")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := repo.Save(ctx, created.ID, "new"); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := repo.Save(ctx, created.ID, "newer"); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	stored, err := repo.FetchByName(ctx, "beta")
	if err != nil {
		t.Fatalf("FetchByName returned error: %v", err)
	}
	if stored.Content != "newer" {
		t.Fatalf("expected last write to win, got %q", stored.Content)
	}
}

func TestSaveUnknownIDReturnsNotFound(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)

	err := repo.Save(context.Background(), 404, "content")
	if !eris.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "gamma", "content")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := repo.Delete(ctx, created.ID); err != nil {
			t.Fatalf("Delete call %d returned error: %v", i+1, err)
		}
	}

	stored, err := repo.FetchByName(ctx, "gamma")
	if err != nil {
		t.Fatalf("FetchByName returned error: %v", err)
	}
	if stored != nil {
		t.Fatalf("expected page to be removed, got %#v", stored)
	}

	if _, err := repo.Create(ctx, "gamma", "again"); err != nil {
		t.Fatalf("expected name to be reusable after delete, got %v", err)
	}
}

func TestListNamesReturnsEveryName(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	for _, name := range []string{"b", "a", "c"} {
		if _, err := repo.Create(ctx, name, ""); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	names, err := repo.ListNames(ctx)
	if err != nil {
		t.Fatalf("ListNames returned error: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 names, got %v", names)
	}
}

func TestEnsureSchemaTwiceKeepsRows(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "kept", "content"); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("first EnsureSchema returned error: %v", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema returned error: %v", err)
	}

	stored, err := repo.FetchByName(ctx, "kept")
	if err != nil {
		t.Fatalf("FetchByName returned error: %v", err)
	}
	if stored == nil || stored.Content != "content" {
		t.Fatalf("expected existing row to survive schema preparation, got %#v", stored)
	}
}

func TestRepositorySurfacesConnectionError(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepositoryWithDB(t)
	if err := db.Close(gormDB); err != nil {
		t.Fatalf("closing database failed: %v", err)
	}

	_, err := repo.ListNames(context.Background())
	var connErr *db.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
}

func setupRepository(t *testing.T) *GormRepository {
	t.Helper()

	repo, gormDB := setupRepositoryWithDB(t)
	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	return repo
}

func setupRepositoryWithDB(t *testing.T) (*GormRepository, *gorm.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "repo.db")
	gormDB, err := db.Open(db.Options{Path: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}

	logger := silentLogger()

	access, err := db.NewAccess(gormDB, db.AccessOptions{Logger: logger})
	if err != nil {
		t.Fatalf("db.NewAccess returned error: %v", err)
	}

	if err := Migrate(context.Background(), access, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	repo, err := NewRepository(access, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo, gormDB
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

package wiki

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pagewiki/app/internal/db"
)

// Repository defines persistence operations for wiki pages. Every method runs
// exactly one statement on a connection held only for that call.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	ListNames(ctx context.Context) ([]string, error)
	FetchByName(ctx context.Context, name string) (*Page, error)
	FetchByID(ctx context.Context, id int64) (*Page, error)
	Create(ctx context.Context, name, content string) (*Page, error)
	Save(ctx context.Context, id int64, content string) error
	Delete(ctx context.Context, id int64) error
}

var (
	// ErrDuplicateName is returned when a page with the same name already exists.
	ErrDuplicateName = eris.New("page name already exists")
	// ErrPageNotFound is returned when no stored page matches an id.
	ErrPageNotFound = eris.New("page not found")
)

// GormRepository persists pages through the database access layer.
type GormRepository struct {
	access *db.Access
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(access *db.Access, logger *logrus.Logger) (*GormRepository, error) {
	if access == nil {
		return nil, eris.New("database access is required")
	}

	return &GormRepository{access: access, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// EnsureSchema creates the pages table if it does not exist.
func (r *GormRepository) EnsureSchema(ctx context.Context) error {
	return Migrate(ctx, r.access, r.logger)
}

// ListNames returns every stored page name in storage order.
func (r *GormRepository) ListNames(ctx context.Context) ([]string, error) {
	var names []string

	err := r.access.WithConnection(ctx, func(conn *gorm.DB) error {
		return db.Query(conn, &names, "SELECT name FROM pages")
	})
	if err != nil {
		r.logError(nil, err, "listing page names")
		return nil, eris.Wrap(err, "listing page names")
	}

	return names, nil
}

// FetchByName returns the page stored under name or nil when there is none.
func (r *GormRepository) FetchByName(ctx context.Context, name string) (*Page, error) {
	var record PageRecord
	found := true

	err := r.access.WithConnection(ctx, func(conn *gorm.DB) error {
		err := conn.First(&record, "name = ?", name).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			found = false
			return nil
		}
		return db.WrapQueryError("select page by name", err)
	})
	if err != nil {
		r.logError(logrus.Fields{"name": name}, err, "fetching page by name")
		return nil, eris.Wrapf(err, "fetching page by name: %s", name)
	}

	if !found {
		return nil, nil
	}
	return toPage(&record), nil
}

// FetchByID returns the page with the given id or nil when there is none.
func (r *GormRepository) FetchByID(ctx context.Context, id int64) (*Page, error) {
	var record PageRecord
	found := true

	err := r.access.WithConnection(ctx, func(conn *gorm.DB) error {
		err := conn.First(&record, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			found = false
			return nil
		}
		return db.WrapQueryError("select page by id", err)
	})
	if err != nil {
		r.logError(logrus.Fields{"id": id}, err, "fetching page by id")
		return nil, eris.Wrapf(err, "fetching page by id: %d", id)
	}

	if !found {
		return nil, nil
	}
	return toPage(&record), nil
}

// Create inserts a new page. It returns ErrDuplicateName when the name is taken.
func (r *GormRepository) Create(ctx context.Context, name, content string) (*Page, error) {
	record := &PageRecord{Name: name, Content: content}

	err := r.access.WithConnection(ctx, func(conn *gorm.DB) error {
		return db.WrapQueryError("insert page", conn.Create(record).Error)
	})
	if err != nil {
		if isDuplicateKey(err) {
			r.logError(logrus.Fields{"name": name}, err, "creating page with duplicate name")
			return nil, eris.Wrapf(ErrDuplicateName, "creating page: %s", name)
		}
		r.logError(logrus.Fields{"name": name}, err, "creating page")
		return nil, eris.Wrapf(err, "creating page: %s", name)
	}

	return toPage(record), nil
}

// Save replaces the content of the page with the given id.
func (r *GormRepository) Save(ctx context.Context, id int64, content string) error {
	var affected int64

	err := r.access.WithConnection(ctx, func(conn *gorm.DB) error {
		result := conn.Model(&PageRecord{}).Where("id = ?", id).Update("content", content)
		if result.Error != nil {
			return db.WrapQueryError("update page content", result.Error)
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		r.logError(logrus.Fields{"id": id}, err, "saving page")
		return eris.Wrapf(err, "saving page: %d", id)
	}

	if affected == 0 {
		return eris.Wrapf(ErrPageNotFound, "saving page: %d", id)
	}

	return nil
}

// Delete removes the page with the given id. Deleting a missing page is not an error.
func (r *GormRepository) Delete(ctx context.Context, id int64) error {
	err := r.access.WithConnection(ctx, func(conn *gorm.DB) error {
		_, err := db.Exec(conn, "DELETE FROM pages WHERE id = ?", id)
		return err
	})
	if err != nil {
		r.logError(logrus.Fields{"id": id}, err, "deleting page")
		return eris.Wrapf(err, "deleting page: %d", id)
	}

	return nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

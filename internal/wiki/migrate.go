package wiki

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pagewiki/app/internal/db"
	applog "pagewiki/app/internal/log"
)

// Migrate creates the pages table when it is absent. It holds one connection for
// the duration of the migration and is safe to run on every startup.
func Migrate(ctx context.Context, access *db.Access, logger *logrus.Logger) error {
	if access == nil {
		return eris.New("database access is required")
	}

	if logger != nil {
		applog.Component(logger, "wiki.migrate").Info("applying wiki schema")
	}

	err := access.WithConnection(ctx, func(conn *gorm.DB) error {
		if err := conn.AutoMigrate(&PageRecord{}); err != nil {
			return db.WrapQueryError("auto migrate pages", err)
		}
		return nil
	})
	if err != nil {
		if logger != nil {
			applog.Component(logger, "wiki.migrate").WithField("error", err.Error()).Error("wiki schema migration failed")
		}
		return eris.Wrap(err, "auto migrating wiki schema")
	}

	if logger != nil {
		applog.Component(logger, "wiki.migrate").Info("wiki schema migration complete")
	}

	return nil
}

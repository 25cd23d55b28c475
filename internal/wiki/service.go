package wiki

import (
	"context"
	"slices"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service defines the page operations exposed to the HTTP layer.
type Service interface {
	ListNames(ctx context.Context) ([]string, error)
	FetchOrSeed(ctx context.Context, name string) (*Page, error)
	Create(ctx context.Context, name, content string) (*Page, error)
	Save(ctx context.Context, id int64, content string) (*Page, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	repo      Repository
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

var (
	// ErrNameRequired indicates a blank page name.
	ErrNameRequired = eris.New("page name is required")
	// ErrInvalidName indicates a page name that cannot be used as a URL segment.
	ErrInvalidName = eris.New("page name is invalid")
)

const (
	maxNameLength         = 255
	disallowedNameCharset = "/?#"
)

// NewService wires the wiki service with its dependencies.
func NewService(repo Repository, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("wiki repository is required")
	}

	return &service{
		repo:      repo,
		logger:    logger,
		sentryHub: hub,
	}, nil
}

func (s *service) ListNames(ctx context.Context) ([]string, error) {
	names, err := s.repo.ListNames(ctx)
	if err != nil {
		s.recordError(nil, err, "listing page names")
		return nil, eris.Wrap(err, "listing page names")
	}

	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return sorted, nil
}

func (s *service) FetchOrSeed(ctx context.Context, name string) (*Page, error) {
	trimmed, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	page, err := s.repo.FetchByName(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"name": trimmed}, err, "retrieving page from repository")
		return nil, eris.Wrapf(err, "retrieving page: %s", trimmed)
	}

	if page == nil {
		return seedPage(trimmed), nil
	}

	return page, nil
}

func (s *service) Create(ctx context.Context, name, content string) (*Page, error) {
	trimmed, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	page, err := s.repo.Create(ctx, trimmed, content)
	if err != nil {
		if !eris.Is(err, ErrDuplicateName) {
			s.recordError(logrus.Fields{"name": trimmed}, err, "creating page")
		}
		return nil, eris.Wrapf(err, "creating page: %s", trimmed)
	}

	return page, nil
}

func (s *service) Save(ctx context.Context, id int64, content string) (*Page, error) {
	if err := s.repo.Save(ctx, id, content); err != nil {
		if !eris.Is(err, ErrPageNotFound) {
			s.recordError(logrus.Fields{"id": id}, err, "saving page")
		}
		return nil, eris.Wrapf(err, "saving page: %d", id)
	}

	page, err := s.repo.FetchByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"id": id}, err, "reloading saved page")
		return nil, eris.Wrapf(err, "reloading saved page: %d", id)
	}

	if page == nil {
		return nil, eris.Wrapf(ErrPageNotFound, "reloading saved page: %d", id)
	}

	return page, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.recordError(logrus.Fields{"id": id}, err, "deleting page")
		return eris.Wrapf(err, "deleting page: %d", id)
	}
	return nil
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}

func normalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrNameRequired
	}
	if len(trimmed) > maxNameLength || strings.ContainsAny(trimmed, disallowedNameCharset) {
		return "", eris.Wrapf(ErrInvalidName, "page name %q", trimmed)
	}
	return trimmed, nil
}

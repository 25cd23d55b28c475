package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pagewiki/app/internal/db"
	"pagewiki/app/internal/http/templates"
	"pagewiki/app/internal/wiki"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	indexTitle           = "Wiki home"
	timestampLayout      = time.RFC1123
	errorFallbackMessage = "We couldn't process your request right now."
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Location    string `header:"Location"`
	Body        []byte
}

type wikiInput struct {
	Page string `path:"page"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerIndexRoute() {
	huma.Get(s.api, "/", s.indexHandler, htmlOperation(
		"List wiki pages",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerWikiRoute() {
	huma.Get(s.api, "/wiki/{page}", s.wikiHandler, htmlOperation(
		"View wiki page",
		stdhttp.StatusBadRequest,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerSaveRoute() {
	huma.Post(s.api, "/save", s.saveHandler, htmlOperation(
		"Save page content",
		stdhttp.StatusSeeOther,
		stdhttp.StatusBadRequest,
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerCreateRoute() {
	huma.Post(s.api, "/create", s.createHandler, htmlOperation(
		"Create page",
		stdhttp.StatusSeeOther,
		stdhttp.StatusBadRequest,
		stdhttp.StatusConflict,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerDeleteRoute() {
	huma.Post(s.api, "/delete", s.deleteHandler, htmlOperation(
		"Delete page",
		stdhttp.StatusSeeOther,
		stdhttp.StatusBadRequest,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) indexHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	names, err := s.wiki.ListNames(ctx)
	if err != nil {
		return s.failure(ctx, err, "listing pages", nil), nil
	}

	return s.renderView(ctx, templates.IndexView, templates.IndexPageData{
		Title: indexTitle,
		Pages: names,
	}), nil
}

func (s *Server) wikiHandler(ctx context.Context, input *wikiInput) (*htmlResponse, error) {
	name := strings.TrimSpace(input.Page)
	page, err := s.wiki.FetchOrSeed(ctx, name)
	if err != nil {
		return s.failure(ctx, err, "loading wiki page", logrus.Fields{"name": name}), nil
	}

	content := s.markdown.Render(page.Content)

	return s.renderView(ctx, templates.PageView, templates.WikiPageData{
		Title:      page.Name,
		ID:         page.ID,
		RawContent: page.Content,
		// Render output is sanitised by the markdown renderer.
		Content:   template.HTML(content), //nolint:gosec
		Timestamp: s.now().Format(timestampLayout),
		NewPage:   !page.Exists(),
		Links:     s.markdown.Links(content),
	}), nil
}

func (s *Server) saveHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	id, content, err := decodeSaveForm(input.RawBody)
	if err != nil {
		return s.failure(ctx, err, "decoding save form", nil), nil
	}

	page, err := s.wiki.Save(ctx, id, content)
	if err != nil {
		return s.failure(ctx, err, "saving page", logrus.Fields{"id": id}), nil
	}

	return redirect(pagePath(page.Name)), nil
}

func (s *Server) createHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	form, err := decodeCreateForm(input.RawBody)
	if err != nil {
		return s.failure(ctx, err, "decoding create form", nil), nil
	}

	if form.Name == "" {
		return redirect("/"), nil
	}

	content := form.Content
	if strings.TrimSpace(content) == "" {
		content = wiki.SeedMarkdown
	}

	page, err := s.wiki.Create(ctx, form.Name, content)
	if err != nil {
		return s.failure(ctx, err, "creating page", logrus.Fields{"name": form.Name}), nil
	}

	return redirect(pagePath(page.Name)), nil
}

func (s *Server) deleteHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	id, err := decodeDeleteForm(input.RawBody)
	if err != nil {
		return s.failure(ctx, err, "decoding delete form", nil), nil
	}

	if err := s.wiki.Delete(ctx, id); err != nil {
		return s.failure(ctx, err, "deleting page", logrus.Fields{"id": id}), nil
	}

	return redirect("/"), nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.recordError(ctx, err, "pinging database", nil)
		resp.Status = stdhttp.StatusServiceUnavailable
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
	}

	return resp, nil
}

func (s *Server) renderView(ctx context.Context, name string, data any) *htmlResponse {
	body, err := s.templates.Render(ctx, name, data)
	if err != nil {
		return s.failure(ctx, err, "rendering view", logrus.Fields{"view": name})
	}
	return newHTMLResponse(stdhttp.StatusOK, body)
}

// failure logs err and renders the error view with the status it maps to.
func (s *Server) failure(ctx context.Context, err error, message string, fields logrus.Fields) *htmlResponse {
	status, userMessage := classifyError(err)
	if status >= stdhttp.StatusInternalServerError {
		s.recordError(ctx, err, message, fields)
	} else if s.logger != nil {
		s.logger.WithFields(s.requestFields(ctx, fields)).WithField("error", err.Error()).Warn(message)
	}
	return s.renderErrorResponse(ctx, status, userMessage)
}

func classifyError(err error) (int, string) {
	var (
		badRequest *BadRequestError
		connErr    *db.ConnectionError
	)

	switch {
	case err == nil:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	case errors.As(err, &badRequest):
		return stdhttp.StatusBadRequest, "The submitted form could not be read."
	case eris.Is(err, wiki.ErrNameRequired):
		return stdhttp.StatusBadRequest, "A page name is required."
	case eris.Is(err, wiki.ErrInvalidName):
		return stdhttp.StatusBadRequest, "Page names cannot contain '/', '?' or '#' and are limited to 255 bytes."
	case eris.Is(err, wiki.ErrPageNotFound):
		return stdhttp.StatusNotFound, "That page does not exist."
	case eris.Is(err, wiki.ErrDuplicateName):
		return stdhttp.StatusConflict, "A page with that name already exists."
	case errors.As(err, &connErr):
		return stdhttp.StatusInternalServerError, "The database is unavailable right now."
	default:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) *htmlResponse {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	data := templates.ErrorPageData{
		Title:       label,
		StatusLabel: label,
		Message:     message,
	}

	body, err := s.templates.Render(ctx, templates.ErrorView, data)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		var buf bytes.Buffer
		if fallbackErr := templates.FallbackErrorPage(data).Render(ctx, &buf); fallbackErr != nil {
			buf.Reset()
			buf.WriteString(label)
		}
		body = buf.Bytes()
	}

	return newHTMLResponse(status, body)
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		s.logger.WithFields(s.requestFields(ctx, fields)).WithField("error", err.Error()).Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func redirect(location string) *htmlResponse {
	response := newHTMLResponse(stdhttp.StatusSeeOther, nil)
	response.Location = location
	return response
}

func pagePath(name string) string {
	return "/wiki/" + url.PathEscape(name)
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		for _, status := range append([]int{stdhttp.StatusOK}, statuses...) {
			op.Responses[strconv.Itoa(status)] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// BadRequestError reports a form body that could not be parsed or validated.
type BadRequestError struct {
	Cause error
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("bad request: %v", e.Cause)
}

func (e *BadRequestError) Unwrap() error {
	return e.Cause
}

type formInput struct {
	RawBody []byte `contentType:"application/x-www-form-urlencoded"`
}

type saveForm struct {
	ID      string `validate:"required,numeric"`
	Content string
}

type createForm struct {
	Name    string `validate:"max=255"`
	Content string
}

type deleteForm struct {
	ID string `validate:"required,numeric"`
}

func parseForm(body []byte) (url.Values, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, &BadRequestError{Cause: eris.Wrap(err, "parsing form body")}
	}
	return values, nil
}

func validateForm(form any) error {
	if err := validate.Struct(form); err != nil {
		var fields []string
		if errs, ok := err.(validator.ValidationErrors); ok { //nolint:errorlint
			for _, fieldErr := range errs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fieldErr.Field(), fieldErr.Tag()))
			}
		}
		if len(fields) == 0 {
			return &BadRequestError{Cause: eris.Wrap(err, "validating form")}
		}
		return &BadRequestError{Cause: eris.Errorf("validating form: %s", strings.Join(fields, ", "))}
	}
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &BadRequestError{Cause: eris.Wrapf(err, "parsing page id %q", raw)}
	}
	return id, nil
}

func decodeSaveForm(body []byte) (int64, string, error) {
	values, err := parseForm(body)
	if err != nil {
		return 0, "", err
	}

	form := saveForm{ID: strings.TrimSpace(values.Get("id")), Content: values.Get("content")}
	if err := validateForm(form); err != nil {
		return 0, "", err
	}

	id, err := parseID(form.ID)
	if err != nil {
		return 0, "", err
	}
	return id, form.Content, nil
}

func decodeCreateForm(body []byte) (createForm, error) {
	values, err := parseForm(body)
	if err != nil {
		return createForm{}, err
	}

	form := createForm{Name: strings.TrimSpace(values.Get("name")), Content: values.Get("content")}
	if err := validateForm(form); err != nil {
		return createForm{}, err
	}
	return form, nil
}

func decodeDeleteForm(body []byte) (int64, error) {
	values, err := parseForm(body)
	if err != nil {
		return 0, err
	}

	form := deleteForm{ID: strings.TrimSpace(values.Get("id"))}
	if err := validateForm(form); err != nil {
		return 0, err
	}
	return parseID(form.ID)
}

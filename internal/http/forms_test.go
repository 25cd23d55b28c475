package http

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeSaveForm(t *testing.T) {
	t.Parallel()

	id, content, err := decodeSaveForm([]byte("id=+12+&content=%23+Title%0A%0Abody"))
	if err != nil {
		t.Fatalf("decodeSaveForm returned error: %v", err)
	}
	if id != 12 {
		t.Fatalf("expected id 12, got %d", id)
	}
	if content != "# Title\n\nbody" {
		t.Fatalf("expected decoded content, got %q", content)
	}
}

func TestDecodeFormsRejectBadInput(t *testing.T) {
	t.Parallel()

	cases := map[string]func() error{
		"non-integer id": func() error {
			_, _, err := decodeSaveForm([]byte("id=1.5"))
			return err
		},
		"missing id": func() error {
			_, err := decodeDeleteForm([]byte("content=x"))
			return err
		},
		"malformed body": func() error {
			_, err := decodeCreateForm([]byte("name=%zz"))
			return err
		},
		"long name": func() error {
			_, err := decodeCreateForm([]byte("name=" + strings.Repeat("n", 256)))
			return err
		},
	}

	for name, decode := range cases {
		var badRequest *BadRequestError
		if err := decode(); !errors.As(err, &badRequest) {
			t.Fatalf("%s: expected BadRequestError, got %v", name, err)
		}
	}
}

func TestDecodeCreateFormTrimsName(t *testing.T) {
	t.Parallel()

	form, err := decodeCreateForm([]byte("name=++Alpha++"))
	if err != nil {
		t.Fatalf("decodeCreateForm returned error: %v", err)
	}
	if form.Name != "Alpha" || form.Content != "" {
		t.Fatalf("expected trimmed name and empty content, got %#v", form)
	}
}

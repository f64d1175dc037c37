//go:build !integration

package i18n

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	translator, err := newTranslatorFromBytes([]byte("greeting: Привет\nwelcome_user: Привет, %s"))
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got, want := translator.T("greeting"), "Привет"; got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got, want := translator.T("nonexistent_key"), "nonexistent_key"; got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got, want := translator.T("welcome_user", "Alice"), "Привет, Alice"; got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})
}

func TestEmbeddedLocales(t *testing.T) {
	for _, lang := range []string{"ru", "en"} {
		t.Run(lang, func(t *testing.T) {
			tr, err := NewTranslator(LocalesFS, lang)
			if err != nil {
				t.Fatalf("expected embedded %s locale to load: %v", lang, err)
			}
			if !strings.Contains(tr.T(KeyWelcome), "\n\n") {
				t.Errorf("welcome prompt should keep its blank line, got %q", tr.T(KeyWelcome))
			}
			if got := tr.T(KeyLeadAccepted, "Alice"); !strings.Contains(got, "Alice") {
				t.Errorf("expected name in acceptance text, got %q", got)
			}
		})
	}

	ru, _ := NewTranslator(LocalesFS, "ru")
	if got, want := ru.T(KeyOperatorNewLead, "Alice", "a@b.com"), "🔔 Новая заявка: Alice, a@b.com"; got != want {
		t.Errorf("wanted %q, got %q", want, got)
	}
}

func TestNewTranslatorRejectsIncompleteLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/xx.yaml": {Data: []byte("welcome: hi")},
	}
	if _, err := NewTranslator(fsys, "xx"); err == nil {
		t.Fatal("expected an error for missing keys")
	}
	if _, err := NewTranslator(fsys, "zz"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

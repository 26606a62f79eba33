package asr

import (
	"testing"

	"captionkit-server-go/internal/domain/caption"
	platformerrors "captionkit-server-go/internal/platform/errors"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		language string
		want     string
	}{
		{"en", ProviderAssemblyAI},
		{"en-GB", ProviderAssemblyAI},
		{"es", ProviderDeepgram},
		{"ja", ProviderDeepgram},
		{"ar", ProviderSpeechmatics},
		{"cy", ProviderSpeechmatics},
		{"multi", ProviderDeepgram},
	}

	for _, tt := range tests {
		got, err := Route(tt.language, nil)
		if err != nil {
			t.Errorf("Route(%q) error: %v", tt.language, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Route(%q) = %q, want %q", tt.language, got, tt.want)
		}
	}
}

func TestRoute_Override(t *testing.T) {
	got, err := Route("en", map[string]string{"en": ProviderDeepgram})
	if err != nil || got != ProviderDeepgram {
		t.Errorf("override not honored: %q, %v", got, err)
	}

	// empty override falls through to the builtin table
	got, err = Route("en", map[string]string{"en": ""})
	if err != nil || got != ProviderAssemblyAI {
		t.Errorf("empty override must fall through: %q, %v", got, err)
	}
}

func TestRoute_UnknownLanguage(t *testing.T) {
	_, err := Route("xx", nil)
	if err == nil {
		t.Fatal("expected error for unmapped language")
	}
	if !platformerrors.IsKind(err, platformerrors.KindValidation) {
		t.Errorf("expected validation kind, got %v", err)
	}
}

func TestRoute_CoversEveryInputLanguage(t *testing.T) {
	for code := range caption.InputLanguages {
		if _, err := Route(code, nil); err != nil {
			t.Errorf("input language %q has no route", code)
		}
	}
}

func TestRegistry(t *testing.T) {
	Register("fake", func(params Params) (Provider, error) {
		return nil, nil
	})

	if _, err := Create("missing", Params{}); err == nil {
		t.Error("expected error for unregistered provider")
	} else if !platformerrors.IsKind(err, platformerrors.KindProvider) {
		t.Errorf("expected provider kind, got %v", err)
	}

	if _, err := Create("fake", Params{}); err != nil {
		t.Errorf("registered factory should be found: %v", err)
	}

	found := false
	for _, name := range Registered() {
		if name == "fake" {
			found = true
		}
	}
	if !found {
		t.Error("Registered() must include the fake provider")
	}
}

package catalog_test

import (
	"testing"

	"release-notifier-bot/catalog"
)

func TestShowIDFromURL(t *testing.T) {
	accepted := map[string]string{
		"https://subsplease.org/shows/one-piece/":                      "one-piece",
		"https://subsplease.org/shows/yami-shibai-9/":                  "yami-shibai-9",
		"https://subsplease.org/shows/d_cide-traumerei-the-animation/": "d_cide-traumerei-the-animation",
	}
	for url, expected := range accepted {
		id, ok := catalog.ShowIDFromURL(url)
		if !ok || id != expected {
			t.Fatalf("ShowIDFromURL(%q) = %q, %v; want %q", url, id, ok, expected)
		}
	}

	rejected := []string{
		"http://subsplease.org/shows/one-piece/",
		"https://susbplease.org/shows/one-piece/",
		"https://google.com/",
		"https://subsplease.org/shws/one-piece/",
		"https://subsplease.org/shows//",
		"lol https://subsplease.org/shows/one-piece/",
		"https://subsplease.org/shows/one-piece",
		"https://subsplease.org/shows/one-piece/episodes/",
		"",
	}
	for _, url := range rejected {
		if id, ok := catalog.ShowIDFromURL(url); ok {
			t.Fatalf("expected %q to be rejected, got id %q", url, id)
		}
	}
}

func TestShowURLRoundTrip(t *testing.T) {
	id, ok := catalog.ShowIDFromURL(catalog.ShowURL("one-piece"))
	if !ok || id != "one-piece" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestAirTimeFormatting(t *testing.T) {
	airing := catalog.AirTime{IsAiring: true, WeekDay: 0, Hour: 9, Minute: 5}
	if airing.String() != "Monday, 09:05" {
		t.Fatalf("unexpected air time %q", airing.String())
	}
	notAiring := catalog.NotAiring()
	if notAiring.String() != "" || notAiring.Clock() != "" || notAiring.Day() != "" {
		t.Fatalf("expected not airing to render empty, got %q", notAiring.String())
	}
}

package release_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"release-notifier-bot/release"
)

const feedHeader = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:subsplease="https://subsplease.org/rss">
<channel>
`

const feedFooter = `
</channel>
</rss>`

const channelMeta = `<title>SubsPlease RSS</title>
<description>RSS feed for SubsPlease releases (1080p)</description>
<link>https://subsplease.org</link>
`

const firstItem = `<item>
  <title>[SubsPlease] One Piece - 1100 (1080p) [ABCDEF01].mkv</title>
  <link>magnet:?xt=urn:btih:one</link>
  <guid isPermaLink="false">GUID-ONE</guid>
  <pubDate>Sun, 10 Mar 2024 02:15:00 +0000</pubDate>
  <category>One Piece - 1080</category>
  <subsplease:size>1.4 GiB</subsplease:size>
</item>
`

const secondItem = `<item>
  <title>[SubsPlease] Megami-ryou no Ryoubo-kun. - 01 (1080p) [12345678].mkv</title>
  <link>magnet:?xt=urn:btih:two</link>
  <guid isPermaLink="false">GUID-TWO</guid>
  <pubDate>Sat, 09 Mar 2024 17:30:00 +0000</pubDate>
  <category>Megami-ryou no Ryoubo-kun. - 1080</category>
  <subsplease:size>700 MiB</subsplease:size>
</item>
`

func document(parts ...string) string {
	return feedHeader + strings.Join(parts, "") + feedFooter
}

func TestParseWellFormedFeed(t *testing.T) {
	feed, err := release.Parse(document(channelMeta, firstItem, secondItem))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if feed.Title != "SubsPlease RSS" {
		t.Fatalf("unexpected title %q", feed.Title)
	}
	if feed.Description != "RSS feed for SubsPlease releases (1080p)" {
		t.Fatalf("unexpected description %q", feed.Description)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(feed.Items))
	}
	first := feed.Items[0]
	expected := release.Item{
		Title:     "[SubsPlease] One Piece - 1100 (1080p) [ABCDEF01].mkv",
		Link:      "magnet:?xt=urn:btih:one",
		GUID:      "GUID-ONE",
		Published: "Sun, 10 Mar 2024 02:15:00 +0000",
		Category:  "One Piece - 1080",
		Size:      "1.4 GiB",
	}
	if first != expected {
		t.Fatalf("unexpected first item:\n got  %#v\n want %#v", first, expected)
	}
	if feed.Items[1].GUID != "GUID-TWO" || feed.Items[1].Size != "700 MiB" {
		t.Fatalf("unexpected second item: %#v", feed.Items[1])
	}
}

func TestParseMissingFields(t *testing.T) {
	tests := []struct {
		name     string
		document string
		expected error
	}{
		{
			name:     "channel title",
			document: document("<description>d</description>", firstItem),
			expected: release.ErrMissingTitle,
		},
		{
			name:     "channel description",
			document: document("<title>t</title>", firstItem),
			expected: release.ErrMissingDescription,
		},
		{
			name:     "item link",
			document: document(channelMeta, firstItem, strings.Replace(secondItem, "<link>magnet:?xt=urn:btih:two</link>", "", 1)),
			expected: release.ErrMissingItemLink,
		},
		{
			name:     "item title",
			document: document(channelMeta, strings.Replace(firstItem, "<title>[SubsPlease] One Piece - 1100 (1080p) [ABCDEF01].mkv</title>", "", 1)),
			expected: release.ErrMissingItemTitle,
		},
		{
			name:     "item guid",
			document: document(channelMeta, strings.Replace(firstItem, `<guid isPermaLink="false">GUID-ONE</guid>`, "", 1)),
			expected: release.ErrMissingItemGUID,
		},
		{
			name:     "item publish date",
			document: document(channelMeta, strings.Replace(firstItem, "<pubDate>Sun, 10 Mar 2024 02:15:00 +0000</pubDate>", "", 1)),
			expected: release.ErrMissingItemPublished,
		},
		{
			name:     "item category",
			document: document(channelMeta, strings.Replace(firstItem, "<category>One Piece - 1080</category>", "", 1)),
			expected: release.ErrMissingItemCategory,
		},
		{
			name:     "item size",
			document: document(channelMeta, strings.Replace(firstItem, "<subsplease:size>1.4 GiB</subsplease:size>", "", 1)),
			expected: release.ErrMissingItemSize,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			feed, err := release.Parse(tc.document)
			if !errors.Is(err, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, err)
			}
			if len(feed.Items) != 0 {
				t.Fatalf("expected no items on failure, got %d", len(feed.Items))
			}
		})
	}
}

func TestParseInvalidDocument(t *testing.T) {
	for _, doc := range []string{"", "not xml at all", "<html><body>nope</body></html>"} {
		_, err := release.Parse(doc)
		if !errors.Is(err, release.ErrInvalidDocument) {
			t.Fatalf("expected ErrInvalidDocument for %q, got %v", doc, err)
		}
	}
}

func TestSourceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(document(channelMeta, firstItem)))
	}))
	defer server.Close()

	feed, err := release.NewSource(server.URL, 0).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(feed.Items) != 1 || feed.Items[0].GUID != "GUID-ONE" {
		t.Fatalf("unexpected feed: %#v", feed)
	}
}

func TestSourceFetchRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := release.NewSource(server.URL, 0).Fetch(context.Background()); err == nil {
		t.Fatal("expected error for bad gateway")
	}
}

// Package release reads the release feed and decides which releases are new.
package release

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidDocument      = errors.New("feed document can't be parsed")
	ErrMissingTitle         = errors.New("feed title is missing")
	ErrMissingDescription   = errors.New("feed description is missing")
	ErrMissingItemTitle     = errors.New("item title is missing")
	ErrMissingItemLink      = errors.New("item link is missing")
	ErrMissingItemGUID      = errors.New("item guid is missing")
	ErrMissingItemPublished = errors.New("item publish date is missing")
	ErrMissingItemCategory  = errors.New("item category is missing")
	ErrMissingItemSize      = errors.New("item size is missing")
)

const (
	sizeElement    = "size"
	defaultTimeout = time.Second * 30
)

type Feed struct {
	Title       string
	Description string
	Items       []Item
}

type Item struct {
	Title     string
	Link      string
	GUID      string
	Published string
	Category  string
	Size      string
}

// Parse reads an RSS document. Items are kept in document order, which the
// release feed guarantees to be newest first. Parsing stops at the first
// missing required field and returns no items.
func Parse(document string) (Feed, error) {
	parsed, err := gofeed.NewParser().ParseString(document)
	if err != nil {
		return Feed{}, errors.Wrap(ErrInvalidDocument, err.Error())
	}
	if len(parsed.Title) == 0 {
		return Feed{}, ErrMissingTitle
	}
	if len(parsed.Description) == 0 {
		return Feed{}, ErrMissingDescription
	}
	feed := Feed{
		Title:       parsed.Title,
		Description: parsed.Description,
		Items:       make([]Item, 0, len(parsed.Items)),
	}
	for i, item := range parsed.Items {
		converted, err := convertItem(item)
		if err != nil {
			return Feed{}, errors.Wrapf(err, "item %v", i)
		}
		feed.Items = append(feed.Items, converted)
	}
	return feed, nil
}

func convertItem(item *gofeed.Item) (Item, error) {
	if len(item.Title) == 0 {
		return Item{}, ErrMissingItemTitle
	}
	if len(item.Link) == 0 {
		return Item{}, ErrMissingItemLink
	}
	if len(item.GUID) == 0 {
		return Item{}, ErrMissingItemGUID
	}
	if len(item.Published) == 0 {
		return Item{}, ErrMissingItemPublished
	}
	if len(item.Categories) == 0 || len(item.Categories[0]) == 0 {
		return Item{}, ErrMissingItemCategory
	}
	size := extensionValue(item, sizeElement)
	if len(size) == 0 {
		return Item{}, ErrMissingItemSize
	}
	return Item{
		Title:     item.Title,
		Link:      item.Link,
		GUID:      item.GUID,
		Published: item.Published,
		Category:  item.Categories[0],
		Size:      size,
	}, nil
}

// extensionValue looks the element up in every namespace, the feed declares
// its own prefix for the size element.
func extensionValue(item *gofeed.Item, name string) string {
	for _, elements := range item.Extensions {
		for _, extension := range elements[name] {
			if value := strings.TrimSpace(extension.Value); len(value) > 0 {
				return value
			}
		}
	}
	return ""
}

type Source struct {
	url    string
	client *http.Client
}

func NewSource(url string, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Source{url: url, client: &http.Client{Timeout: timeout}}
}

// Fetch downloads the feed and parses it.
func (s *Source) Fetch(ctx context.Context) (Feed, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Feed{}, errors.Wrap(err, "unable to create feed request")
	}
	response, err := s.client.Do(request)
	if err != nil {
		return Feed{}, errors.Wrapf(err, "unable to get feed %v", s.url)
	}
	defer func() {
		err := response.Body.Close()
		if err != nil {
			log.Warn().Err(err).Msg("error when closing the feed body")
		}
	}()
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return Feed{}, errors.Errorf("unexpected status %v for feed %v", response.StatusCode, s.url)
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return Feed{}, errors.Wrap(err, "unable to read feed body")
	}
	return Parse(string(body))
}

func (i Item) String() string {
	return fmt.Sprintf("%v (%v)", i.Title, i.GUID)
}

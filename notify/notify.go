// Package notify tells the subscribers of a show about its new releases.
package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"release-notifier-bot/catalog"
	"release-notifier-bot/release"
)

var (
	ErrMappingShowID = errors.New("error mapping category to show id")
	ErrDBUsers       = errors.New("error fetching users")
	ErrDBShow        = errors.New("couldn't fetch show, probably never added")
)

const (
	DefaultMagnetBase = "https://yukino.static.app/"
	myAnimeListFormat = "https://myanimelist.net/search/all?q=%v&cat=all"
	downloadFormat    = "Download - %v"
)

type Store interface {
	SubscriberIDs(showID string) ([]int64, error)
	GetShow(id string) (catalog.Show, error)
}

// Sink delivers a message to a single user.
type Sink interface {
	Deliver(ctx context.Context, userID int64, message Message) error
}

type Link struct {
	Label string
	URL   string
}

type Message struct {
	Title    string
	ImageURL string
	Synopsis string
	Download Link
	ShowPage Link
	Search   Link
}

type Dispatcher struct {
	store      Store
	sink       Sink
	magnetBase string
}

func NewDispatcher(store Store, sink Sink, magnetBase string) *Dispatcher {
	if len(magnetBase) == 0 {
		magnetBase = DefaultMagnetBase
	}
	return &Dispatcher{store: store, sink: sink, magnetBase: magnetBase}
}

// Dispatch sends one message per subscriber of the release's show. A failed
// delivery is logged and doesn't stop the remaining users.
func (d *Dispatcher) Dispatch(ctx context.Context, item release.Item) error {
	showID, ok := release.ShowID(item.Category)
	if !ok {
		return errors.Wrapf(ErrMappingShowID, "category %q", item.Category)
	}
	users, err := d.store.SubscriberIDs(showID)
	if err != nil {
		return errors.Wrap(ErrDBUsers, err.Error())
	}
	if len(users) == 0 {
		log.Debug().Str("show", showID).Msg("release has no subscribers")
		return nil
	}
	show, err := d.store.GetShow(showID)
	if err != nil {
		return errors.Wrap(ErrDBShow, err.Error())
	}
	message := d.compose(item, show)
	delivered := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := d.sink.Deliver(ctx, user, message)
		if err != nil {
			log.Error().Err(err).Int64("user", user).Str("show", show.ID).Msg("couldn't notify user")
			continue
		}
		delivered++
	}
	log.Info().Str("show", show.ID).Int("delivered", delivered).Int("subscribers", len(users)).Msg("release dispatched")
	return nil
}

func (d *Dispatcher) compose(item release.Item, show catalog.Show) Message {
	return Message{
		Title:    item.Title,
		ImageURL: show.ImageURL,
		Synopsis: show.Synopsis,
		Download: Link{
			Label: fmt.Sprintf(downloadFormat, item.Size),
			URL:   d.magnetBase + "?r=" + url.QueryEscape(item.Link),
		},
		ShowPage: Link{Label: show.Name, URL: catalog.ShowURL(show.ID)},
		Search:   Link{Label: "MyAnimeList", URL: fmt.Sprintf(myAnimeListFormat, url.QueryEscape(show.ID))},
	}
}

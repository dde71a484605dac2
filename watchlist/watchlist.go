// Package watchlist manages registered users and the shows they track.
package watchlist

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"release-notifier-bot/catalog"
	"release-notifier-bot/db"
	"release-notifier-bot/mutex"
	"release-notifier-bot/schedule"
)

// Failures a user can act on. ErrStore means "try again later", the others
// point at the input or at a missing show.
var (
	ErrAlreadyAdded      = errors.New("show already added")
	ErrInvalidURL        = errors.New("invalid show url")
	ErrNameNotFound      = errors.New("adding by name is not supported")
	ErrShowNotAvailable  = errors.New("show doesn't exist")
	ErrStore             = errors.New("error communicating with database")
	ErrShowNotFound      = errors.New("show isn't on the watchlist")
	ErrInvalidIdentifier = errors.New("invalid show identifier")
)

const urlMarker = "http"

type Store interface {
	IsRegistered(userId int64) (bool, error)
	Register(userId int64) error
	Unregister(userId int64) error
	LinkExists(userId int64, showId string) (bool, error)
	Link(userId int64, showId string) error
	Unlink(userId int64, showId string) error
	ShowsForUser(userId int64) ([]catalog.Show, error)
	GetShowByName(name string) (catalog.Show, error)
}

type Resolver interface {
	ResolveOrCreate(ctx context.Context, id string) (catalog.Show, error)
}

type Locks interface {
	Link(userId int64, showId string) mutex.Mutex
}

type Service struct {
	store    Store
	resolver Resolver
	locks    Locks
}

func NewService(store Store, resolver Resolver, locks Locks) *Service {
	return &Service{store: store, resolver: resolver, locks: locks}
}

func (s *Service) IsRegistered(userId int64) (bool, error) {
	registered, err := s.store.IsRegistered(userId)
	if err != nil {
		log.Error().Err(err).Int64("user", userId).Msg("error checking user registration")
		return false, errors.Wrap(ErrStore, err.Error())
	}
	return registered, nil
}

func (s *Service) Register(userId int64) error {
	err := s.store.Register(userId)
	if err != nil {
		log.Error().Err(err).Int64("user", userId).Msg("error inserting user")
		return errors.Wrap(ErrStore, err.Error())
	}
	return nil
}

// Unregister forgets the user and their whole watchlist.
func (s *Service) Unregister(userId int64) error {
	err := s.store.Unregister(userId)
	if err != nil {
		log.Error().Err(err).Int64("user", userId).Msg("error removing user")
		return errors.Wrap(ErrStore, err.Error())
	}
	return nil
}

// Add puts the show behind a show page url on the user's watchlist. Shows
// seen for the first time are scraped into the catalog.
func (s *Service) Add(ctx context.Context, userId int64, identifier string) (catalog.Show, error) {
	showId, ok := catalog.ShowIDFromURL(identifier)
	if !ok {
		if strings.Contains(identifier, urlMarker) {
			return catalog.Show{}, ErrInvalidURL
		}
		return catalog.Show{}, ErrNameNotFound
	}
	show, err := s.resolver.ResolveOrCreate(ctx, showId)
	if err != nil && errors.Is(err, catalog.ErrShowNotAvailable) {
		return catalog.Show{}, errors.Wrap(ErrShowNotAvailable, err.Error())
	}
	if err != nil {
		return catalog.Show{}, errors.Wrap(ErrStore, err.Error())
	}
	lock := s.locks.Link(userId, showId)
	err = lock.Lock()
	if err != nil {
		return catalog.Show{}, errors.Wrapf(ErrStore, "unable to lock link: %v", err.Error())
	}
	defer func() {
		_, err := lock.Unlock()
		if err != nil {
			log.Warn().Err(err).Msg("unable to release link lock")
		}
	}()
	exists, err := s.store.LinkExists(userId, showId)
	if err != nil {
		return catalog.Show{}, errors.Wrap(ErrStore, err.Error())
	}
	if exists {
		return catalog.Show{}, ErrAlreadyAdded
	}
	err = s.store.Link(userId, showId)
	if err != nil {
		return catalog.Show{}, errors.Wrap(ErrStore, err.Error())
	}
	return show, nil
}

// Remove takes a show off the watchlist by its page url or its exact name.
func (s *Service) Remove(userId int64, identifier string) error {
	showId, ok := catalog.ShowIDFromURL(identifier)
	if !ok {
		if strings.Contains(identifier, urlMarker) {
			return ErrInvalidIdentifier
		}
		show, err := s.store.GetShowByName(strings.TrimSpace(identifier))
		if err != nil && errors.Is(err, db.ErrNotFound) {
			return ErrShowNotFound
		}
		if err != nil {
			return errors.Wrap(ErrStore, err.Error())
		}
		showId = show.ID
	}
	exists, err := s.store.LinkExists(userId, showId)
	if err != nil {
		return errors.Wrap(ErrStore, err.Error())
	}
	if !exists {
		return ErrShowNotFound
	}
	err = s.store.Unlink(userId, showId)
	if err != nil {
		return errors.Wrap(ErrStore, err.Error())
	}
	return nil
}

// RemoveNonAiring drops every show that has no release slot and returns them.
// On a store failure some shows may already be gone.
func (s *Service) RemoveNonAiring(userId int64) ([]catalog.Show, error) {
	shows, err := s.store.ShowsForUser(userId)
	if err != nil {
		return nil, errors.Wrap(ErrStore, err.Error())
	}
	var removed []catalog.Show
	for _, show := range shows {
		if show.AirTime.IsAiring {
			continue
		}
		err := s.store.Unlink(userId, show.ID)
		if err != nil {
			return removed, errors.Wrap(ErrStore, err.Error())
		}
		removed = append(removed, show)
	}
	return removed, nil
}

func (s *Service) Shows(userId int64) ([]catalog.Show, error) {
	shows, err := s.store.ShowsForUser(userId)
	if err != nil {
		return nil, errors.Wrap(ErrStore, err.Error())
	}
	return shows, nil
}

func (s *Service) Schedule(userId int64) (schedule.Table, error) {
	shows, err := s.Shows(userId)
	if err != nil {
		return schedule.Table{}, err
	}
	return schedule.Build(shows), nil
}

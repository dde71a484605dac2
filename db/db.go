package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"release-notifier-bot/catalog"
)

var (
	ErrNotFound = errors.New("entity not found")
)

type DB struct {
	db      *bun.DB
	timeout time.Duration
}

const (
	defaultTimeout = time.Minute
	cursorStateId  = "last_rss_guid"
)

func New(address, user, password, database string) *DB {
	connector := pgdriver.NewConnector(
		pgdriver.WithInsecure(true),
		pgdriver.WithAddr(address),
		pgdriver.WithUser(user),
		pgdriver.WithPassword(password),
		pgdriver.WithDatabase(database),
	)
	sqldb := sql.OpenDB(connector)
	db := bun.NewDB(sqldb, pgdialect.New())
	return &DB{db: db, timeout: defaultTimeout}
}

func (d *DB) SetTimeout(duration time.Duration) {
	d.timeout = duration
}

func (d *DB) EnableDebug() {
	d.db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.timeout)
}

// CreateSchema creates the tables that don't exist yet.
func (d *DB) CreateSchema(ctx context.Context) error {
	queries := []*bun.CreateTableQuery{
		d.db.NewCreateTable().Model((*Show)(nil)).IfNotExists(),
		d.db.NewCreateTable().Model((*User)(nil)).IfNotExists(),
		d.db.NewCreateTable().Model((*UserShow)(nil)).IfNotExists().
			ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
			ForeignKey(`("show_id") REFERENCES "shows" ("id")`),
		d.db.NewCreateTable().Model((*ProgramState)(nil)).IfNotExists(),
	}
	for _, query := range queries {
		_, err := query.Exec(ctx)
		if err != nil {
			return errors.Wrap(err, "error during schema creation")
		}
	}
	return nil
}

func (d *DB) IsShowStored(id string) (bool, error) {
	s := Show{Id: id}
	ctx, cancel := d.context()
	defer cancel()
	return d.db.NewSelect().Model(&s).WherePK().Exists(ctx)
}

// PutShow inserts the show or overwrites it when it's already there.
func (d *DB) PutShow(show catalog.Show) error {
	s := fromCatalog(show)
	ctx, cancel := d.context()
	defer cancel()
	_, err := d.db.NewInsert().
		Model(&s).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("image_url = EXCLUDED.image_url").
		Set("synopsis = EXCLUDED.synopsis").
		Set("is_airing = EXCLUDED.is_airing").
		Set("est_week_day = EXCLUDED.est_week_day").
		Set("est_hour = EXCLUDED.est_hour").
		Set("est_minute = EXCLUDED.est_minute").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "error during adding show")
	}
	return nil
}

func (d *DB) UpdateShow(show catalog.Show) error {
	s := fromCatalog(show)
	ctx, cancel := d.context()
	defer cancel()
	result, err := d.db.NewUpdate().Model(&s).WherePK().Exec(ctx)
	if err != nil {
		return errors.Wrapf(err, "error during updating show %v", show.ID)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) GetShow(id string) (catalog.Show, error) {
	s := Show{Id: id}
	ctx, cancel := d.context()
	defer cancel()
	err := d.db.NewSelect().Model(&s).WherePK().Scan(ctx)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return catalog.Show{}, ErrNotFound
	}
	if err != nil {
		return catalog.Show{}, errors.Wrap(err, "error during querying show")
	}
	return s.toCatalog(), nil
}

func (d *DB) GetShowByName(name string) (catalog.Show, error) {
	var s Show
	ctx, cancel := d.context()
	defer cancel()
	err := d.db.NewSelect().Model(&s).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return catalog.Show{}, ErrNotFound
	}
	if err != nil {
		return catalog.Show{}, errors.Wrap(err, "error during querying show by name")
	}
	return s.toCatalog(), nil
}

func (d *DB) AllShowIDs() ([]string, error) {
	var ids []string
	ctx, cancel := d.context()
	defer cancel()
	err := d.db.NewSelect().
		Model((*Show)(nil)).
		Column("id").
		Order("id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, errors.Wrap(err, "error during listing shows")
	}
	return ids, nil
}

func (d *DB) SubscriberIDs(showId string) ([]int64, error) {
	var ids []int64
	ctx, cancel := d.context()
	defer cancel()
	err := d.db.NewSelect().
		Model((*UserShow)(nil)).
		Column("user_id").
		Where("show_id = ?", showId).
		Scan(ctx, &ids)
	if err != nil {
		return nil, errors.Wrapf(err, "error during querying subscribers of %v", showId)
	}
	return ids, nil
}

func (d *DB) ShowsForUser(userId int64) ([]catalog.Show, error) {
	var shows []Show
	ctx, cancel := d.context()
	defer cancel()
	err := d.db.NewSelect().
		Model(&shows).
		Join("JOIN user_shows AS us ON us.show_id = show.id").
		Where("us.user_id = ?", userId).
		Order("show.name").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error during querying user shows")
	}
	result := make([]catalog.Show, 0, len(shows))
	for _, s := range shows {
		result = append(result, s.toCatalog())
	}
	return result, nil
}

func (d *DB) LinkExists(userId int64, showId string) (bool, error) {
	ctx, cancel := d.context()
	defer cancel()
	return d.db.NewSelect().
		Model((*UserShow)(nil)).
		Where("user_id = ?", userId).
		Where("show_id = ?", showId).
		Exists(ctx)
}

// Link adds the user-show pair. The unique constraint keeps a racing second
// insert from duplicating it.
func (d *DB) Link(userId int64, showId string) error {
	link := UserShow{UserId: userId, ShowId: showId}
	ctx, cancel := d.context()
	defer cancel()
	_, err := d.db.NewInsert().
		Model(&link).
		On("CONFLICT (user_id, show_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "error during adding user-show link")
	}
	return nil
}

func (d *DB) Unlink(userId int64, showId string) error {
	ctx, cancel := d.context()
	defer cancel()
	_, err := d.db.NewDelete().
		Model((*UserShow)(nil)).
		Where("user_id = ?", userId).
		Where("show_id = ?", showId).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "error during removing user-show link")
	}
	return nil
}

func (d *DB) IsRegistered(userId int64) (bool, error) {
	u := User{Id: userId}
	ctx, cancel := d.context()
	defer cancel()
	return d.db.NewSelect().Model(&u).WherePK().Exists(ctx)
}

func (d *DB) Register(userId int64) error {
	u := User{Id: userId}
	ctx, cancel := d.context()
	defer cancel()
	_, err := d.db.NewInsert().Model(&u).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "error during adding user")
	}
	return nil
}

// Unregister removes the user together with every show on their watchlist.
func (d *DB) Unregister(userId int64) error {
	ctx, cancel := d.context()
	defer cancel()
	return d.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model((*UserShow)(nil)).Where("user_id = ?", userId).Exec(ctx)
		if err != nil {
			return errors.Wrap(err, "error during removing user shows")
		}
		_, err = tx.NewDelete().Model((*User)(nil)).Where("id = ?", userId).Exec(ctx)
		if err != nil {
			return errors.Wrap(err, "error during removing user")
		}
		return nil
	})
}

func (d *DB) GetCursor() (string, error) {
	state := ProgramState{Id: cursorStateId}
	ctx, cancel := d.context()
	defer cancel()
	err := d.db.NewSelect().Model(&state).WherePK().Scan(ctx)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "error during querying last rss guid")
	}
	return state.Value, nil
}

func (d *DB) SetCursor(guid string) error {
	state := ProgramState{Id: cursorStateId, Value: guid}
	ctx, cancel := d.context()
	defer cancel()
	_, err := d.db.NewInsert().
		Model(&state).
		On("CONFLICT (id) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "error during saving last rss guid")
	}
	return nil
}

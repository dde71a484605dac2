package db

import (
	"github.com/uptrace/bun"

	"release-notifier-bot/catalog"
)

type Show struct {
	Id         string `bun:",pk"`
	Name       string `bun:",notnull"`
	ImageUrl   string `bun:",notnull"`
	Synopsis   string `bun:",notnull"`
	IsAiring   bool   `bun:",notnull"`
	EstWeekDay int    `bun:",notnull"`
	EstHour    int    `bun:",notnull"`
	EstMinute  int    `bun:",notnull"`
}

type User struct {
	Id int64 `bun:",pk"`
}

type UserShow struct {
	Id     int64  `bun:",pk,autoincrement"`
	UserId int64  `bun:",notnull,unique:user_show"`
	ShowId string `bun:",notnull,unique:user_show"`
}

type ProgramState struct {
	bun.BaseModel `bun:"table:program_state"`

	Id    string `bun:",pk"`
	Value string `bun:",notnull"`
}

func fromCatalog(s catalog.Show) Show {
	return Show{
		Id:         s.ID,
		Name:       s.Name,
		ImageUrl:   s.ImageURL,
		Synopsis:   s.Synopsis,
		IsAiring:   s.AirTime.IsAiring,
		EstWeekDay: s.AirTime.WeekDay,
		EstHour:    s.AirTime.Hour,
		EstMinute:  s.AirTime.Minute,
	}
}

func (s Show) toCatalog() catalog.Show {
	return catalog.Show{
		ID:       s.Id,
		Name:     s.Name,
		ImageURL: s.ImageUrl,
		Synopsis: s.Synopsis,
		AirTime: catalog.AirTime{
			IsAiring: s.IsAiring,
			WeekDay:  s.EstWeekDay,
			Hour:     s.EstHour,
			Minute:   s.EstMinute,
		},
	}
}

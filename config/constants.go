package config

const (
	DefaultConfigPath  = "./config.json"
	DefaultRSSLink     = "https://subsplease.org/rss/?r=1080"
	DefaultRSSRefresh  = 120
	DefaultRefreshSpec = "@daily"
	DefaultSiteURL     = "https://subsplease.org"
	DefaultScheduleURL = "https://subsplease.org/api/?f=schedule&tz=Europe/Berlin"
	DefaultMagnetBase  = "https://yukino.static.app/"

	DefaultDBAddress = ":5432"
	DefaultDBUser    = "bot"
	DefaultDB        = "bot"

	DefaultHTTPTimeout = 30
	DefaultScrapeDelay = 10
	DefaultLogLevel    = "info"
)

package templates

import _ "embed"

var (
	//go:embed resource/hello.txt
	Hello string
	//go:embed resource/help.txt
	Help string
	//go:embed resource/examples.txt
	Examples string
	//go:embed resource/registerSuccess.txt
	RegisterSuccess string
	//go:embed resource/alreadyRegistered.txt
	AlreadyRegistered string
	//go:embed resource/unregisterSuccess.txt
	UnregisterSuccess string
	//go:embed resource/unknownCommand.txt
	UnknownCommand string
	//go:embed resource/databaseError.txt
	DatabaseError string
	//go:embed resource/unexpectedError.txt
	UnexpectedError string
	//go:embed resource/emptyAdd.txt
	EmptyAdd string
	//go:embed resource/addSuccess.txt
	AddSuccess string
	//go:embed resource/airing.txt
	Airing string
	//go:embed resource/notAiring.txt
	NotAiring string
	//go:embed resource/alreadyAdded.txt
	AlreadyAdded string
	//go:embed resource/invalidUrl.txt
	InvalidUrl string
	//go:embed resource/showNotAvailable.txt
	ShowNotAvailable string
	//go:embed resource/nameNotSupported.txt
	NameNotSupported string
	//go:embed resource/removeSuccess.txt
	RemoveSuccess string
	//go:embed resource/invalidIdentifier.txt
	InvalidIdentifier string
	//go:embed resource/showNotFound.txt
	ShowNotFound string
	//go:embed resource/removedNonAiring.txt
	RemovedNonAiring string
	//go:embed resource/noNonAiring.txt
	NoNonAiring string
	//go:embed resource/removeNonAiringError.txt
	RemoveNonAiringError string
	//go:embed resource/schedule.txt
	Schedule string
	//go:embed resource/scheduleContinued.txt
	ScheduleContinued string
	//go:embed resource/emptySchedule.txt
	EmptySchedule string
	//go:embed resource/scheduleError.txt
	ScheduleError string
	//go:embed resource/release.txt
	Release string
)

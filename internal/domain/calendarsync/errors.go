package calendarsync

import "errors"

var (
	// ErrReauthorizationRequired means the stored credential is invalid or
	// could not be refreshed. Terminal for the affected job: the queue must
	// not retry, the user has to reconnect the calendar.
	ErrReauthorizationRequired = errors.New("calendar authorization expired, user must reconnect")

	// ErrNoCredential means the user never connected a calendar.
	ErrNoCredential = errors.New("no calendar credential for user")

	// ErrSyncDisabled means sync is turned off in the user's settings.
	ErrSyncDisabled = errors.New("calendar sync is disabled for user")

	// ErrStaleSyncToken is returned by the provider client when the
	// incremental cursor has expired and a full resync is required.
	ErrStaleSyncToken = errors.New("sync token expired")
)

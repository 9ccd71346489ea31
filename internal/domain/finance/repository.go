package finance

import "context"

// EventRepository is the collaborator interface to the financial-event
// store. The sync executor consumes it and never bypasses it.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Event, error)
	FindByUser(ctx context.Context, userID string) ([]*Event, error)
}

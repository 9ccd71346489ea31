package googlecal

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/shared/biztime"
	"aegiswallet/internal/shared/errors"
)

// Private extended-property keys tagging events managed by this
// application. The event id key is how inbound syncs recognize their own
// outbound writes.
const (
	propEventID  = "aegisEventId"
	propCategory = "aegisCategory"
)

const dateLayout = "2006-01-02"

// Client implements the calendarsync.CalendarProvider port against the
// Google Calendar v3 API. A fresh service is built per call from the
// caller's access token; the client itself holds no per-user state.
type Client struct {
	nowFn func() time.Time
}

// NewClient creates a Google Calendar client.
func NewClient() *Client {
	return &Client{nowFn: biztime.NowUTC}
}

func (c *Client) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	service, err := calendar.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, source)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return service, nil
}

// ListWindow pages through all events between from and to. The sync token
// from the last page seeds later incremental listings.
func (c *Client) ListWindow(ctx context.Context, accessToken, calendarID string, from, to time.Time) ([]*calendarsync.ExternalEvent, string, error) {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, "", err
	}

	var events []*calendarsync.ExternalEvent
	var syncToken string
	pageToken := ""
	for {
		call := service.Events.List(calendarID).
			Context(ctx).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			MaxResults(250)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, "", classify("list events", err)
		}

		for _, item := range page.Items {
			events = append(events, toExternalEvent(item))
		}
		if page.NextPageToken == "" {
			syncToken = page.NextSyncToken
			break
		}
		pageToken = page.NextPageToken
	}
	return events, syncToken, nil
}

// ListIncremental pages through all changes since syncToken, cancelled
// events included. An expired cursor surfaces as ErrStaleSyncToken.
func (c *Client) ListIncremental(ctx context.Context, accessToken, calendarID, syncToken string) ([]*calendarsync.ExternalEvent, string, error) {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, "", err
	}

	var events []*calendarsync.ExternalEvent
	var nextToken string
	pageToken := ""
	for {
		call := service.Events.List(calendarID).
			Context(ctx).
			SyncToken(syncToken).
			ShowDeleted(true).
			MaxResults(250)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			if isGone(err) {
				return nil, "", calendarsync.ErrStaleSyncToken
			}
			return nil, "", classify("list event changes", err)
		}

		for _, item := range page.Items {
			events = append(events, toExternalEvent(item))
		}
		if page.NextPageToken == "" {
			nextToken = page.NextSyncToken
			break
		}
		pageToken = page.NextPageToken
	}
	return events, nextToken, nil
}

func (c *Client) InsertEvent(ctx context.Context, accessToken, calendarID string, event *calendarsync.ExternalEvent) (*calendarsync.ExternalEvent, error) {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	created, err := service.Events.Insert(calendarID, fromExternalEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, classify("insert event", err)
	}
	return toExternalEvent(created), nil
}

// PatchEvent updates an existing event, sending the known ETag as an
// If-Match precondition when present.
func (c *Client) PatchEvent(ctx context.Context, accessToken, calendarID string, event *calendarsync.ExternalEvent) (*calendarsync.ExternalEvent, error) {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	call := service.Events.Patch(calendarID, event.ID, fromExternalEvent(event)).Context(ctx)
	if event.ETag != "" {
		call.Header().Set("If-Match", event.ETag)
	}

	updated, err := call.Do()
	if err != nil {
		return nil, classify("patch event", err)
	}
	return toExternalEvent(updated), nil
}

// DeleteEvent removes an event. An already-deleted event reports success.
func (c *Client) DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := service.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		if isNotFound(err) || isGone(err) {
			return nil
		}
		return classify("delete event", err)
	}
	return nil
}

// WatchEvents registers a webhook channel delivering change notifications
// for the calendar to address.
func (c *Client) WatchEvents(ctx context.Context, accessToken, calendarID, channelID, secret, address string, ttl time.Duration) (*calendarsync.ChannelInfo, error) {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	channel := &calendar.Channel{
		Id:         channelID,
		Type:       "web_hook",
		Address:    address,
		Token:      secret,
		Expiration: c.channelExpiration(ttl),
	}
	created, err := service.Events.Watch(calendarID, channel).Context(ctx).Do()
	if err != nil {
		return nil, classify("watch events", err)
	}

	return &calendarsync.ChannelInfo{
		ID:         created.Id,
		ResourceID: created.ResourceId,
		ExpiresAt:  time.UnixMilli(created.Expiration).UTC(),
	}, nil
}

// channelExpiration computes the expiration requested for a new webhook
// channel, in epoch milliseconds as the API expects.
func (c *Client) channelExpiration(ttl time.Duration) int64 {
	return c.nowFn().Add(ttl).UnixMilli()
}

func (c *Client) StopChannel(ctx context.Context, accessToken, channelID, resourceID string) error {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return err
	}

	channel := &calendar.Channel{Id: channelID, ResourceId: resourceID}
	if err := service.Channels.Stop(channel).Context(ctx).Do(); err != nil {
		if isNotFound(err) || isGone(err) {
			return nil
		}
		return classify("stop channel", err)
	}
	return nil
}

// toExternalEvent converts an API event into the provider-neutral shape.
func toExternalEvent(event *calendar.Event) *calendarsync.ExternalEvent {
	external := &calendarsync.ExternalEvent{
		ID:          event.Id,
		ETag:        event.Etag,
		Cancelled:   event.Status == "cancelled",
		Summary:     event.Summary,
		Description: event.Description,
		ColorID:     event.ColorId,
	}

	if event.Updated != "" {
		if updated, err := time.Parse(time.RFC3339, event.Updated); err == nil {
			external.UpdatedAt = updated.UTC()
		}
	}

	external.StartAt, external.AllDay = parseEventTime(event.Start)
	external.EndAt, _ = parseEventTime(event.End)

	if event.ExtendedProperties != nil && event.ExtendedProperties.Private != nil {
		external.AppEventID = event.ExtendedProperties.Private[propEventID]
		external.AppCategory = event.ExtendedProperties.Private[propCategory]
	}
	return external
}

// fromExternalEvent converts the provider-neutral shape into an API event.
func fromExternalEvent(event *calendarsync.ExternalEvent) *calendar.Event {
	out := &calendar.Event{
		Id:          event.ID,
		Summary:     event.Summary,
		Description: event.Description,
		ColorId:     event.ColorID,
	}

	if event.AllDay {
		out.Start = &calendar.EventDateTime{Date: event.StartAt.In(biztime.Location()).Format(dateLayout)}
		out.End = &calendar.EventDateTime{Date: event.EndAt.In(biztime.Location()).Format(dateLayout)}
	} else {
		out.Start = &calendar.EventDateTime{
			DateTime: event.StartAt.Format(time.RFC3339),
			TimeZone: biztime.Location().String(),
		}
		out.End = &calendar.EventDateTime{
			DateTime: event.EndAt.Format(time.RFC3339),
			TimeZone: biztime.Location().String(),
		}
	}

	if event.AppEventID != "" || event.AppCategory != "" {
		out.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: map[string]string{},
		}
		if event.AppEventID != "" {
			out.ExtendedProperties.Private[propEventID] = event.AppEventID
		}
		if event.AppCategory != "" {
			out.ExtendedProperties.Private[propCategory] = event.AppCategory
		}
	}
	return out
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.Date != "" {
		if day, err := time.ParseInLocation(dateLayout, edt.Date, biztime.Location()); err == nil {
			return day.UTC(), true
		}
		return time.Time{}, true
	}
	if parsed, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
		return parsed.UTC(), false
	}
	return time.Time{}, false
}

// classify maps provider errors to the engine's error model. Revoked
// credentials are terminal; rate limits and server errors are retryable.
func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if !asGoogleAPIError(err, &apiErr) {
		return errors.NewUnavailableError(fmt.Sprintf("failed to %s", op), err.Error())
	}

	switch {
	case apiErr.Code == http.StatusUnauthorized:
		return calendarsync.ErrReauthorizationRequired
	case apiErr.Code == http.StatusNotFound:
		return errors.NewNotFoundError(fmt.Sprintf("failed to %s: event not found", op))
	case apiErr.Code == http.StatusPreconditionFailed:
		return errors.NewConflictError(fmt.Sprintf("failed to %s: event changed concurrently", op))
	case apiErr.Code == http.StatusForbidden && isRateLimited(apiErr):
		return errors.NewUnavailableError(fmt.Sprintf("rate limited while trying to %s", op), apiErr.Message)
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
		return errors.NewUnavailableError(fmt.Sprintf("provider unavailable while trying to %s", op), apiErr.Message)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

func isRateLimited(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}

func asGoogleAPIError(err error, target **googleapi.Error) bool {
	return stderrors.As(err, target)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return asGoogleAPIError(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	return asGoogleAPIError(err, &apiErr) && apiErr.Code == http.StatusGone
}

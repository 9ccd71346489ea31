// Package eventmapper converts between financial events and external
// calendar events. All functions are pure; the same input always produces
// the same output.
package eventmapper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/domain/finance"
	"aegiswallet/internal/shared/biztime"
)

// Calendar color ids distinguishing money direction at a glance.
const (
	ColorIncome  = "10"
	ColorExpense = "11"
)

var amountPrinter = message.NewPrinter(language.BrazilianPortuguese)

// amountSuffixPattern matches the amount line the mapper appends to event
// descriptions. It accepts both pt-BR and plain decimal notation so events
// edited by hand still parse.
var amountSuffixPattern = regexp.MustCompile(`\n\nR\$\s*([0-9.,]+)\s*$`)

// ToExternal maps a financial event to its external calendar form. When
// includeAmount is set, the formatted amount is appended to the description
// after a blank line.
func ToExternal(event *finance.Event, includeAmount bool) *calendarsync.ExternalEvent {
	external := &calendarsync.ExternalEvent{
		Summary:     event.Title,
		Description: event.Description,
		AllDay:      event.AllDay,
		StartAt:     event.StartAt,
		EndAt:       event.EndAt,
		AppEventID:  event.ID,
		AppCategory: event.Category,
	}

	if event.Income {
		external.ColorID = ColorIncome
	} else {
		external.ColorID = ColorExpense
	}

	if includeAmount {
		external.Description = event.Description + "\n\n" + FormatAmount(event.AmountCents)
	}

	if event.AllDay {
		start := biztime.StartOfDay(event.StartAt)
		external.StartAt = start
		external.EndAt = start.Add(24 * time.Hour)
	}
	return external
}

// ToLocal maps an external calendar event to a new financial event for the
// given user. When parseAmount is set, the amount is recovered from the
// description suffix and the suffix stripped; otherwise the description is
// kept verbatim. The category comes from the event's private metadata and
// falls back to the default.
func ToLocal(external *calendarsync.ExternalEvent, userID string, parseAmount bool) *finance.Event {
	event := finance.NewEvent(userID, external.Summary, external.StartAt, external.EndAt)
	event.Description = external.Description
	event.Income = external.ColorID == ColorIncome
	event.Category = categoryOf(external)
	event.AllDay = external.AllDay

	if parseAmount {
		event.Description = StripAmount(external.Description)
		if cents, ok := ParseAmount(external.Description); ok {
			event.AmountCents = cents
		}
	}
	return event
}

// ApplyExternal overwrites a local event's user-visible fields with the
// external event's state. Identity and ownership fields are untouched; the
// amount suffix is only interpreted when parseAmount is set.
func ApplyExternal(event *finance.Event, external *calendarsync.ExternalEvent, parseAmount bool) {
	event.Title = external.Summary
	event.Description = external.Description
	event.Income = external.ColorID == ColorIncome
	event.AllDay = external.AllDay
	event.StartAt = external.StartAt
	event.EndAt = external.EndAt
	if external.AppCategory != "" {
		event.Category = external.AppCategory
	}
	if parseAmount {
		event.Description = StripAmount(external.Description)
		if cents, ok := ParseAmount(external.Description); ok {
			event.AmountCents = cents
		}
	}
}

// FormatAmount renders cents as a pt-BR currency string, e.g. "R$ 1.234,56".
func FormatAmount(cents int64) string {
	return amountPrinter.Sprintf("R$ %.2f", float64(cents)/100)
}

// ParseAmount recovers the amount in cents from a description's amount
// suffix. It accepts "1.234,56" and "1234.56" notations.
func ParseAmount(description string) (int64, bool) {
	match := amountSuffixPattern.FindStringSubmatch(description)
	if match == nil {
		return 0, false
	}
	return parseDecimal(match[1])
}

// StripAmount removes the appended amount line from a description.
func StripAmount(description string) string {
	return amountSuffixPattern.ReplaceAllString(description, "")
}

func parseDecimal(raw string) (int64, bool) {
	normalized := raw
	switch {
	case strings.Contains(raw, ","):
		// pt-BR: dots are thousands separators, comma is the decimal mark.
		normalized = strings.ReplaceAll(raw, ".", "")
		normalized = strings.Replace(normalized, ",", ".", 1)
	case strings.Count(raw, ".") > 1:
		return 0, false
	}

	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	cents, err := strconv.ParseInt(fmt.Sprintf("%.0f", value*100), 10, 64)
	if err != nil {
		return 0, false
	}
	return cents, true
}

func categoryOf(external *calendarsync.ExternalEvent) string {
	if external.AppCategory != "" {
		return external.AppCategory
	}
	return finance.DefaultCategory
}

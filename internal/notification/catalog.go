package notification

import (
	"bytes"
	"text/template"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/preference"
)

// CatalogEntry supplies the defaults applied to a send request that omits
// title, message, priority or action code.
type CatalogEntry struct {
	Title    string
	Message  string
	Priority Priority
	Code     string
}

// catalog is the static message catalog, keyed by category then event type.
var catalog = map[preference.Category]map[string]CatalogEntry{
	preference.CategoryAccount: {
		"PROFILE_UPDATED": {
			Title:    "Profile updated",
			Message:  "Hi {{.Name}}, your profile details were updated.",
			Priority: PriorityNormal,
			Code:     "OPEN_PROFILE",
		},
		"PASSWORD_CHANGED": {
			Title:    "Password changed",
			Message:  "Your account password was changed. If this wasn't you, contact support immediately.",
			Priority: PriorityHigh,
			Code:     "OPEN_SECURITY",
		},
	},
	preference.CategorySupport: {
		"TICKET_CREATED": {
			Title:    "Support ticket created",
			Message:  "Your ticket {{.TicketID}} has been created. We'll get back to you shortly.",
			Priority: PriorityNormal,
			Code:     "OPEN_TICKET",
		},
		"TICKET_REPLIED": {
			Title:    "New reply on your ticket",
			Message:  "There is a new reply on ticket {{.TicketID}}.",
			Priority: PriorityNormal,
			Code:     "OPEN_TICKET",
		},
		"TICKET_CLOSED": {
			Title:    "Ticket closed",
			Message:  "Your ticket {{.TicketID}} has been resolved and closed.",
			Priority: PriorityLow,
			Code:     "OPEN_TICKET",
		},
	},
	preference.CategorySystem: {
		"MAINTENANCE": {
			Title:    "Scheduled maintenance",
			Message:  "The service will be unavailable at {{.Window}} for maintenance.",
			Priority: PriorityHigh,
			Code:     "OPEN_STATUS",
		},
	},
	preference.CategoryMarketing: {
		"ANNOUNCEMENT": {
			Title:    "Something new for you",
			Message:  "{{.Headline}}",
			Priority: PriorityLow,
			Code:     "OPEN_PAGE",
		},
	},
}

// Lookup returns the catalog entry for (category, eventType).
func Lookup(category preference.Category, eventType string) (CatalogEntry, bool) {
	entry, ok := catalog[category][eventType]
	return entry, ok
}

// renderText executes the catalog message as a template against the request
// data. Render failures fall back to the raw text rather than failing the
// dispatch.
func renderText(text string, data map[string]string) string {
	if len(data) == 0 {
		return text
	}
	tmpl, err := template.New("message").Option("missingkey=zero").Parse(text)
	if err != nil {
		return text
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return text
	}
	return buf.String()
}

package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/salonhq/booking-agent/internal/catalog"
	"github.com/salonhq/booking-agent/pkg/logging"
)

// FallbackMessage is sent whenever the advisor call fails. A user always gets
// a reply, never silence.
const FallbackMessage = "I'm having trouble processing your request right now. Please try again or reply with 'AGENT' for human assistance."

// ClarificationPrompt asks for the three booking fields when the advisor
// signals a booking intent without extracting all of them.
const ClarificationPrompt = "I'd be happy to help you book an appointment! Please provide:\n" +
	"1. Service type (haircut, coloring, styling, or treatment)\n" +
	"2. Preferred date (YYYY-MM-DD)\n" +
	"3. Preferred time\n\n" +
	"Or reply 'AGENT' to speak with someone directly."

// legacyBookingMarker is the prose token older prompts taught the model to
// emit. Still honored as a booking intent with no extracted fields.
const legacyBookingMarker = "BOOKING_REQUEST"

const intentTag = "INTENT:"

// Intent actions the advisor classifies free text into.
const (
	ActionChat     = "chat"
	ActionBook     = "book"
	ActionEscalate = "escalate"
)

// Intent is the structured classification parsed from the advisor's reply.
type Intent struct {
	Action  string
	Service string
	Date    string
	Time    string
}

// Complete reports whether all three booking fields were extracted.
func (i Intent) Complete() bool {
	return i.Service != "" && i.Date != "" && i.Time != ""
}

// Reply is the resolver's outcome: user-visible text plus the classification.
type Reply struct {
	Text   string
	Intent Intent
}

// Resolver turns free text plus recent history into a reply and a structured
// intent, delegating the natural language to the advisor.
type Resolver struct {
	advisor AdvisorClient
	timeout time.Duration
	logger  *logging.Logger
}

// NewResolver creates an intent resolver.
func NewResolver(advisor AdvisorClient, timeout time.Duration, logger *logging.Logger) *Resolver {
	if advisor == nil {
		panic("conversation: advisor client required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{advisor: advisor, timeout: timeout, logger: logger}
}

// Resolve classifies the message. Advisor failures are absorbed here: the
// returned reply carries FallbackMessage and a chat intent, never an error
// that would abort the pipeline.
func (r *Resolver) Resolve(ctx context.Context, message string, history []Turn) Reply {
	messages := make([]ChatMessage, 0, len(history)*2+1)
	for _, turn := range history {
		messages = append(messages,
			ChatMessage{Role: ChatRoleUser, Content: turn.Inbound},
			ChatMessage{Role: ChatRoleAssistant, Content: turn.Outbound},
		)
	}
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: message})

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.advisor.Complete(ctx, AdvisorRequest{
		System:      []string{systemPrompt()},
		Messages:    messages,
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		r.logger.Error("advisor call failed", "error", err)
		return Reply{Text: FallbackMessage, Intent: Intent{Action: ActionChat}}
	}

	intent, text := parseIntent(resp.Text)
	if text == "" {
		text = FallbackMessage
	}
	return Reply{Text: Truncate(text), Intent: intent}
}

// parseIntent strips the structured trailer from the advisor's text and
// returns the classification alongside the user-visible remainder.
func parseIntent(text string) (Intent, string) {
	intent := Intent{Action: ActionChat}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(trimmed), intentTag) {
			kept = append(kept, line)
			continue
		}
		parseTagLine(trimmed, &intent)
	}

	cleaned := strings.TrimSpace(strings.Join(kept, "\n"))
	if strings.Contains(cleaned, legacyBookingMarker) {
		if intent.Action == ActionChat {
			intent.Action = ActionBook
		}
		cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, legacyBookingMarker, ""))
	}
	return intent, cleaned
}

func parseTagLine(line string, intent *Intent) {
	rest := strings.TrimSpace(line[len(intentTag):])
	for i, field := range strings.Fields(rest) {
		key, value, found := strings.Cut(field, "=")
		if !found {
			if i == 0 {
				switch strings.ToLower(field) {
				case ActionBook, ActionChat, ActionEscalate:
					intent.Action = strings.ToLower(field)
				}
			}
			continue
		}
		switch strings.ToLower(key) {
		case "service":
			intent.Service = strings.ToLower(value)
		case "date":
			intent.Date = value
		case "time":
			intent.Time = value
		}
	}
}

func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant for a hair salon appointment booking system. You can help customers:\n")
	b.WriteString("1. Book appointments (ask for service, date, and time)\n")
	b.WriteString("2. Check available time slots\n")
	b.WriteString("3. Answer questions about services and pricing\n\n")

	b.WriteString("Available services:\n")
	for _, svc := range catalog.Services() {
		fmt.Fprintf(&b, "- %s: $%d (%d min)\n", svc.Name, svc.PriceUSD, svc.DurationMinutes)
	}

	b.WriteString("\nAvailable time slots: ")
	b.WriteString(strings.Join(catalog.TimeSlots(), ", "))
	b.WriteString("\nWorking days: Monday to Saturday\nClosed on Sundays\n\n")

	b.WriteString("If a customer needs human assistance, tell them to reply with \"AGENT\" and we'll call them.\n\n")

	b.WriteString("Keep responses concise and friendly. End every reply with exactly one classification line of the form:\n")
	b.WriteString("INTENT: <book|chat|escalate> service=<service key> date=<YYYY-MM-DD> time=<HH:MM>\n")
	b.WriteString("Include the service, date and time fields only when the customer has stated them. ")
	b.WriteString("Use action book when the customer wants to make a booking, escalate when they ask for a human, chat otherwise.")
	return b.String()
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/salonhq/booking-agent/internal/bookings"
	"github.com/salonhq/booking-agent/internal/catalog"
	"github.com/salonhq/booking-agent/internal/messaging"
	"github.com/salonhq/booking-agent/internal/users"
	"github.com/salonhq/booking-agent/pkg/logging"
)

// historyLimit bounds how many prior turns are fed to the advisor.
const historyLimit = 5

// AgentCallMessage confirms the escalation voice call was placed.
const AgentCallMessage = "A human agent will call you shortly to assist with your appointment booking."

// AgentCallFailedMessage is sent when the voice call could not be placed.
const AgentCallFailedMessage = "Sorry, I couldn't initiate a call right now. Please try again later or continue with text messages."

// Pipeline executes the post-ack processing for one inbound event. Every
// step past address normalization is best-effort: a failure is logged and the
// remaining steps still run with whatever state is available, so the user
// always gets a reply and the transport never sees an error.
type Pipeline struct {
	store     *Store
	users     *users.Repository
	resolver  *Resolver
	engine    *bookings.Service
	messenger Messenger
	voiceURL  string
	logger    *logging.Logger
}

// NewPipeline wires the processing steps together. voiceURL is the absolute
// URL serving the escalation call's TwiML.
func NewPipeline(store *Store, usersRepo *users.Repository, resolver *Resolver, engine *bookings.Service, messenger Messenger, voiceURL string, logger *logging.Logger) *Pipeline {
	if store == nil {
		panic("conversation: store required")
	}
	if resolver == nil {
		panic("conversation: resolver required")
	}
	if messenger == nil {
		panic("conversation: messenger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		store:     store,
		users:     usersRepo,
		resolver:  resolver,
		engine:    engine,
		messenger: messenger,
		voiceURL:  voiceURL,
		logger:    logger,
	}
}

// Process runs the strict step sequence for one inbound event.
func (p *Pipeline) Process(ctx context.Context, job InboundJob) error {
	// Step 1: normalize, fail closed. A malformed address must not leak
	// into storage or outbound sends.
	from, err := messaging.NormalizeAddress(job.From)
	if err != nil {
		return fmt.Errorf("conversation: refusing job %s: %w", job.ID, err)
	}
	log := p.logger.With("job_id", job.ID, "from", from)

	// Step 2: bound the text before any persistence.
	text := Truncate(job.Body)
	if len(text) != len(job.Body) {
		log.Warn("inbound text truncated", "original_len", len(job.Body))
	}

	// Lazy user creation; non-fatal for the chat path.
	if p.users != nil {
		if _, err := p.users.GetOrCreate(ctx, from, job.ProfileName); err != nil {
			log.Error("user get-or-create failed", "error", err)
		}
	}

	// Step 3: persist the inbound half. Non-fatal; processing continues
	// with the in-memory text.
	turnID, err := p.store.AppendInbound(ctx, from, text)
	if err != nil {
		log.Error("failed to persist inbound turn", "error", err)
		turnID = uuid.Nil
	}

	// Steps 4-5: special commands bypass the resolver entirely.
	var reply string
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "AGENT":
		reply = p.escalate(ctx, from, log)
	case "MENU":
		reply = MenuMessage()
	default:
		reply = p.resolve(ctx, from, text, log)
	}

	// Step 6: patch the outbound half of exactly this event's turn.
	if turnID != uuid.Nil {
		if err := p.store.PatchOutbound(ctx, turnID, reply); err != nil {
			log.Error("failed to patch outbound turn", "error", err)
		}
	}

	// Step 7: dispatch the reply.
	if err := p.messenger.SendMessage(ctx, from, reply); err != nil {
		log.Error("failed to send reply", "error", err)
	}
	return nil
}

func (p *Pipeline) escalate(ctx context.Context, from string, log *logging.Logger) string {
	if err := p.messenger.StartCall(ctx, from, p.voiceURL); err != nil {
		log.Error("failed to initiate escalation call", "error", err)
		return AgentCallFailedMessage
	}
	log.Info("escalation call initiated")
	return AgentCallMessage
}

func (p *Pipeline) resolve(ctx context.Context, from, text string, log *logging.Logger) string {
	history, err := p.store.RecentHistory(ctx, from, historyLimit)
	if err != nil {
		// No history is valid resolver input, not an error.
		log.Error("failed to load history, resolving without it", "error", err)
		history = nil
	}

	reply := p.resolver.Resolve(ctx, text, history)
	if reply.Intent.Action != ActionBook {
		return reply.Text
	}
	if !reply.Intent.Complete() {
		return ClarificationPrompt
	}
	return p.book(ctx, from, reply.Intent, log)
}

func (p *Pipeline) book(ctx context.Context, from string, intent Intent, log *logging.Logger) string {
	appt, err := p.engine.Book(ctx, from, "", intent.Service, intent.Date, intent.Time)
	switch {
	case err == nil:
		log.Info("booking confirmed from conversation",
			"appointment_id", appt.ID, "date", appt.Date, "time", appt.Time)
		return fmt.Sprintf("You're booked! %s on %s at %s ($%d). Reply 'MENU' to see our services or 'AGENT' to reach a human.",
			appt.ServiceName, appt.Date, appt.Time, appt.PriceUSD)
	case errors.Is(err, bookings.ErrSlotTaken):
		return p.suggestAlternatives(ctx, intent, log)
	case errors.Is(err, bookings.ErrInvalidService), errors.Is(err, bookings.ErrInvalidSlot):
		log.Info("booking rejected", "error", err)
		return ClarificationPrompt
	default:
		log.Error("booking failed", "error", err)
		return FallbackMessage
	}
}

func (p *Pipeline) suggestAlternatives(ctx context.Context, intent Intent, log *logging.Logger) string {
	slots, err := p.engine.SlotsFor(ctx, intent.Date)
	if err != nil || len(slots) == 0 {
		if err != nil {
			log.Error("failed to load alternative slots", "error", err)
		}
		return fmt.Sprintf("Sorry, %s at %s is already taken and I couldn't find an open slot that day. Please suggest another date.", intent.Date, intent.Time)
	}
	return fmt.Sprintf("Sorry, %s at %s is already taken. Open times that day: %s.", intent.Date, intent.Time, strings.Join(slots, ", "))
}

// MenuMessage lists the service catalog with prices and durations.
func MenuMessage() string {
	var b strings.Builder
	b.WriteString("Welcome to our salon!\n\nAvailable services:\n")
	for _, svc := range catalog.Services() {
		fmt.Fprintf(&b, "- %s - $%d (%d min)\n", svc.Name, svc.PriceUSD, svc.DurationMinutes)
	}
	b.WriteString("\nReply with:\n- Service name to check availability\n- \"AGENT\" for human assistance\n- \"MENU\" to see this menu again")
	return b.String()
}

package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/salonhq/booking-agent/internal/catalog"
	"github.com/salonhq/booking-agent/internal/users"
	"github.com/salonhq/booking-agent/pkg/logging"
)

// Service is the availability engine: it answers which slots are free and
// performs the exclusive allocation of a slot to one appointment.
type Service struct {
	repo   *Repository
	users  *users.Repository
	logger *logging.Logger
}

// NewService constructs the availability engine.
func NewService(repo *Repository, usersRepo *users.Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if usersRepo == nil {
		panic("bookings: users repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, users: usersRepo, logger: logger}
}

// SlotsFor returns the grid minus booked times for the date, preserving grid
// order. A storage failure is an error: presenting the full grid when the
// database is unreachable would advertise slots that may not exist.
func (s *Service) SlotsFor(ctx context.Context, date string) ([]string, error) {
	if _, err := catalog.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
	}

	booked, err := s.repo.BookedTimes(ctx, date)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	available := make([]string, 0, len(catalog.TimeSlots()))
	for _, slot := range catalog.TimeSlots() {
		if _, ok := taken[slot]; !ok {
			available = append(available, slot)
		}
	}
	return available, nil
}

// IsAvailable reports whether no non-cancelled appointment occupies the slot.
func (s *Service) IsAvailable(ctx context.Context, date, timeOfDay string) (bool, error) {
	exists, err := s.repo.ExistsAt(ctx, date, timeOfDay)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Book validates the request, resolves the user lazily and allocates the
// slot. The pre-check is only an early fail; the insert's unique constraint
// is what actually guarantees at most one confirmed appointment per slot,
// surfacing as ErrSlotTaken under concurrent booking of the same slot.
func (s *Service) Book(ctx context.Context, phone, name, serviceKey, date, timeOfDay string) (*Appointment, error) {
	svc, ok := catalog.LookupService(serviceKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidService, serviceKey)
	}

	day, err := catalog.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
	}
	if !catalog.IsWorkingDay(day) {
		return nil, fmt.Errorf("%w: closed on %s", ErrInvalidSlot, day.Weekday())
	}
	if !catalog.IsValidSlot(timeOfDay) {
		return nil, fmt.Errorf("%w: %q is not a bookable time", ErrInvalidSlot, timeOfDay)
	}

	available, err := s.IsAvailable(ctx, date, timeOfDay)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrSlotTaken
	}

	user, err := s.users.GetOrCreate(ctx, phone, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserResolution, err)
	}

	appt := &Appointment{
		UserID:          user.ID,
		ServiceName:     svc.Name,
		PriceUSD:        svc.PriceUSD,
		DurationMinutes: svc.DurationMinutes,
		Date:            date,
		Time:            timeOfDay,
		Status:          StatusConfirmed,
	}
	if err := s.repo.Insert(ctx, appt); err != nil {
		return nil, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"user_id", user.ID,
		"service", svc.Key,
		"date", date,
		"time", timeOfDay,
	)
	return appt, nil
}

// ListForUser returns the appointments for a phone address, newest first.
// This is a read path: a never-seen phone gets an empty list, not a user row.
// Lazy user creation belongs to inbound contact and Book.
func (s *Service) ListForUser(ctx context.Context, phone string) ([]Appointment, error) {
	user, err := s.users.GetByPhone(ctx, phone)
	if errors.Is(err, users.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserResolution, err)
	}
	return s.repo.ListByUser(ctx, user.ID)
}

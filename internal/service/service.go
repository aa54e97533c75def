// Package service implements the business logic between the HTTP handlers
// and the lower layers: registration sessions for the site, and validation
// and persistence of submissions for the collector.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/receipt"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/registration"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/repository"
)

// ErrInvalidSubmission wraps the registration.FieldErrors of a rejected
// submission.
var ErrInvalidSubmission = errors.New("invalid submission")

// RegistrationStore persists collected registrations.
type RegistrationStore interface {
	Create(ctx context.Context, reg model.Registration) (*model.Registration, error)
	ListByEvent(ctx context.Context, event string) ([]model.Registration, error)
}

// EventStore reports per-event registration counts.
type EventStore interface {
	List(ctx context.Context) ([]repository.EventStat, error)
}

// ReceiptStore keeps uploaded receipt files.
type ReceiptStore interface {
	Save(name string, data []byte) (string, error)
	Remove(path string) error
}

// Submission is a multipart submission as received by the collector.
type Submission struct {
	Name          string
	RollNumber    string
	Program       string
	Semester      string
	MobileNumber  string
	College       string
	Email         string
	EventType     string
	TeamType      string
	TeamName      string
	UPIID         string
	TransactionID string
	TeamMembers   string // JSON array of members
	Receipt       *receipt.File
}

// CollectorService validates and stores submissions.
type CollectorService struct {
	cat      *catalog.Catalog
	regs     RegistrationStore
	events   EventStore
	receipts ReceiptStore
}

// NewCollectorService constructs a CollectorService with its dependencies.
func NewCollectorService(
	cat *catalog.Catalog,
	regs RegistrationStore,
	events EventStore,
	receipts ReceiptStore,
) *CollectorService {
	return &CollectorService{cat: cat, regs: regs, events: events, receipts: receipts}
}

// Submit checks a submission with the same rules as the registration form,
// stores the receipt and then the registration. The receipt is removed again
// when the registration cannot be stored.
func (s *CollectorService) Submit(ctx context.Context, sub Submission) (*model.Registration, error) {
	draft, errs := s.draft(sub)
	errs = append(errs, registration.Validate(s.cat, draft, 0)...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSubmission, dedupe(errs))
	}

	def, _ := s.cat.Lookup(draft.Event)
	path, err := s.receipts.Save(registration.UploadName(draft, def), draft.Receipt.Data)
	if err != nil {
		return nil, fmt.Errorf("store receipt: %w", err)
	}

	members := []model.TeamMember{}
	if draft.TeamType == model.TeamTypeTeam {
		members = draft.TeamMembers
	}
	reg, err := s.regs.Create(ctx, model.Registration{
		Event:         def.Name,
		TeamType:      draft.TeamType,
		TeamName:      strings.TrimSpace(draft.TeamName),
		Name:          strings.TrimSpace(draft.Name),
		RollNumber:    strings.TrimSpace(draft.RollNumber),
		Program:       strings.TrimSpace(draft.Program),
		Semester:      strings.TrimSpace(draft.Semester),
		MobileNumber:  strings.TrimSpace(draft.MobileNumber),
		College:       strings.TrimSpace(draft.College),
		Email:         strings.TrimSpace(draft.Email),
		UPIID:         strings.TrimSpace(draft.UPIID),
		TransactionID: strings.TrimSpace(draft.TransactionID),
		CommunityLink: def.CommunityLink,
		ReceiptPath:   path,
		TeamMembers:   members,
	})
	if err != nil {
		if rmErr := s.receipts.Remove(path); rmErr != nil {
			slog.Error("remove orphaned receipt", "path", path, "error", rmErr)
		}
		if errors.Is(err, repository.ErrDuplicateTransaction) || errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("store registration: %w", err)
	}

	slog.Info("registration collected", "id", reg.ID, "event", reg.Event, "team_type", reg.TeamType)
	return reg, nil
}

// draft rebuilds a registration draft from a submission. Errors for fields
// that could not be read come back alongside it.
func (s *CollectorService) draft(sub Submission) (registration.Draft, registration.FieldErrors) {
	d := registration.Draft{
		Name:          sub.Name,
		RollNumber:    sub.RollNumber,
		Program:       sub.Program,
		Semester:      sub.Semester,
		MobileNumber:  sub.MobileNumber,
		College:       sub.College,
		Email:         sub.Email,
		TeamName:      sub.TeamName,
		UPIID:         sub.UPIID,
		TransactionID: sub.TransactionID,
		Receipt:       sub.Receipt,
	}

	var errs registration.FieldErrors
	if id, ok := s.cat.Match(sub.EventType); ok {
		d.Event = id
	} else if strings.TrimSpace(sub.EventType) != "" {
		errs = append(errs, registration.FieldError{
			Field:   registration.FieldEventType,
			Message: "Unknown event: " + sub.EventType,
		})
	}

	// Events that need more than one player are always entered as a team.
	d.TeamType = model.TeamTypeIndividual
	if def, ok := s.cat.Lookup(d.Event); ok && def.Mode == catalog.Team &&
		(model.TeamType(sub.TeamType) == model.TeamTypeTeam || def.MinTeamSize > 1) {
		d.TeamType = model.TeamTypeTeam
	}

	if raw := strings.TrimSpace(sub.TeamMembers); raw != "" {
		if err := json.Unmarshal([]byte(raw), &d.TeamMembers); err != nil {
			errs = append(errs, registration.FieldError{
				Field:   registration.FieldTeamMembers,
				Message: "Team members could not be read.",
			})
		}
	}
	return d, errs
}

// dedupe keeps the first error reported for each field.
func dedupe(errs registration.FieldErrors) registration.FieldErrors {
	seen := make(map[registration.Field]bool, len(errs))
	out := errs[:0:0]
	for _, e := range errs {
		if !seen[e.Field] {
			seen[e.Field] = true
			out = append(out, e)
		}
	}
	return out
}

// ListRegistrations returns the registrations for the named event.
func (s *CollectorService) ListRegistrations(ctx context.Context, event string) ([]model.Registration, error) {
	id, ok := s.cat.Match(event)
	if !ok {
		return nil, repository.ErrNotFound
	}
	regs, err := s.regs.ListByEvent(ctx, s.cat.Name(id))
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// ListEvents returns every event with its registration count.
func (s *CollectorService) ListEvents(ctx context.Context) ([]repository.EventStat, error) {
	stats, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return stats, nil
}

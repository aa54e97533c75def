// Package repository implements the collector's database queries.
// It uses pgx directly (no ORM).
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateTransaction is returned when a payment transaction ID was
// already used by another registration.
var ErrDuplicateTransaction = errors.New("transaction id already registered")

const uniqueViolation = "23505"

// EventStat is an event row with its registration count.
type EventStat struct {
	Name       string       `json:"name"`
	Mode       catalog.Mode `json:"mode"`
	Fee        int          `json:"fee"`
	Registered int          `json:"registered"`
}

// EventRepository handles persistence for festival events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Sync upserts the catalog definitions so registrations can reference them.
// Registration counts are left untouched.
func (r *EventRepository) Sync(ctx context.Context, defs []catalog.Definition) error {
	batch := &pgx.Batch{}
	for _, d := range defs {
		batch.Queue(
			`INSERT INTO events (name, mode, fee, min_team_size, max_team_size, community_link)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (name) DO UPDATE SET
			   mode = EXCLUDED.mode,
			   fee = EXCLUDED.fee,
			   min_team_size = EXCLUDED.min_team_size,
			   max_team_size = EXCLUDED.max_team_size,
			   community_link = EXCLUDED.community_link`,
			d.Name, string(d.Mode), d.Fee, d.MinTeamSize, d.MaxTeamSize, d.CommunityLink,
		)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("sync events: %w", err)
	}
	return nil
}

// List returns every event with its registration count, by name.
func (r *EventRepository) List(ctx context.Context) ([]EventStat, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, mode, fee, registered_count
		 FROM events
		 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var stats []EventStat
	for rows.Next() {
		var s EventStat
		if err := rows.Scan(&s.Name, &s.Mode, &s.Fee, &s.Registered); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create stores a registration and its team members in one transaction and
// bumps the event's registration count. The event row is locked FOR UPDATE
// so concurrent submissions for one event serialise on the counter and the
// duplicate check.
func (r *RegistrationRepository) Create(ctx context.Context, reg model.Registration) (*model.Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// ── Step 1: Lock the event row. ──
	var eventName string
	err = tx.QueryRow(ctx,
		`SELECT name FROM events WHERE name = $1 FOR UPDATE`,
		reg.Event,
	).Scan(&eventName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	// ── Step 2: Reject reused transaction IDs. ──
	var dup bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE transaction_id = $1)`,
		reg.TransactionID,
	).Scan(&dup)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if dup {
		err = ErrDuplicateTransaction
		return nil, err
	}

	// ── Step 3: Insert the registration. ──
	reg.ID = uuid.NewString()
	reg.CreatedAt = time.Now().UTC()
	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (
		   id, event_name, team_type, team_name, name, roll_number, program, semester,
		   mobile_number, college, email, upi_id, transaction_id, whatsapp_link,
		   receipt_path, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		reg.ID, reg.Event, string(reg.TeamType), reg.TeamName, reg.Name, reg.RollNumber,
		reg.Program, reg.Semester, reg.MobileNumber, reg.College, reg.Email, reg.UPIID,
		reg.TransactionID, reg.CommunityLink, reg.ReceiptPath, reg.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = ErrDuplicateTransaction
			return nil, err
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	// ── Step 4: Insert team members in order. ──
	for i, m := range reg.TeamMembers {
		_, err = tx.Exec(ctx,
			`INSERT INTO team_members (registration_id, position, name, roll_number, program, semester, college)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			reg.ID, i, m.Name, m.RollNumber, m.Program, m.Semester, m.College,
		)
		if err != nil {
			return nil, fmt.Errorf("insert team member %d: %w", i, err)
		}
	}

	// ── Step 5: Count the registration. ──
	_, err = tx.Exec(ctx,
		`UPDATE events SET registered_count = registered_count + 1 WHERE name = $1`,
		reg.Event,
	)
	if err != nil {
		return nil, fmt.Errorf("increment registered_count: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &reg, nil
}

// ListByEvent returns the registrations for an event, oldest first, with
// their team members.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, event string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_name, team_type, team_name, name, roll_number, program, semester,
		        mobile_number, college, email, upi_id, transaction_id, whatsapp_link,
		        receipt_path, created_at
		 FROM registrations
		 WHERE event_name = $1
		 ORDER BY created_at ASC`,
		event,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	var regs []model.Registration
	index := make(map[string]int)
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(
			&reg.ID, &reg.Event, &reg.TeamType, &reg.TeamName, &reg.Name, &reg.RollNumber,
			&reg.Program, &reg.Semester, &reg.MobileNumber, &reg.College, &reg.Email,
			&reg.UPIID, &reg.TransactionID, &reg.CommunityLink, &reg.ReceiptPath, &reg.CreatedAt,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		reg.TeamMembers = []model.TeamMember{}
		index[reg.ID] = len(regs)
		regs = append(regs, reg)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if len(regs) == 0 {
		return regs, nil
	}

	ids := make([]string, 0, len(regs))
	for _, reg := range regs {
		ids = append(ids, reg.ID)
	}
	mrows, err := r.db.Query(ctx,
		`SELECT registration_id, name, roll_number, program, semester, college
		 FROM team_members
		 WHERE registration_id = ANY($1)
		 ORDER BY registration_id, position`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var id string
		var m model.TeamMember
		if err := mrows.Scan(&id, &m.Name, &m.RollNumber, &m.Program, &m.Semester, &m.College); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		if i, ok := index[id]; ok {
			regs[i].TeamMembers = append(regs[i].TeamMembers, m)
		}
	}
	return regs, mrows.Err()
}

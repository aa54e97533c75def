package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/countdown"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/receipt"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/submit"
)

// Sentinel errors returned by Controller operations.
var (
	ErrUnknownEvent       = errors.New("unknown event")
	ErrUnknownField       = errors.New("unknown field")
	ErrSubmitInFlight     = errors.New("submission already in progress")
	ErrNoPrompt           = errors.New("no matching prompt is open")
	ErrTeamSizeOutOfRange = errors.New("team size out of range")
	ErrTeamSizeLocked     = errors.New("team size is locked")
	ErrTeamSizePending    = errors.New("team size not chosen yet")
	ErrTeamFull           = errors.New("team is full")
	ErrNotTeam            = errors.New("no team event selected")
	ErrMemberIndex        = errors.New("team member index out of range")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrClosed             = errors.New("registration session closed")
)

// DefaultResetDelay is how long the success view stays up after a
// submission before the form accepts a new registration.
const DefaultResetDelay = 15 * time.Second

const (
	rejectedNotice  = "Registration failed! Try again."
	transportNotice = "Network/server error. Try again."
)

// Submitter sends a completed registration. *submit.Client implements it.
type Submitter interface {
	Submit(ctx context.Context, p submit.Payload) error
}

// PromptKind names the confirmation the form is waiting on.
type PromptKind string

const (
	PromptTeamSize PromptKind = "team-size"
	PromptNote     PromptKind = "note"
)

// Prompt is an open confirmation: the team size for a ranged team event, or
// the cautionary note of a squad-based solo event.
type Prompt struct {
	Kind    PromptKind `json:"kind"`
	Event   string     `json:"event"`
	MinSize int        `json:"minSize,omitempty"`
	MaxSize int        `json:"maxSize,omitempty"`
	Note    string     `json:"note,omitempty"`

	id catalog.EventID
}

type stopper interface {
	Stop() bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithPreviewStore sets where receipt previews are rendered.
func WithPreviewStore(s *receipt.PreviewStore) Option {
	return func(c *Controller) { c.previews = s }
}

// WithNotifier sets the receiver of user-facing notices.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithResetDelay overrides DefaultResetDelay.
func WithResetDelay(d time.Duration) Option {
	return func(c *Controller) { c.resetDelay = d }
}

// WithDeadline closes selection and submission at t.
func WithDeadline(t time.Time) Option {
	return func(c *Controller) { c.deadline = t }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns one registration draft. It is safe for concurrent use.
type Controller struct {
	cat        *catalog.Catalog
	submitter  Submitter
	previews   *receipt.PreviewStore
	notifier   Notifier
	resetDelay time.Duration
	deadline   time.Time
	now        func() time.Time
	afterFunc  func(time.Duration, func()) stopper

	mu         sync.Mutex
	draft      Draft
	chosenSize int
	chosenFor  catalog.EventID
	prompt     *Prompt
	preview    receipt.Preview
	errors     FieldErrors
	loading    bool
	submitted  bool
	last       catalog.EventID
	resetTimer stopper
	closed     bool
}

// New returns a controller with an empty draft.
func New(cat *catalog.Catalog, s Submitter, opts ...Option) *Controller {
	c := &Controller{
		cat:        cat,
		submitter:  s,
		notifier:   discard{},
		resetDelay: DefaultResetDelay,
		now:        time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.previews == nil {
		c.previews = receipt.NewPreviewStore()
	}
	return c
}

// ── Event selection ──

// Toggle selects or deselects an event. Selecting replaces any previous
// selection. Ranged team events and noted solo events open a prompt that
// must be answered with ConfirmTeamSize or ConfirmNote.
func (c *Controller) Toggle(id catalog.EventID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toggle(id)
}

func (c *Controller) toggle(id catalog.EventID) error {
	if c.closed {
		return ErrClosed
	}
	def, ok := c.cat.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEvent, id)
	}
	if !countdown.Open(c.now(), c.deadline) {
		return ErrRegistrationClosed
	}

	if c.draft.Event == id {
		c.draft.Event = catalog.None
		c.draft.clearTeam()
		c.clearChosen()
		c.prompt = nil
		c.notifier.Notify(def.Name + " deselected")
		return nil
	}

	if def.Mode == catalog.Team {
		if n, fixed := def.FixedTeamSize(); fixed {
			c.lockTeam(def, n)
			c.notifier.Notify(fmt.Sprintf("%s selected - Fixed team of %d players", def.Name, n))
			return nil
		}
		c.draft.Event = id
		c.draft.TeamType = model.TeamTypeTeam
		c.draft.TeamName = ""
		c.draft.TeamMembers = blankMembers(clamp(1, def.MinTeamSize-1, def.UpperTeamSize()-1))
		c.clearChosen()
		c.prompt = &Prompt{
			Kind:    PromptTeamSize,
			Event:   def.Name,
			MinSize: def.MinTeamSize,
			MaxSize: def.UpperTeamSize(),
			id:      id,
		}
		c.notifier.Notify("Choose team size for " + def.Name)
		return nil
	}

	if def.Note != "" {
		c.prompt = &Prompt{Kind: PromptNote, Event: def.Name, Note: def.Note, id: id}
		return nil
	}
	c.selectIndividual(def)
	return nil
}

// SelectByName runs the selection path for an event named by the catalog
// view. Names are matched ignoring case, surrounding space and dashes.
func (c *Controller) SelectByName(name string) error {
	id, ok := c.cat.Match(name)
	if !ok {
		slog.Warn("unrecognized event selection", "event", name)
		c.notifier.Notify("Unknown event: " + name)
		return fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	return c.Toggle(id)
}

// ConfirmTeamSize answers the team-size prompt. Size 1 enters the event as
// an individual; larger sizes lock the team with size-1 member slots.
func (c *Controller) ConfirmTeamSize(size int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prompt == nil || c.prompt.Kind != PromptTeamSize {
		return ErrNoPrompt
	}
	def, _ := c.cat.Lookup(c.prompt.id)
	if size < def.MinTeamSize || size > def.UpperTeamSize() {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrTeamSizeOutOfRange, size, def.MinTeamSize, def.UpperTeamSize())
	}
	c.prompt = nil

	if size == 1 {
		c.draft.Event = def.ID
		c.draft.clearTeam()
		c.draft.TeamType = model.TeamTypeIndividual
		c.clearChosen()
		c.notifier.Notify(def.Name + " selected as individual")
		return nil
	}
	c.lockTeam(def, size)
	c.notifier.Notify(fmt.Sprintf("%s selected - Team of %d players", def.Name, size))
	return nil
}

// CancelTeamSize closes the team-size prompt. The event stays selected with
// an unlocked team.
func (c *Controller) CancelTeamSize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prompt == nil || c.prompt.Kind != PromptTeamSize {
		return ErrNoPrompt
	}
	c.prompt = nil
	return nil
}

// ConfirmNote acknowledges the cautionary note and selects the event.
func (c *Controller) ConfirmNote() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prompt == nil || c.prompt.Kind != PromptNote {
		return ErrNoPrompt
	}
	def, _ := c.cat.Lookup(c.prompt.id)
	c.prompt = nil
	c.selectIndividual(def)
	return nil
}

// CancelNote closes the note prompt without selecting anything.
func (c *Controller) CancelNote() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prompt == nil || c.prompt.Kind != PromptNote {
		return ErrNoPrompt
	}
	c.prompt = nil
	return nil
}

func (c *Controller) selectIndividual(def catalog.Definition) {
	c.draft.Event = def.ID
	c.draft.clearTeam()
	c.draft.TeamType = model.TeamTypeIndividual
	c.clearChosen()
	c.prompt = nil
	c.notifier.Notify(def.Name + " selected")
}

func (c *Controller) lockTeam(def catalog.Definition, size int) {
	if c.draft.Event != def.ID {
		c.draft.TeamName = ""
	}
	c.draft.Event = def.ID
	c.draft.TeamType = model.TeamTypeTeam
	c.draft.TeamMembers = blankMembers(size - 1)
	c.chosenSize = size
	c.chosenFor = def.ID
	c.prompt = nil
}

func (c *Controller) clearChosen() {
	c.chosenSize = 0
	c.chosenFor = catalog.None
}

// lockedSize is the team size chosen for the selected event, or 0.
func (c *Controller) lockedSize() int {
	if c.chosenSize > 0 && c.chosenFor == c.draft.Event {
		return c.chosenSize
	}
	return 0
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// ── Form fields and team members ──

// SetField stores the raw value of a typed-in field.
func (c *Controller) SetField(f Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.draft.set(f, value) {
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return nil
}

// teamDef returns the selected event when the draft is being entered as a
// team and members may be edited.
func (c *Controller) teamDef() (catalog.Definition, error) {
	def, ok := c.cat.Lookup(c.draft.Event)
	if !ok || def.Mode != catalog.Team || c.draft.TeamType != model.TeamTypeTeam {
		return catalog.Definition{}, ErrNotTeam
	}
	if c.prompt != nil && c.prompt.Kind == PromptTeamSize {
		return catalog.Definition{}, ErrTeamSizePending
	}
	return def, nil
}

// AddMember appends a blank member row while the team size is unlocked.
func (c *Controller) AddMember() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	def, err := c.teamDef()
	if err != nil {
		return err
	}
	if c.lockedSize() > 0 {
		return ErrTeamSizeLocked
	}
	limit := def.UpperTeamSize() - 1
	if len(c.draft.TeamMembers) >= limit {
		c.notifier.Notify(fmt.Sprintf("Maximum %d members allowed.", limit))
		return ErrTeamFull
	}
	c.draft.TeamMembers = append(c.draft.TeamMembers, model.TeamMember{})
	return nil
}

// RemoveMember drops member row i while the team size is unlocked. The
// last remaining row cannot be removed.
func (c *Controller) RemoveMember(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	def, err := c.teamDef()
	if err != nil {
		return err
	}
	if c.lockedSize() > 0 {
		return ErrTeamSizeLocked
	}
	members := c.draft.TeamMembers
	if i < 0 || i >= len(members) {
		return ErrMemberIndex
	}
	if len(members)-1 < max(1, def.MinTeamSize-1) {
		return fmt.Errorf("%w: at least %d member row(s) required", ErrTeamSizeOutOfRange, max(1, def.MinTeamSize-1))
	}
	c.draft.TeamMembers = append(members[:i:i], members[i+1:]...)
	return nil
}

// UpdateMember replaces member row i.
func (c *Controller) UpdateMember(i int, m model.TeamMember) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.teamDef(); err != nil {
		return err
	}
	if i < 0 || i >= len(c.draft.TeamMembers) {
		return ErrMemberIndex
	}
	c.draft.TeamMembers[i] = m
	return nil
}

// ── Receipt ──

// AttachReceipt stores f as the payment receipt, replacing and releasing
// any previous preview.
func (c *Controller) AttachReceipt(f receipt.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.releasePreview()
	p, err := c.previews.Create(f)
	if err != nil {
		c.draft.Receipt = nil
		return fmt.Errorf("attach receipt: %w", err)
	}
	c.preview = p
	c.draft.Receipt = &f
	return nil
}

// RemoveReceipt clears the receipt and releases its preview.
func (c *Controller) RemoveReceipt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Receipt = nil
	c.releasePreview()
}

// Preview returns the rendered preview of the attached image receipt.
func (c *Controller) Preview() ([]byte, bool) {
	c.mu.Lock()
	handle := c.preview.Handle
	c.mu.Unlock()
	if handle == "" {
		return nil, false
	}
	return c.previews.Get(handle)
}

func (c *Controller) releasePreview() {
	if !c.preview.HasResource() {
		c.preview = receipt.Preview{}
		return
	}
	if err := c.previews.Release(c.preview.Handle); err != nil {
		slog.Error("release receipt preview", "handle", c.preview.Handle, "error", err)
	}
	c.preview = receipt.Preview{}
}

// ── Fee, validation and submission ──

// TotalFee is the fee for the current selection.
func (c *Controller) TotalFee() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalFee()
}

func (c *Controller) totalFee() int {
	def, ok := c.cat.Lookup(c.draft.Event)
	if !ok {
		return 0
	}
	if def.Mode == catalog.Team {
		return def.FeeFor(c.lockedSize())
	}
	return def.Fee
}

// Validate checks the draft, records the field errors and announces the
// first one.
func (c *Controller) Validate() FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validate()
}

func (c *Controller) validate() FieldErrors {
	c.errors = Validate(c.cat, c.draft, c.lockedSize())
	if len(c.errors) > 0 {
		c.notifier.Notify(c.errors.First())
	}
	return c.errors
}

// Submit validates the draft and, when it passes, posts it once. On success
// the draft is reset and the success view shows until the reset delay
// passes. On failure the draft is kept for a retry.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.loading:
		c.mu.Unlock()
		return ErrSubmitInFlight
	case !countdown.Open(c.now(), c.deadline):
		c.mu.Unlock()
		return ErrRegistrationClosed
	}
	if errs := c.validate(); len(errs) > 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrValidation, errs)
	}
	payload := c.payload()
	event := c.draft.Event
	c.loading = true
	c.mu.Unlock()

	err := c.submitter.Submit(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if err != nil {
		slog.Warn("registration submit failed", "event", payload.Event, "error", err)
		if errors.Is(err, submit.ErrRejected) {
			c.notifier.Notify(rejectedNotice)
		} else {
			c.notifier.Notify(transportNotice)
		}
		return fmt.Errorf("submit registration: %w", err)
	}

	slog.Info("registration submitted", "event", payload.Event, "team_type", payload.TeamType)
	if c.closed {
		// Closed mid-flight: the backend has the entry but nothing is left to show.
		return nil
	}
	c.submitted = true
	c.last = event
	c.draft = Draft{}
	c.clearChosen()
	c.prompt = nil
	c.releasePreview()
	c.errors = nil
	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}
	c.resetTimer = c.afterFunc(c.resetDelay, c.endSuccess)
	return nil
}

func (c *Controller) endSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted = false
	c.resetTimer = nil
}

func (c *Controller) payload() submit.Payload {
	d := c.draft
	def, _ := c.cat.Lookup(d.Event)

	members := []model.TeamMember{}
	if def.Mode == catalog.Team && d.TeamType == model.TeamTypeTeam {
		for _, m := range d.TeamMembers {
			members = append(members, model.TeamMember{
				Name:       strings.TrimSpace(m.Name),
				RollNumber: strings.TrimSpace(m.RollNumber),
				Program:    strings.TrimSpace(m.Program),
				Semester:   strings.TrimSpace(m.Semester),
				College:    strings.TrimSpace(m.College),
			})
		}
	}

	p := submit.Payload{
		Name:          strings.TrimSpace(d.Name),
		RollNumber:    strings.TrimSpace(d.RollNumber),
		Program:       strings.TrimSpace(d.Program),
		Semester:      strings.TrimSpace(d.Semester),
		MobileNumber:  strings.TrimSpace(d.MobileNumber),
		College:       strings.TrimSpace(d.College),
		Email:         strings.TrimSpace(d.Email),
		Event:         def.Name,
		TeamType:      d.TeamType,
		TeamName:      strings.TrimSpace(d.TeamName),
		UPIID:         strings.TrimSpace(d.UPIID),
		TransactionID: strings.TrimSpace(d.TransactionID),
		TeamMembers:   members,
		CommunityLink: def.CommunityLink,
	}
	if d.Receipt != nil {
		p.ReceiptName = UploadName(d, def)
		p.ReceiptContentType = d.Receipt.ContentType
		p.Receipt = d.Receipt.Data
	}
	return p
}

// Close stops the success timer and releases the receipt preview. Later
// selections, attachments and submissions return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	c.releasePreview()
}

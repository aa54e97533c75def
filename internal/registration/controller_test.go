package registration

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/receipt"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/submit"
)

// ── Helpers ──

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []submit.Payload
	err   error

	// during runs while the submission is in flight.
	during func()
}

func (f *fakeSubmitter) Submit(_ context.Context, p submit.Payload) error {
	if f.during != nil {
		f.during()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	return f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTimer struct {
	delay   time.Duration
	fire    func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.stopped = true
	return true
}

type fixture struct {
	c        *Controller
	sub      *fakeSubmitter
	inbox    *Inbox
	previews *receipt.PreviewStore
	timer    *fakeTimer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		sub:      &fakeSubmitter{},
		inbox:    &Inbox{},
		previews: receipt.NewPreviewStore(),
	}
	opts = append([]Option{WithNotifier(f.inbox), WithPreviewStore(f.previews)}, opts...)
	f.c = New(catalog.Default(), f.sub, opts...)
	f.c.afterFunc = func(d time.Duration, fn func()) stopper {
		f.timer = &fakeTimer{delay: d, fire: fn}
		return f.timer
	}
	return f
}

func pngReceipt(t *testing.T) receipt.File {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return receipt.NewFile("payment-screenshot.png", "image/png", buf.Bytes())
}

func pdfReceipt() receipt.File {
	return receipt.NewFile("receipt.pdf", "application/pdf", []byte("%PDF-1.4\n%%EOF\n"))
}

func fillValid(t *testing.T, c *Controller) {
	t.Helper()
	fields := []struct {
		f Field
		v string
	}{
		{FieldName, "Asha Rao"},
		{FieldRollNumber, "21CS045"},
		{FieldProgram, "B.Tech"},
		{FieldSemester, "5"},
		{FieldMobileNumber, "9876543210"},
		{FieldCollege, "Geeta University"},
		{FieldEmail, "asha@example.com"},
		{FieldUPIID, "asha@upi"},
		{FieldTransactionID, "TXN12345XYZ"},
	}
	for _, fv := range fields {
		if err := c.SetField(fv.f, fv.v); err != nil {
			t.Fatalf("SetField(%s) error = %v", fv.f, err)
		}
	}
}

func fullMember(name string) model.TeamMember {
	return model.TeamMember{
		Name:       name,
		RollNumber: "21CS100",
		Program:    "B.Tech",
		Semester:   "5",
		College:    "Geeta University",
	}
}

// selectEvent runs the selection path for id and answers any prompt so the
// event ends up selected.
func selectEvent(t *testing.T, c *Controller, id catalog.EventID) {
	t.Helper()
	if err := c.Toggle(id); err != nil {
		t.Fatalf("Toggle(%d) error = %v", id, err)
	}
	if p := c.State().Prompt; p != nil {
		var err error
		switch p.Kind {
		case PromptNote:
			err = c.ConfirmNote()
		case PromptTeamSize:
			err = c.CancelTeamSize()
		}
		if err != nil {
			t.Fatalf("answer %s prompt: %v", p.Kind, err)
		}
	}
}

// ── Selection ──

func TestSelectionIsExclusive(t *testing.T) {
	cat := catalog.Default()
	for _, a := range cat.All() {
		for _, b := range cat.All() {
			if a.ID == b.ID {
				continue
			}
			t.Run(a.Name+" then "+b.Name, func(t *testing.T) {
				f := newFixture(t)
				selectEvent(t, f.c, a.ID)
				selectEvent(t, f.c, b.ID)

				st := f.c.State()
				if st.Event != b.Name {
					t.Errorf("selected = %q, want %q", st.Event, b.Name)
				}
				if st.Draft.Event != b.ID {
					t.Errorf("draft event = %d, want %d", st.Draft.Event, b.ID)
				}
			})
		}
	}
}

func TestFixedTeamSizeLocksImmediately(t *testing.T) {
	for _, def := range catalog.Default().ByMode(catalog.Team) {
		n, fixed := def.FixedTeamSize()
		if !fixed {
			continue
		}
		t.Run(def.Name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.c.Toggle(def.ID); err != nil {
				t.Fatalf("Toggle() error = %v", err)
			}
			st := f.c.State()
			if st.Prompt != nil {
				t.Errorf("Prompt = %+v, want none", st.Prompt)
			}
			if got := len(st.Draft.TeamMembers); got != n-1 {
				t.Errorf("len(TeamMembers) = %d, want %d", got, n-1)
			}
			if !st.TeamSizeLocked || st.TeamSize != n {
				t.Errorf("locked = %v size = %d, want locked at %d", st.TeamSizeLocked, st.TeamSize, n)
			}
			if st.Draft.TeamType != model.TeamTypeTeam {
				t.Errorf("TeamType = %q, want team", st.Draft.TeamType)
			}
		})
	}
}

func TestConfirmTeamSize(t *testing.T) {
	for _, def := range catalog.Default().ByMode(catalog.Team) {
		if _, fixed := def.FixedTeamSize(); fixed {
			continue
		}
		for n := def.MinTeamSize; n <= def.UpperTeamSize(); n++ {
			t.Run(def.Name, func(t *testing.T) {
				f := newFixture(t)
				if err := f.c.Toggle(def.ID); err != nil {
					t.Fatalf("Toggle() error = %v", err)
				}
				st := f.c.State()
				if st.Prompt == nil || st.Prompt.Kind != PromptTeamSize {
					t.Fatalf("Prompt = %+v, want team-size prompt", st.Prompt)
				}
				if st.Prompt.MinSize != def.MinTeamSize || st.Prompt.MaxSize != def.UpperTeamSize() {
					t.Errorf("prompt bounds = [%d, %d]", st.Prompt.MinSize, st.Prompt.MaxSize)
				}

				if err := f.c.ConfirmTeamSize(n); err != nil {
					t.Fatalf("ConfirmTeamSize(%d) error = %v", n, err)
				}
				st = f.c.State()
				if st.Prompt != nil {
					t.Errorf("Prompt still open after confirm")
				}
				if st.Event != def.Name {
					t.Errorf("selected = %q, want %q", st.Event, def.Name)
				}
				if got := len(st.Draft.TeamMembers); got != n-1 {
					t.Errorf("len(TeamMembers) = %d, want %d", got, n-1)
				}
				wantType := model.TeamTypeTeam
				if n == 1 {
					wantType = model.TeamTypeIndividual
				}
				if st.Draft.TeamType != wantType {
					t.Errorf("TeamType = %q, want %q", st.Draft.TeamType, wantType)
				}
			})
		}
	}
}

func TestConfirmTeamSizeOutOfRange(t *testing.T) {
	f := newFixture(t)
	if err := f.c.ConfirmTeamSize(2); !errors.Is(err, ErrNoPrompt) {
		t.Fatalf("ConfirmTeamSize() without prompt error = %v, want ErrNoPrompt", err)
	}
	if err := f.c.Toggle(catalog.StartupBid); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if err := f.c.ConfirmTeamSize(5); !errors.Is(err, ErrTeamSizeOutOfRange) {
		t.Fatalf("ConfirmTeamSize(5) error = %v, want ErrTeamSizeOutOfRange", err)
	}
	if f.c.State().Prompt == nil {
		t.Error("prompt closed after a rejected size")
	}
}

func TestReselectDeselects(t *testing.T) {
	tests := []struct {
		name  string
		event catalog.EventID
	}{
		{"individual", catalog.TechQuiz},
		{"fixed team", catalog.BGMI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			selectEvent(t, f.c, tt.event)
			_ = f.c.SetField(FieldTeamName, "Byte Knights")

			if err := f.c.Toggle(tt.event); err != nil {
				t.Fatalf("second Toggle() error = %v", err)
			}
			st := f.c.State()
			if st.Event != "" {
				t.Errorf("eventType = %q, want empty", st.Event)
			}
			if st.Draft.TeamType != model.TeamTypeNone || st.Draft.TeamName != "" || len(st.Draft.TeamMembers) != 0 {
				t.Errorf("team fields = %q %q %v, want empty", st.Draft.TeamType, st.Draft.TeamName, st.Draft.TeamMembers)
			}
			if st.TeamSizeLocked {
				t.Error("team size still locked after deselect")
			}
			if st.TotalFee != 0 {
				t.Errorf("TotalFee = %d, want 0", st.TotalFee)
			}
		})
	}
}

func TestSoloNotePrompt(t *testing.T) {
	f := newFixture(t)

	if err := f.c.Toggle(catalog.BGMISolo); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	st := f.c.State()
	if st.Prompt == nil || st.Prompt.Kind != PromptNote || st.Prompt.Note == "" {
		t.Fatalf("Prompt = %+v, want note prompt", st.Prompt)
	}
	if st.Event != "" {
		t.Fatalf("event selected before the note was confirmed: %q", st.Event)
	}

	if err := f.c.CancelNote(); err != nil {
		t.Fatalf("CancelNote() error = %v", err)
	}
	if st := f.c.State(); st.Event != "" || st.Prompt != nil {
		t.Fatalf("after cancel: event %q prompt %+v", st.Event, st.Prompt)
	}

	_ = f.c.Toggle(catalog.BGMISolo)
	if err := f.c.ConfirmNote(); err != nil {
		t.Fatalf("ConfirmNote() error = %v", err)
	}
	if st := f.c.State(); st.Event != "BGMI(Solo)" || st.Draft.TeamType != model.TeamTypeIndividual {
		t.Errorf("after confirm: event %q type %q", st.Event, st.Draft.TeamType)
	}
}

func TestSelectByName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"exact", "Tech Quiz", "Tech Quiz"},
		{"case and spacing", "  tech   QUIZ ", "Tech Quiz"},
		{"dashes", "code-relay", "Code Relay"},
		{"underscores", "Tekken_7", "Tekken 7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.c.SelectByName(tt.input); err != nil {
				t.Fatalf("SelectByName(%q) error = %v", tt.input, err)
			}
			if got := f.c.State().Event; got != tt.want {
				t.Errorf("selected = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectByNameUnknown(t *testing.T) {
	f := newFixture(t)
	selectEvent(t, f.c, catalog.TechQuiz)
	f.inbox.Drain()

	if err := f.c.SelectByName("Robo Wars"); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("SelectByName() error = %v, want ErrUnknownEvent", err)
	}
	if got := f.c.State().Event; got != "Tech Quiz" {
		t.Errorf("selection changed to %q", got)
	}
	if got := f.inbox.Drain(); !slices.Equal(got, []string{"Unknown event: Robo Wars"}) {
		t.Errorf("notices = %q", got)
	}
}

func TestRegistrationDeadline(t *testing.T) {
	deadline := time.Date(2025, 11, 27, 16, 0, 0, 0, time.UTC)
	f := newFixture(t,
		WithDeadline(deadline),
		WithClock(func() time.Time { return deadline.Add(time.Minute) }),
	)

	if err := f.c.Toggle(catalog.TechQuiz); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("Toggle() error = %v, want ErrRegistrationClosed", err)
	}
	if err := f.c.Submit(context.Background()); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("Submit() error = %v, want ErrRegistrationClosed", err)
	}
}

// ── Team members ──

func TestMemberEditingRangedTeam(t *testing.T) {
	f := newFixture(t)
	if err := f.c.Toggle(catalog.StartupBid); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	if err := f.c.AddMember(); !errors.Is(err, ErrTeamSizePending) {
		t.Fatalf("AddMember() with prompt open error = %v, want ErrTeamSizePending", err)
	}
	if err := f.c.CancelTeamSize(); err != nil {
		t.Fatalf("CancelTeamSize() error = %v", err)
	}

	if got := len(f.c.State().Draft.TeamMembers); got != 1 {
		t.Fatalf("initial rows = %d, want 1", got)
	}
	for i := 0; i < 2; i++ {
		if err := f.c.AddMember(); err != nil {
			t.Fatalf("AddMember() #%d error = %v", i+1, err)
		}
	}
	if err := f.c.AddMember(); !errors.Is(err, ErrTeamFull) {
		t.Fatalf("AddMember() past max error = %v, want ErrTeamFull", err)
	}

	if err := f.c.UpdateMember(2, fullMember("Ravi")); err != nil {
		t.Fatalf("UpdateMember() error = %v", err)
	}
	if err := f.c.UpdateMember(3, fullMember("Nope")); !errors.Is(err, ErrMemberIndex) {
		t.Fatalf("UpdateMember(3) error = %v, want ErrMemberIndex", err)
	}

	if err := f.c.RemoveMember(0); err != nil {
		t.Fatalf("RemoveMember(0) error = %v", err)
	}
	if err := f.c.RemoveMember(0); err != nil {
		t.Fatalf("RemoveMember(0) error = %v", err)
	}
	members := f.c.State().Draft.TeamMembers
	if len(members) != 1 || members[0].Name != "Ravi" {
		t.Fatalf("members = %+v, want only Ravi", members)
	}
	if err := f.c.RemoveMember(0); !errors.Is(err, ErrTeamSizeOutOfRange) {
		t.Fatalf("removing the last row error = %v, want ErrTeamSizeOutOfRange", err)
	}
}

func TestMemberEditingLockedAndIndividual(t *testing.T) {
	f := newFixture(t)
	selectEvent(t, f.c, catalog.BGMI)

	if err := f.c.AddMember(); !errors.Is(err, ErrTeamSizeLocked) {
		t.Errorf("AddMember() on locked team error = %v, want ErrTeamSizeLocked", err)
	}
	if err := f.c.RemoveMember(0); !errors.Is(err, ErrTeamSizeLocked) {
		t.Errorf("RemoveMember() on locked team error = %v, want ErrTeamSizeLocked", err)
	}
	if err := f.c.UpdateMember(0, fullMember("Kiran")); err != nil {
		t.Errorf("UpdateMember() on locked team error = %v", err)
	}

	selectEvent(t, f.c, catalog.TechQuiz)
	if err := f.c.UpdateMember(0, fullMember("Kiran")); !errors.Is(err, ErrNotTeam) {
		t.Errorf("UpdateMember() on individual event error = %v, want ErrNotTeam", err)
	}
}

func TestSetFieldUnknown(t *testing.T) {
	f := newFixture(t)
	if err := f.c.SetField(FieldEventType, "Tech Quiz"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("SetField(eventType) error = %v, want ErrUnknownField", err)
	}
}

// ── Fees ──

func TestTotalFee(t *testing.T) {
	tests := []struct {
		name  string
		event catalog.EventID
		size  int // 0 leaves the size prompt cancelled or not applicable
		want  int
	}{
		{"nothing selected", catalog.None, 0, 0},
		{"tech quiz", catalog.TechQuiz, 0, 25},
		{"bgmi", catalog.BGMI, 0, 100},
		{"tech show pair", catalog.TechShow, 2, 50},
		{"tech show solo", catalog.TechShow, 1, 50},
		{"startup bid of four", catalog.StartupBid, 4, 100},
		{"startup bid of two", catalog.StartupBid, 2, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.event != catalog.None {
				if err := f.c.Toggle(tt.event); err != nil {
					t.Fatalf("Toggle() error = %v", err)
				}
			}
			if tt.size > 0 {
				if err := f.c.ConfirmTeamSize(tt.size); err != nil {
					t.Fatalf("ConfirmTeamSize() error = %v", err)
				}
			}
			if got := f.c.TotalFee(); got != tt.want {
				t.Errorf("TotalFee() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatFee(t *testing.T) {
	if got := FormatFee(25); got != "₹25" {
		t.Errorf("FormatFee(25) = %q, want ₹25", got)
	}
}

// ── Receipts ──

func TestReceiptPreviewLifecycle(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		if err := f.c.AttachReceipt(pngReceipt(t)); err != nil {
			t.Fatalf("AttachReceipt() error = %v", err)
		}
		if _, ok := f.c.Preview(); !ok {
			t.Fatal("Preview() missing for an image receipt")
		}
		f.c.RemoveReceipt()
		f.c.RemoveReceipt()
		if st := f.c.State(); st.Receipt != nil {
			t.Fatalf("receipt still attached: %+v", st.Receipt)
		}
	}

	stats := f.previews.Stats()
	if stats.Created != 3 || stats.Released != 3 || stats.Live != 0 {
		t.Errorf("Stats() = %+v, want 3 created, 3 released, 0 live", stats)
	}
}

func TestReplacingReceiptReleasesPrevious(t *testing.T) {
	f := newFixture(t)

	_ = f.c.AttachReceipt(pngReceipt(t))
	_ = f.c.AttachReceipt(pngReceipt(t))
	if stats := f.previews.Stats(); stats.Released != 1 || stats.Live != 1 {
		t.Fatalf("after replace Stats() = %+v, want 1 released, 1 live", stats)
	}

	if err := f.c.AttachReceipt(pdfReceipt()); err != nil {
		t.Fatalf("AttachReceipt(pdf) error = %v", err)
	}
	st := f.c.State()
	if st.Receipt == nil || !st.Receipt.Preview.Placeholder {
		t.Fatalf("document receipt = %+v, want placeholder preview", st.Receipt)
	}
	if stats := f.previews.Stats(); stats.Live != 0 {
		t.Errorf("Stats().Live = %d, want 0", stats.Live)
	}
}

func TestUploadName(t *testing.T) {
	f := newFixture(t)
	_ = f.c.AttachReceipt(pngReceipt(t))

	if got := f.c.State().Receipt.UploadName; got != "participant.png" {
		t.Errorf("empty draft upload name = %q, want participant.png", got)
	}

	_ = f.c.SetField(FieldName, "Asha Rao")
	selectEvent(t, f.c, catalog.CodeRelay)
	if got := f.c.State().Receipt.UploadName; got != "Asha Rao.png" {
		t.Errorf("team without name upload name = %q, want Asha Rao.png", got)
	}

	_ = f.c.SetField(FieldTeamName, "Byte Knights")
	if got := f.c.State().Receipt.UploadName; got != "Byte Knights.png" {
		t.Errorf("team upload name = %q, want Byte Knights.png", got)
	}
}

// ── Validation and submission ──

func TestSubmitBlockedByValidation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, c *Controller)
		field Field
	}{
		{
			name: "malformed email",
			setup: func(t *testing.T, c *Controller) {
				_ = c.SetField(FieldEmail, "asha@example")
			},
			field: FieldEmail,
		},
		{
			name: "short mobile",
			setup: func(t *testing.T, c *Controller) {
				_ = c.SetField(FieldMobileNumber, "987654321")
			},
			field: FieldMobileNumber,
		},
		{
			name: "mobile with letters",
			setup: func(t *testing.T, c *Controller) {
				_ = c.SetField(FieldMobileNumber, "98765abcde")
			},
			field: FieldMobileNumber,
		},
		{
			name:  "no receipt",
			setup: func(t *testing.T, c *Controller) { c.RemoveReceipt() },
			field: FieldPaymentReceipt,
		},
		{
			name: "empty team member field",
			setup: func(t *testing.T, c *Controller) {
				selectEvent(t, c, catalog.BGMI)
				_ = c.SetField(FieldTeamName, "Byte Knights")
				_ = c.UpdateMember(0, fullMember("Kiran"))
				_ = c.UpdateMember(1, fullMember("Meera"))
				m := fullMember("Dev")
				m.College = "  "
				_ = c.UpdateMember(2, m)
			},
			field: FieldTeamMembers,
		},
		{
			name: "bad transaction id",
			setup: func(t *testing.T, c *Controller) {
				_ = c.SetField(FieldTransactionID, "TX 1")
			},
			field: FieldTransactionID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			fillValid(t, f.c)
			selectEvent(t, f.c, catalog.TechQuiz)
			_ = f.c.AttachReceipt(pngReceipt(t))
			tt.setup(t, f.c)
			f.inbox.Drain()

			err := f.c.Submit(context.Background())
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Submit() error = %v, want ErrValidation", err)
			}
			var fe FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("Submit() error %v carries no FieldErrors", err)
			}
			if _, ok := fe.Map()[string(tt.field)]; !ok {
				t.Errorf("errors = %v, want one for %s", fe.Map(), tt.field)
			}
			if f.sub.count() != 0 {
				t.Errorf("submitter called %d times, want 0", f.sub.count())
			}
			if notices := f.inbox.Drain(); len(notices) != 1 || notices[0] != fe.First() {
				t.Errorf("notices = %q, want the first error %q", notices, fe.First())
			}
			if st := f.c.State(); st.Errors[string(tt.field)] == "" {
				t.Errorf("state errors = %v, want %s", st.Errors, tt.field)
			}
		})
	}
}

func TestValidSubmission(t *testing.T) {
	f := newFixture(t)
	fillValid(t, f.c)
	selectEvent(t, f.c, catalog.TechQuiz)
	if err := f.c.AttachReceipt(pngReceipt(t)); err != nil {
		t.Fatalf("AttachReceipt() error = %v", err)
	}

	if errs := f.c.Validate(); len(errs) != 0 {
		t.Fatalf("Validate() = %v, want none", errs)
	}
	if err := f.c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if f.sub.count() != 1 {
		t.Fatalf("submitter called %d times, want 1", f.sub.count())
	}

	quiz, _ := catalog.Default().Lookup(catalog.TechQuiz)
	p := f.sub.calls[0]
	if p.Event != "Tech Quiz" || p.TeamType != model.TeamTypeIndividual {
		t.Errorf("payload event = %q type = %q", p.Event, p.TeamType)
	}
	if p.Name != "Asha Rao" || p.MobileNumber != "9876543210" || p.UPIID != "asha@upi" {
		t.Errorf("payload identity = %+v", p)
	}
	if p.CommunityLink != quiz.CommunityLink {
		t.Errorf("payload link = %q, want %q", p.CommunityLink, quiz.CommunityLink)
	}
	if p.ReceiptName != "Asha Rao.png" || p.ReceiptContentType != "image/png" {
		t.Errorf("receipt = %q (%s)", p.ReceiptName, p.ReceiptContentType)
	}
	if p.TeamMembers == nil || len(p.TeamMembers) != 0 {
		t.Errorf("TeamMembers = %#v, want empty", p.TeamMembers)
	}

	st := f.c.State()
	if !st.Submitted {
		t.Error("Submitted = false after success")
	}
	if st.CommunityLink != quiz.CommunityLink || st.LastRegistered != "Tech Quiz" {
		t.Errorf("success view = %q %q", st.LastRegistered, st.CommunityLink)
	}
	empty := Draft{}.clone()
	if !draftEqual(st.Draft, empty) || st.Event != "" || st.Receipt != nil || st.Errors != nil {
		t.Errorf("draft after success = %+v, want empty", st.Draft)
	}
	if stats := f.previews.Stats(); stats.Released != 1 || stats.Live != 0 {
		t.Errorf("preview Stats() = %+v, want released once", stats)
	}

	if f.timer == nil || f.timer.delay != DefaultResetDelay {
		t.Fatalf("reset timer = %+v, want one for %v", f.timer, DefaultResetDelay)
	}
	f.timer.fire()
	if f.c.State().Submitted {
		t.Error("Submitted still set after the reset delay")
	}
}

func draftEqual(a, b Draft) bool {
	return a.Name == b.Name && a.RollNumber == b.RollNumber && a.Program == b.Program &&
		a.Semester == b.Semester && a.MobileNumber == b.MobileNumber && a.College == b.College &&
		a.Email == b.Email && a.Event == b.Event && a.TeamType == b.TeamType &&
		a.TeamName == b.TeamName && slices.Equal(a.TeamMembers, b.TeamMembers) &&
		a.Receipt == b.Receipt && a.UPIID == b.UPIID && a.TransactionID == b.TransactionID
}

func TestValidTeamSubmission(t *testing.T) {
	f := newFixture(t)
	fillValid(t, f.c)
	if err := f.c.Toggle(catalog.TechShow); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if err := f.c.ConfirmTeamSize(2); err != nil {
		t.Fatalf("ConfirmTeamSize() error = %v", err)
	}
	_ = f.c.SetField(FieldTeamName, "Byte Knights")
	_ = f.c.UpdateMember(0, fullMember("Kiran"))
	_ = f.c.AttachReceipt(pdfReceipt())

	if err := f.c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	p := f.sub.calls[0]
	if p.TeamType != model.TeamTypeTeam || p.TeamName != "Byte Knights" || len(p.TeamMembers) != 1 {
		t.Errorf("payload team = %q %q %d members", p.TeamType, p.TeamName, len(p.TeamMembers))
	}
	if p.ReceiptName != "Byte Knights.pdf" {
		t.Errorf("ReceiptName = %q, want Byte Knights.pdf", p.ReceiptName)
	}
}

func TestDowngradedTeamEventValidatesAsIndividual(t *testing.T) {
	f := newFixture(t)
	fillValid(t, f.c)
	_ = f.c.Toggle(catalog.TechShow)
	_ = f.c.ConfirmTeamSize(1)
	_ = f.c.AttachReceipt(pngReceipt(t))

	if errs := f.c.Validate(); len(errs) != 0 {
		t.Fatalf("Validate() = %v, want none", errs)
	}
}

func TestSubmitFailurePreservesDraft(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		notice string
	}{
		{"rejected", &submit.RejectedError{StatusCode: 500}, rejectedNotice},
		{"transport", errors.New("connection refused"), transportNotice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.sub.err = tt.err
			fillValid(t, f.c)
			selectEvent(t, f.c, catalog.TechQuiz)
			_ = f.c.AttachReceipt(pngReceipt(t))
			before := f.c.State()
			f.inbox.Drain()

			if err := f.c.Submit(context.Background()); !errors.Is(err, tt.err) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.err)
			}
			after := f.c.State()
			if !draftEqual(after.Draft, before.Draft) || after.Submitted || after.Loading {
				t.Errorf("state changed on failure: %+v", after)
			}
			if got := f.inbox.Drain(); !slices.Equal(got, []string{tt.notice}) {
				t.Errorf("notices = %q, want %q", got, tt.notice)
			}
			if f.timer != nil {
				t.Error("reset timer scheduled on failure")
			}

			f.sub.err = nil
			if err := f.c.Submit(context.Background()); err != nil {
				t.Fatalf("retry Submit() error = %v", err)
			}
			if f.sub.count() != 2 {
				t.Errorf("submitter calls = %d, want 2", f.sub.count())
			}
		})
	}
}

type blockingSubmitter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSubmitter) Submit(ctx context.Context, _ submit.Payload) error {
	close(b.started)
	<-b.release
	return nil
}

func TestSubmitInFlight(t *testing.T) {
	b := &blockingSubmitter{started: make(chan struct{}), release: make(chan struct{})}
	c := New(catalog.Default(), b)
	c.afterFunc = func(time.Duration, func()) stopper { return &fakeTimer{} }
	fillValid(t, c)
	selectEvent(t, c, catalog.TechQuiz)
	_ = c.AttachReceipt(pngReceipt(t))

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()
	<-b.started

	if !c.State().Loading {
		t.Error("Loading = false while a submission is in flight")
	}
	if err := c.Submit(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("second Submit() error = %v, want ErrSubmitInFlight", err)
	}

	close(b.release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
}

func TestCloseReleasesResources(t *testing.T) {
	f := newFixture(t)
	fillValid(t, f.c)
	selectEvent(t, f.c, catalog.TechQuiz)
	_ = f.c.AttachReceipt(pngReceipt(t))
	if err := f.c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	_ = f.c.AttachReceipt(pngReceipt(t))

	f.c.Close()
	f.c.Close()

	if !f.timer.stopped {
		t.Error("reset timer not stopped on Close")
	}
	if stats := f.previews.Stats(); stats.Live != 0 || stats.Released != stats.Created {
		t.Errorf("Stats() = %+v, want everything released", stats)
	}
	if err := f.c.Submit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrClosed", err)
	}
}

func TestCloseDuringSubmit(t *testing.T) {
	f := newFixture(t)
	fillValid(t, f.c)
	selectEvent(t, f.c, catalog.TechQuiz)
	_ = f.c.AttachReceipt(pngReceipt(t))
	f.sub.during = f.c.Close

	if err := f.c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if f.sub.count() != 1 {
		t.Fatalf("submitter called %d times, want 1", f.sub.count())
	}
	if f.timer != nil {
		t.Errorf("reset timer armed on a closed controller (delay %v)", f.timer.delay)
	}
	st := f.c.State()
	if st.Submitted || st.Loading {
		t.Errorf("State() = submitted %v loading %v, want neither", st.Submitted, st.Loading)
	}
	if stats := f.previews.Stats(); stats.Live != 0 {
		t.Errorf("Stats() = %+v, want no live previews", stats)
	}
}

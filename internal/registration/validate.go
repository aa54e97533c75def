package registration

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
)

// ErrValidation wraps FieldErrors returned from Submit.
var ErrValidation = errors.New("registration invalid")

// FieldError is one failed field with the message shown to the user.
type FieldError struct {
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

// FieldErrors lists failed fields in form order.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "no field errors"
	}
	parts := make([]string, len(fe))
	for i, e := range fe {
		parts[i] = string(e.Field) + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}

// Map keys the messages by field name.
func (fe FieldErrors) Map() map[string]string {
	if len(fe) == 0 {
		return nil
	}
	m := make(map[string]string, len(fe))
	for _, e := range fe {
		m[string(e.Field)] = e.Message
	}
	return m
}

// First returns the message of the first failed field, or "".
func (fe FieldErrors) First() string {
	if len(fe) == 0 {
		return ""
	}
	return fe[0].Message
}

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
	upiPattern    = regexp.MustCompile(`^[\w.\-]{2,}@[a-zA-Z]{2,}$`)
	utrPattern    = regexp.MustCompile(`^[0-9A-Za-z]{6,40}$`)
	txnPattern    = regexp.MustCompile(`^[A-Za-z0-9\-_]{6,40}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	patterns := map[string]*regexp.Regexp{
		"emailaddr": emailPattern,
		"mobile":    mobilePattern,
		"txnid":     txnPattern,
	}
	for tag, re := range patterns {
		mustRegister(v, tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		})
	}
	mustRegister(v, "upiref", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return upiPattern.MatchString(s) || utrPattern.MatchString(s)
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// ── Validated shapes ──

// Fields are listed in form order so errors come back in that order.

type identityInput struct {
	Name           string `json:"name" validate:"required"`
	RollNumber     string `json:"rollNumber" validate:"required"`
	Program        string `json:"program" validate:"required"`
	Semester       string `json:"semester" validate:"required"`
	MobileNumber   string `json:"mobileNumber" validate:"mobile"`
	College        string `json:"college" validate:"required"`
	Email          string `json:"email" validate:"required,emailaddr"`
	EventType      string `json:"eventType" validate:"required"`
	PaymentReceipt bool   `json:"paymentReceipt" validate:"required"`
}

type paymentInput struct {
	UPIID         string `json:"upiId" validate:"required,upiref"`
	TransactionID string `json:"transactionId" validate:"required,txnid"`
}

type teamInput struct {
	TeamName string `json:"teamName" validate:"required"`
}

var messages = map[string]map[string]string{
	"name":           {"required": "Full name is required."},
	"rollNumber":     {"required": "Roll number is required."},
	"program":        {"required": "Program is required."},
	"semester":       {"required": "Semester is required."},
	"mobileNumber":   {"mobile": "Enter a valid 10-digit mobile number."},
	"college":        {"required": "College/University is required."},
	"email":          {"required": "Email is required (leader's email).", "emailaddr": "Enter a valid email address."},
	"eventType":      {"required": "Select at least one event."},
	"paymentReceipt": {"required": "Please upload your payment receipt."},
	"upiId":          {"required": "UPI ID/UTR ID is required.", "upiref": "Enter a valid UPI ID (e.g. name@bank) or a valid UTR/ID."},
	"transactionId":  {"required": "Transaction ID is required.", "txnid": "Transaction ID looks invalid (alphanumeric, 6-40 chars)."},
	"teamName":       {"required": "Team name is required."},
}

func collect(dst FieldErrors, s any) FieldErrors {
	err := validate.Struct(s)
	if err == nil {
		return dst
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		panic(fmt.Sprintf("validate %T: %v", s, err))
	}
	for _, fe := range verrs {
		msg := messages[fe.Field()][fe.Tag()]
		if msg == "" {
			msg = fe.Field() + " is invalid."
		}
		dst = append(dst, FieldError{Field: Field(fe.Field()), Message: msg})
	}
	return dst
}

// Validate checks a draft against the catalog. lockedSize is the team size
// chosen for the draft's event, or 0 when none was chosen; fixed-size events
// are always treated as locked. Text fields are trimmed before checking,
// except the mobile number, which must be exactly ten digits as typed.
// An empty result means the draft may be submitted.
func Validate(cat *catalog.Catalog, d Draft, lockedSize int) FieldErrors {
	def, selected := cat.Lookup(d.Event)

	var errs FieldErrors
	errs = collect(errs, identityInput{
		Name:           strings.TrimSpace(d.Name),
		RollNumber:     strings.TrimSpace(d.RollNumber),
		Program:        strings.TrimSpace(d.Program),
		Semester:       strings.TrimSpace(d.Semester),
		MobileNumber:   d.MobileNumber,
		College:        strings.TrimSpace(d.College),
		Email:          strings.TrimSpace(d.Email),
		EventType:      def.Name,
		PaymentReceipt: d.Receipt != nil,
	})
	if !selected {
		return errs
	}

	errs = collect(errs, paymentInput{
		UPIID:         strings.TrimSpace(d.UPIID),
		TransactionID: strings.TrimSpace(d.TransactionID),
	})

	if def.Mode != catalog.Team || d.TeamType != model.TeamTypeTeam {
		return errs
	}
	errs = collect(errs, teamInput{TeamName: strings.TrimSpace(d.TeamName)})
	if msg := checkMembers(def, d.TeamMembers, lockedSize); msg != "" {
		errs = append(errs, FieldError{Field: FieldTeamMembers, Message: msg})
	}
	return errs
}

// checkMembers returns the team member error, if any. A count error wins
// over an incomplete member.
func checkMembers(def catalog.Definition, members []model.TeamMember, lockedSize int) string {
	if n, ok := def.FixedTeamSize(); ok {
		lockedSize = n
	}
	count := len(members)

	if lockedSize > 0 {
		if count != lockedSize-1 {
			return fmt.Sprintf("Exactly %d member(s) (excluding you) required for this team size.", lockedSize-1)
		}
	} else {
		maxMembers := max(def.UpperTeamSize()-1, 0)
		if count > maxMembers {
			return fmt.Sprintf("Maximum %d members (excluding you) allowed.", maxMembers)
		}
		if def.MinTeamSize > 1 && count < def.MinTeamSize-1 {
			return fmt.Sprintf("Minimum %d members (excluding you) required.", def.MinTeamSize-1)
		}
	}

	for _, m := range members {
		if !m.Complete() {
			return "All team member fields are required."
		}
	}
	return ""
}

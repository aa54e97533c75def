// Package registration holds the registration form's state machine: event
// selection and team-size negotiation, fee computation, receipt attachment,
// validation and submission to the festival backend.
package registration

import (
	"strings"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/receipt"
)

// Field names a form field. Values match the multipart field names sent to
// the backend.
type Field string

const (
	FieldName           Field = "name"
	FieldRollNumber     Field = "rollNumber"
	FieldProgram        Field = "program"
	FieldSemester       Field = "semester"
	FieldMobileNumber   Field = "mobileNumber"
	FieldCollege        Field = "college"
	FieldEmail          Field = "email"
	FieldEventType      Field = "eventType"
	FieldPaymentReceipt Field = "paymentReceipt"
	FieldUPIID          Field = "upiId"
	FieldTransactionID  Field = "transactionId"
	FieldTeamName       Field = "teamName"
	FieldTeamMembers    Field = "teamMembers"
)

// Draft is the working state of one registration.
type Draft struct {
	Name          string             `json:"name"`
	RollNumber    string             `json:"rollNumber"`
	Program       string             `json:"program"`
	Semester      string             `json:"semester"`
	MobileNumber  string             `json:"mobileNumber"`
	College       string             `json:"college"`
	Email         string             `json:"email"`
	Event         catalog.EventID    `json:"-"`
	TeamType      model.TeamType     `json:"teamType"`
	TeamName      string             `json:"teamName"`
	TeamMembers   []model.TeamMember `json:"teamMembers"`
	Receipt       *receipt.File      `json:"-"`
	UPIID         string             `json:"upiId"`
	TransactionID string             `json:"transactionId"`
}

// clone copies d so callers cannot reach the controller's member slice.
func (d Draft) clone() Draft {
	out := d
	out.TeamMembers = append([]model.TeamMember(nil), d.TeamMembers...)
	if out.TeamMembers == nil {
		out.TeamMembers = []model.TeamMember{}
	}
	return out
}

// set assigns a free-text field. It reports false for fields that are not
// typed in directly.
func (d *Draft) set(f Field, value string) bool {
	switch f {
	case FieldName:
		d.Name = value
	case FieldRollNumber:
		d.RollNumber = value
	case FieldProgram:
		d.Program = value
	case FieldSemester:
		d.Semester = value
	case FieldMobileNumber:
		d.MobileNumber = value
	case FieldCollege:
		d.College = value
	case FieldEmail:
		d.Email = value
	case FieldTeamName:
		d.TeamName = value
	case FieldUPIID:
		d.UPIID = value
	case FieldTransactionID:
		d.TransactionID = value
	default:
		return false
	}
	return true
}

// clearTeam resets the team-specific fields to their empty forms.
func (d *Draft) clearTeam() {
	d.TeamType = model.TeamTypeNone
	d.TeamName = ""
	d.TeamMembers = nil
}

// UploadName is the name the receipt is sent under: the team name for team
// entries, otherwise the participant name, followed by the original
// extension.
func UploadName(d Draft, def catalog.Definition) string {
	if d.Receipt == nil {
		return ""
	}
	var base string
	if def.Mode == catalog.Team && d.TeamType == model.TeamTypeTeam {
		base = firstNonEmpty(d.TeamName, d.Name, "team")
	} else {
		base = firstNonEmpty(d.Name, "participant")
	}
	return d.Receipt.RenameTo(base)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func blankMembers(n int) []model.TeamMember {
	if n <= 0 {
		return nil
	}
	return make([]model.TeamMember, n)
}

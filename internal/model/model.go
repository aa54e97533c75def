// Package model defines the wire and record types shared by the registration
// site and the submission collector.
package model

import (
	"strings"
	"time"
)

// TeamType is how a registration is treated: as a solo entry or a team.
type TeamType string

const (
	TeamTypeNone       TeamType = ""
	TeamTypeIndividual TeamType = "individual"
	TeamTypeTeam       TeamType = "team"
)

// TeamMember is one teammate listed by the registering participant.
type TeamMember struct {
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber"`
	Program    string `json:"program"`
	Semester   string `json:"semester"`
	College    string `json:"college"`
}

// Complete reports whether every field of the member is filled.
func (m TeamMember) Complete() bool {
	for _, v := range []string{m.Name, m.RollNumber, m.Program, m.Semester, m.College} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Registration is a submission accepted and stored by the collector.
type Registration struct {
	ID            string       `json:"id"`
	Event         string       `json:"eventType"`
	TeamType      TeamType     `json:"teamType"`
	TeamName      string       `json:"teamName,omitempty"`
	Name          string       `json:"name"`
	RollNumber    string       `json:"rollNumber"`
	Program       string       `json:"program"`
	Semester      string       `json:"semester"`
	MobileNumber  string       `json:"mobileNumber"`
	College       string       `json:"college"`
	Email         string       `json:"email"`
	UPIID         string       `json:"upiId"`
	TransactionID string       `json:"transactionId"`
	CommunityLink string       `json:"whatsappLink"`
	ReceiptPath   string       `json:"receiptPath"`
	TeamMembers   []TeamMember `json:"teamMembers"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ─── Site API payloads ────────────────────────────────────────────────────────

// SelectRequest asks the registration form to select an event by name.
type SelectRequest struct {
	Event string `json:"event"`
}

// TeamSizeRequest confirms the team size for the pending team event.
type TeamSizeRequest struct {
	Size int `json:"size"`
}

// CountdownResponse reports the time left until the festival starts.
type CountdownResponse struct {
	Start            time.Time `json:"start"`
	Days             int       `json:"days"`
	Hours            int       `json:"hours"`
	Minutes          int       `json:"minutes"`
	Seconds          int       `json:"seconds"`
	Over             bool      `json:"over"`
	RegistrationOpen bool      `json:"registrationOpen"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

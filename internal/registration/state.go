package registration

import (
	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/receipt"
)

// ReceiptInfo describes the attached receipt without its bytes.
type ReceiptInfo struct {
	Name        string          `json:"name"`
	UploadName  string          `json:"uploadName"`
	ContentType string          `json:"contentType"`
	Size        int             `json:"size"`
	HumanSize   string          `json:"humanSize"`
	Preview     receipt.Preview `json:"preview"`
}

// State is a snapshot of a controller for rendering.
type State struct {
	Draft          Draft             `json:"draft"`
	Event          string            `json:"eventType"`
	Receipt        *ReceiptInfo      `json:"paymentReceipt,omitempty"`
	TeamSizeLocked bool              `json:"teamSizeLocked"`
	TeamSize       int               `json:"teamSize,omitempty"`
	MaxMembers     int               `json:"maxMembers"`
	TotalFee       int               `json:"totalFee"`
	FeeDisplay     string            `json:"feeDisplay"`
	Prompt         *Prompt           `json:"prompt,omitempty"`
	Errors         map[string]string `json:"errors,omitempty"`
	Loading        bool              `json:"loading"`
	Submitted      bool              `json:"submitted"`
	LastRegistered string            `json:"lastRegistered,omitempty"`
	CommunityLink  string            `json:"communityLink,omitempty"`
	Closed         bool              `json:"closed"`
}

// State returns a copy of the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	def, selected := c.cat.Lookup(c.draft.Event)
	fee := c.totalFee()
	s := State{
		Draft:      c.draft.clone(),
		Event:      def.Name,
		TotalFee:   fee,
		FeeDisplay: FormatFee(fee),
		Errors:     c.errors.Map(),
		Loading:    c.loading,
		Submitted:  c.submitted,
		Closed:     c.closed,
	}

	if selected && c.draft.TeamType == model.TeamTypeTeam {
		if n := c.lockedSize(); n > 0 {
			s.TeamSizeLocked = true
			s.TeamSize = n
			s.MaxMembers = n - 1
		} else {
			s.MaxMembers = def.UpperTeamSize() - 1
		}
	}

	if r := c.draft.Receipt; r != nil {
		s.Receipt = &ReceiptInfo{
			Name:        r.Name,
			UploadName:  UploadName(c.draft, def),
			ContentType: r.ContentType,
			Size:        r.Size(),
			HumanSize:   r.HumanSize(),
			Preview:     c.preview,
		}
	}

	if c.prompt != nil {
		p := *c.prompt
		s.Prompt = &p
	}

	if last, ok := c.cat.Lookup(c.last); ok {
		s.LastRegistered = last.Name
		if c.submitted {
			s.CommunityLink = last.CommunityLink
		}
	}
	return s
}

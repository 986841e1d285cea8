package leads

import "time"

// Lead is a candidate contact sourced from the CRM.
//
// Leads are read-only to the call core: the gateway owns them, the scheduler
// selects them, and the session manager only reads identity fields.
type Lead struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Company   string `json:"company,omitempty"`

	// Source tags where the lead came from (e.g. "ghl").
	Source string `json:"source"`

	CreatedAt time.Time `json:"created_at"`
}

// FullName joins the name parts, tolerating either being empty.
func (l Lead) FullName() string {
	switch {
	case l.FirstName == "":
		return l.LastName
	case l.LastName == "":
		return l.FirstName
	default:
		return l.FirstName + " " + l.LastName
	}
}

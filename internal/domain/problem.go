package domain

import "strings"

// ProblemCategory classifies why a ticket is in the problem state.
type ProblemCategory string

const (
	ProblemMapVerification   ProblemCategory = "map_verification"
	ProblemPhoneVerification ProblemCategory = "phone_verification"
	ProblemEmailVerification ProblemCategory = "email_verification"
	ProblemWrongPassword     ProblemCategory = "wrong_password"
	ProblemOther             ProblemCategory = "other"
)

// ProblemSentinelPrefix starts the marker written into admin notes.
const ProblemSentinelPrefix = "🚨 ประเภทปัญหา: "

var problemLabels = map[ProblemCategory]string{
	ProblemMapVerification:   "ติดยืนยันแมพ",
	ProblemPhoneVerification: "ติดยืนยันโทรศัพท์",
	ProblemEmailVerification: "ติดยืนยันเมล",
	ProblemWrongPassword:     "ชื่อหรือรหัสผิด",
}

// selectable categories in the order they are probed against notes
var problemOrder = []ProblemCategory{
	ProblemMapVerification,
	ProblemPhoneVerification,
	ProblemEmailVerification,
	ProblemWrongPassword,
}

// SelectableProblemCategories lists the categories an admin can pick.
func SelectableProblemCategories() []ProblemCategory {
	return append([]ProblemCategory(nil), problemOrder...)
}

// Selectable reports whether c may be chosen when moving a ticket to problem.
func (c ProblemCategory) Selectable() bool {
	_, ok := problemLabels[c]
	return ok
}

// Label returns the Thai label shown to admins.
func (c ProblemCategory) Label() string {
	if label, ok := problemLabels[c]; ok {
		return label
	}
	return "อื่นๆ"
}

// Sentinel returns the admin-notes marker for c.
func (c ProblemCategory) Sentinel() string {
	return ProblemSentinelPrefix + c.Label()
}

// ProblemCategoryFromNotes finds the category whose label appears in notes.
// Notes with no known label classify as other.
func ProblemCategoryFromNotes(notes string) ProblemCategory {
	for _, c := range problemOrder {
		if strings.Contains(notes, problemLabels[c]) {
			return c
		}
	}
	return ProblemOther
}

// ClassifyProblem reports the problem category of a ticket, preferring the
// dedicated column over the notes sentinel. Tickets outside the problem state
// have no category.
func ClassifyProblem(t *Ticket) *ProblemCategory {
	if t == nil || t.Status != TicketStatusProblem {
		return nil
	}
	if t.ProblemCategory != nil && *t.ProblemCategory != "" {
		c := *t.ProblemCategory
		return &c
	}
	notes := ""
	if t.AdminNotes != nil {
		notes = *t.AdminNotes
	}
	c := ProblemCategoryFromNotes(notes)
	return &c
}

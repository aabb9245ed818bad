// Package registration implements the four-step signup wizard: local
// per-step validation, draft persistence across reloads, and the
// submission pipeline against the identity service.
package registration

import (
	"context"
	"time"
)

// Step indexes the wizard's screens. Transitions are bounded to
// [StepBasicInfo, StepVerificationMethods].
type Step int

const (
	StepBasicInfo Step = iota
	StepProfessionalDetails
	StepSkills
	StepVerificationMethods

	stepCount = 4
)

// LastStep is the final wizard step, whose "continue" triggers submission.
const LastStep = StepVerificationMethods

// Enumerations accepted by the professional-details and skills steps.
var (
	YearsOfExperienceValues = []string{"1-5", "5-10", "10+"}
	SeniorityValues         = []string{"Entry", "Mid", "Senior", "Lead", "Manager", "Director", "VP", "C-Level"}
	EducationValues         = []string{"High School", "Associate", "Bachelor", "Master", "PhD", "Bootcamp", "Self-taught"}
)

// Resume upload constraints.
var resumeMIMETypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
}

const (
	resumeMaxBytes = 5 * 1024 * 1024
	skillsMin      = 3
	skillsMax      = 20
)

// Fields holds everything the four steps collect.
type Fields struct {
	// Step 1
	Name            string `json:"name"`
	Title           string `json:"title"`
	Email           string `json:"email"`
	Location        string `json:"location"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Phone           string `json:"phone"`
	// Step 2
	YearsOfExperience string `json:"yearsOfExperience"`
	CurrentCompany    string `json:"currentCompany"`
	Seniority         string `json:"seniority"`
	// Step 3
	TopSkills        []string `json:"topSkills"`
	HighestEducation string   `json:"highestEducation"`
	ResumeFileName   string   `json:"resumeFileName,omitempty"`
	// Step 4
	VerifyAI    bool `json:"verifyAI"`
	VerifyEmail bool `json:"verifyEmail"`
	VerifyPeers bool `json:"verifyPeers"`
	VerifySMS   bool `json:"verifySMS"`
}

// ResumeUpload carries the transient metadata of a selected resume file.
// Only the file name is persisted with the draft; type and size exist to
// validate the selection.
type ResumeUpload struct {
	FileName string
	MIMEType string
	Size     int64
}

// Draft is the persisted in-progress registration. It survives reloads
// through a DraftStore and is cleared only on verified completion or
// explicit cancel.
type Draft struct {
	ID     string `json:"id"`
	Step   Step   `json:"step"`
	Fields Fields `json:"fields"`
	// UserID is set once registration succeeded, so a crash between
	// "registered" and "verified" can resume at the gate.
	UserID string `json:"userId,omitempty"`
	// Submitted marks the draft as past the point of no resume: a
	// submitted draft found on reload re-enters at the verification
	// gate instead of being resumed as editable step data.
	Submitted bool      `json:"submitted"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DraftStore persists drafts keyed by flow identity. Implementations are
// ephemeral by contract (TTL-bound); losing a draft costs re-typing, not
// correctness.
type DraftStore interface {
	Load(ctx context.Context, flowKey string) (*Draft, error)
	Save(ctx context.Context, flowKey string, d *Draft) error
	Clear(ctx context.Context, flowKey string) error
}

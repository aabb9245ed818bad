package registration

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	domainPattern   = regexp.MustCompile(`^[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	passwordDigit   = regexp.MustCompile(`\d`)
	passwordSymbol  = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	phonePattern    = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
	phoneStripChars = strings.NewReplacer(" ", "", "(", "", ")", "", "-", "")
)

// ValidateStep checks one step's fields and returns a field-keyed error
// map, empty when the step is valid. resume may be nil when no file has
// been selected in this session.
func ValidateStep(step Step, f Fields, resume *ResumeUpload) map[string]string {
	errs := map[string]string{}
	switch step {
	case StepBasicInfo:
		validateBasicInfo(f, errs)
	case StepProfessionalDetails:
		validateProfessionalDetails(f, errs)
	case StepSkills:
		validateSkills(f, resume, errs)
	case StepVerificationMethods:
		validateVerificationMethods(f, errs)
	}
	return errs
}

func validateBasicInfo(f Fields, errs map[string]string) {
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Name is required"
	}
	title := strings.TrimSpace(f.Title)
	if title == "" {
		errs["title"] = "Professional title is required"
	} else if len(title) < 2 || len(title) > 80 {
		errs["title"] = "Title must be between 2 and 80 characters"
	}
	email := strings.TrimSpace(f.Email)
	switch {
	case email == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		errs["email"] = "Please enter a valid email address"
	default:
		domain := email[strings.LastIndex(email, "@")+1:]
		if !domainPattern.MatchString(domain) {
			errs["email"] = "Please enter a valid email domain"
		}
	}
	if strings.TrimSpace(f.Location) == "" {
		errs["location"] = "Location is required"
	}
	switch {
	case f.Password == "":
		errs["password"] = "Password is required"
	case len(f.Password) < 8:
		errs["password"] = "Password must be at least 8 characters"
	case !passwordDigit.MatchString(f.Password):
		errs["password"] = "Password must contain at least one number"
	case !passwordSymbol.MatchString(f.Password):
		errs["password"] = "Password must contain at least one symbol"
	}
	if f.ConfirmPassword != f.Password {
		errs["confirmPassword"] = "Passwords do not match"
	}
	if phone := strings.TrimSpace(f.Phone); phone != "" {
		if !phonePattern.MatchString(phoneStripChars.Replace(phone)) {
			errs["phone"] = "Please enter a valid phone number"
		}
	}
}

func validateProfessionalDetails(f Fields, errs map[string]string) {
	if f.YearsOfExperience == "" {
		errs["yearsOfExperience"] = "Years of experience is required"
	} else if !slices.Contains(YearsOfExperienceValues, f.YearsOfExperience) {
		errs["yearsOfExperience"] = "Please select a valid experience range"
	}
	if strings.TrimSpace(f.CurrentCompany) == "" {
		errs["currentCompany"] = "Current company is required"
	}
	if f.Seniority == "" {
		errs["seniority"] = "Seniority level is required"
	} else if !slices.Contains(SeniorityValues, f.Seniority) {
		errs["seniority"] = "Please select a valid seniority level"
	}
}

func validateSkills(f Fields, resume *ResumeUpload, errs map[string]string) {
	if len(f.TopSkills) < skillsMin {
		errs["topSkills"] = fmt.Sprintf("Please select at least %d skills", skillsMin)
	}
	if f.HighestEducation == "" {
		errs["highestEducation"] = "Education level is required"
	} else if !slices.Contains(EducationValues, f.HighestEducation) {
		errs["highestEducation"] = "Please select a valid education level"
	}
	if resume != nil {
		if msg := validateResume(resume); msg != "" {
			errs["resume"] = msg
		}
	}
}

// validateResume checks a resume selection. Empty string means valid.
func validateResume(resume *ResumeUpload) string {
	if !slices.Contains(resumeMIMETypes, resume.MIMEType) {
		return "Please upload a PDF or Word document"
	}
	if resume.Size > resumeMaxBytes {
		return "Resume must be smaller than 5MB"
	}
	return ""
}

func validateVerificationMethods(f Fields, errs map[string]string) {
	if !f.VerifyEmail {
		errs["verifyEmail"] = "Email verification is required"
	}
}

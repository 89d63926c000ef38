// Package normalize converts raw backend payloads of unknown shape into the
// canonical records in internal/models. Each canonical field probes an
// ordered list of source field names and takes the first defined value;
// anything missing degrades to an entity-specific default. Normalization
// never fails and is idempotent: every canonical field name is the first
// entry of its own probe list.
package normalize

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"internlink/internal/models"
)

// Application canonicalizes one raw application record. Nested wrappers
// ({"application": {...}}) are unwrapped first; student profile fields fall
// back to an embedded student/applicant object, stipend to an embedded
// internship snapshot.
func Application(raw map[string]any) models.Application {
	src := unwrap(raw, "application")
	return models.Application{
		ID:              id(src),
		InternshipID:    str(src, "internshipId", "internship.id", "internship._id", "jobId"),
		InternshipTitle: str(src, "internshipTitle", "position", "title", "internship.title", "internship.position"),
		StudentEmail:    str(src, "studentEmail", "student.email", "applicant.email", "email"),
		StudentName:     str(src, "studentName", "student.name", "student.fullName", "applicant.name", "name", "fullName"),
		Company:         str(src, "company", "companyName", "employer", "internship.company"),
		Status:          models.CanonicalApplicationStatus(str(src, "status", "state")),
		AppliedDate:     str(src, "appliedDate", "applied", "createdAt", "appliedOn"),
		Stipend:         str(src, "stipend", "salary", "internship.stipend", "internship.salary"),
		Phone:           str(src, "phone", "student.phone", "applicant.phone"),
		University:      str(src, "university", "student.university"),
		Course:          str(src, "course", "student.course"),
		Year:            str(src, "year", "student.year", "yearOfStudy"),
	}
}

func Applications(raw []map[string]any) []models.Application {
	out := make([]models.Application, 0, len(raw))
	for _, r := range raw {
		out = append(out, Application(r))
	}
	return out
}

func Internship(raw map[string]any) models.Internship {
	src := unwrap(raw, "internship")
	return models.Internship{
		ID:               id(src),
		Title:            str(src, "title", "position"),
		Company:          str(src, "company", "companyName"),
		CompanyEmail:     str(src, "companyEmail"),
		Location:         str(src, "location", "city"),
		Stipend:          str(src, "stipend", "salary", "remuneration"),
		Duration:         str(src, "duration", "period"),
		Tags:             tags(src),
		Description:      str(src, "description"),
		Deadline:         str(src, "deadline"),
		Status:           models.CanonicalInternshipStatus(str(src, "status")),
		PostedDate:       str(src, "posted", "postedDate", "createdAt"),
		ApplicationCount: intval(src, "applicationCount", "applicants"),
	}
}

func Internships(raw []map[string]any) []models.Internship {
	out := make([]models.Internship, 0, len(raw))
	for _, r := range raw {
		out = append(out, Internship(r))
	}
	return out
}

func Account(raw map[string]any) models.Account {
	src := unwrap(raw, "user", "company")
	status := models.AccountStatus(str(src, "status"))
	if status != models.AccountSuspended {
		status = models.AccountActive
	}
	role := models.Role(str(src, "userType", "role"))
	switch role {
	case models.RoleStudent, models.RoleCompany, models.RoleAdmin:
	default:
		role = models.RoleStudent
	}
	return models.Account{
		ID:                      id(src),
		UserType:                role,
		Email:                   str(src, "email"),
		FullName:                str(src, "fullName", "name"),
		Status:                  status,
		Phone:                   str(src, "phone"),
		University:              str(src, "university"),
		Course:                  str(src, "course"),
		YearOfStudy:             str(src, "yearOfStudy", "year"),
		CompanyName:             str(src, "companyName"),
		Designation:             str(src, "designation"),
		LinkedIn:                str(src, "linkedin"),
		VerificationStatus:      models.CanonicalVerificationStatus(str(src, "verificationStatus", "verification_status")),
		VerificationDocumentURL: str(src, "verificationDocumentUrl", "documentUrl"),
	}
}

func Accounts(raw []map[string]any) []models.Account {
	out := make([]models.Account, 0, len(raw))
	for _, r := range raw {
		out = append(out, Account(r))
	}
	return out
}

// Verification maps a company record (or the admin list's pre-mapped shape)
// to a VerificationRequest. A record in the admin queue without an explicit
// status is by definition pending review.
func Verification(raw map[string]any) models.VerificationRequest {
	src := unwrap(raw, "verification", "company")
	status := str(src, "verificationStatus", "verification_status", "status")
	v := models.CanonicalVerificationStatus(status)
	if status == "" {
		v = models.VerificationPending
	}
	vid := str(src, "id", "_id")
	if vid == "" {
		vid = str(src, "email")
	}
	return models.VerificationRequest{
		ID:             vid,
		CompanyName:    str(src, "companyName", "company", "name"),
		Representative: str(src, "representative", "fullName"),
		Email:          str(src, "email"),
		RequestedAt:    str(src, "verificationRequestedAt", "requestedAt"),
		DocumentURL:    str(src, "verificationDocumentUrl", "documentUrl"),
		LinkedIn:       str(src, "linkedin"),
		Status:         v,
	}
}

func Verifications(raw []map[string]any) []models.VerificationRequest {
	out := make([]models.VerificationRequest, 0, len(raw))
	for _, r := range raw {
		out = append(out, Verification(r))
	}
	return out
}

func Resume(raw map[string]any) models.ResumeMeta {
	src := unwrap(raw, "resume")
	return models.ResumeMeta{
		Email:          str(src, "email"),
		Filename:       str(src, "resumeFilename", "filename", "fileName"),
		StoredFilename: str(src, "storedFilename"),
		URL:            str(src, "resumeUrl", "url", "dataUrl"),
		UploadedAt:     str(src, "uploadedAt"),
	}
}

// unwrap peels one level of named wrapper object if present.
func unwrap(raw map[string]any, keys ...string) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	for _, k := range keys {
		if inner, ok := raw[k].(map[string]any); ok {
			return inner
		}
	}
	return raw
}

// str probes the listed keys in order and returns the first defined value as
// a string. A key may be a dotted path into a nested object.
func str(src map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := lookup(src, k); s != "" {
			return s
		}
	}
	return ""
}

func lookup(src map[string]any, key string) string {
	cur := any(src)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[part]
		if !ok {
			return ""
		}
	}
	return asString(cur)
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func intval(src map[string]any, keys ...string) int {
	for _, k := range keys {
		switch t := src[k].(type) {
		case float64:
			return int(t)
		case int:
			return t
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return n
			}
		}
	}
	return 0
}

// tags reads tags or skills, accepting a list or a comma-separated string.
func tags(src map[string]any) []string {
	for _, k := range []string{"tags", "skills"} {
		switch t := src[k].(type) {
		case []any:
			out := make([]string, 0, len(t))
			for _, item := range t {
				if s := strings.TrimSpace(asString(item)); s != "" {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return t
		case string:
			parts := strings.Split(t, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
	}
	return []string{}
}

// id probes the usual id fields and generates a stable opaque one when the
// record carries none, so downstream code can always key on it.
func id(src map[string]any) string {
	if v := str(src, "id", "_id"); v != "" {
		return v
	}
	return uuid.NewString()
}

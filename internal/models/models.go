package models

// Role identifies which portal an account belongs to.
type Role string

const (
	RoleStudent Role = "student"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

type AccountStatus string

const (
	AccountActive    AccountStatus = "Active"
	AccountSuspended AccountStatus = "Suspended"
)

// ApplicationStatus is the canonical application vocabulary. The backend has
// historically emitted both "Pending" and "In Review" for the same state;
// CanonicalApplicationStatus folds the legacy spelling in.
type ApplicationStatus string

const (
	ApplicationInReview ApplicationStatus = "In Review"
	ApplicationSelected ApplicationStatus = "Selected"
	ApplicationRejected ApplicationStatus = "Rejected"
)

type InternshipStatus string

const (
	InternshipActive          InternshipStatus = "Active"
	InternshipPendingApproval InternshipStatus = "Pending Approval"
	InternshipRejected        InternshipStatus = "Rejected"
	InternshipClosed          InternshipStatus = "Closed"
)

type VerificationStatus string

const (
	VerificationNone     VerificationStatus = "Not Verified"
	VerificationPending  VerificationStatus = "Pending Review"
	VerificationVerified VerificationStatus = "Verified"
)

func CanonicalApplicationStatus(s string) ApplicationStatus {
	switch s {
	case string(ApplicationSelected):
		return ApplicationSelected
	case string(ApplicationRejected):
		return ApplicationRejected
	case "", "Pending", string(ApplicationInReview):
		return ApplicationInReview
	default:
		return ApplicationStatus(s)
	}
}

func CanonicalInternshipStatus(s string) InternshipStatus {
	switch s {
	case string(InternshipActive):
		return InternshipActive
	case string(InternshipRejected):
		return InternshipRejected
	case string(InternshipClosed):
		return InternshipClosed
	case "", "Pending", string(InternshipPendingApproval):
		return InternshipPendingApproval
	default:
		return InternshipStatus(s)
	}
}

func CanonicalVerificationStatus(s string) VerificationStatus {
	switch s {
	case string(VerificationVerified):
		return VerificationVerified
	case "Pending", string(VerificationPending):
		return VerificationPending
	case "", "Rejected", string(VerificationNone):
		return VerificationNone
	default:
		return VerificationStatus(s)
	}
}

// Account is the canonical user record for all three roles. Role-specific
// fields are zero for the roles they do not apply to.
type Account struct {
	ID       string        `json:"id"`
	UserType Role          `json:"userType"`
	Email    string        `json:"email"`
	FullName string        `json:"fullName"`
	Status   AccountStatus `json:"status"`
	Phone    string        `json:"phone,omitempty"`

	// Student fields.
	University  string `json:"university,omitempty"`
	Course      string `json:"course,omitempty"`
	YearOfStudy string `json:"yearOfStudy,omitempty"`

	// Company fields.
	CompanyName             string             `json:"companyName,omitempty"`
	Designation             string             `json:"designation,omitempty"`
	LinkedIn                string             `json:"linkedin,omitempty"`
	VerificationStatus      VerificationStatus `json:"verificationStatus,omitempty"`
	VerificationDocumentURL string             `json:"verificationDocumentUrl,omitempty"`
}

type Internship struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Company          string           `json:"company"`
	CompanyEmail     string           `json:"companyEmail"`
	Location         string           `json:"location"`
	Stipend          string           `json:"stipend"`
	Duration         string           `json:"duration"`
	Tags             []string         `json:"tags"`
	Description      string           `json:"description"`
	Deadline         string           `json:"deadline"`
	Status           InternshipStatus `json:"status"`
	PostedDate       string           `json:"posted"`
	ApplicationCount int              `json:"applicationCount"`
}

// Application holds a weak reference to its internship: InternshipID is used
// for lookup only, and a missing internship means the stipend stays unknown
// rather than being an error.
type Application struct {
	ID              string            `json:"id"`
	InternshipID    string            `json:"internshipId"`
	InternshipTitle string            `json:"internshipTitle"`
	StudentEmail    string            `json:"studentEmail"`
	StudentName     string            `json:"studentName"`
	Company         string            `json:"company"`
	Status          ApplicationStatus `json:"status"`
	AppliedDate     string            `json:"appliedDate"`
	Stipend         string            `json:"stipend"`
	Phone           string            `json:"phone,omitempty"`
	University      string            `json:"university,omitempty"`
	Course          string            `json:"course,omitempty"`
	Year            string            `json:"year,omitempty"`
}

// VerificationRequest is an admin-facing view over a company record that has
// asked for verification. Its ID is the company id.
type VerificationRequest struct {
	ID             string             `json:"id"`
	CompanyName    string             `json:"companyName"`
	Representative string             `json:"representative"`
	Email          string             `json:"email"`
	RequestedAt    string             `json:"verificationRequestedAt"`
	DocumentURL    string             `json:"verificationDocumentUrl"`
	LinkedIn       string             `json:"linkedin,omitempty"`
	Status         VerificationStatus `json:"verificationStatus"`
}

type ResumeMeta struct {
	Email          string `json:"email"`
	Filename       string `json:"resumeFilename"`
	StoredFilename string `json:"storedFilename,omitempty"`
	URL            string `json:"resumeUrl"`
	UploadedAt     string `json:"uploadedAt,omitempty"`
}

type StatusCounts struct {
	Selected int `json:"selected"`
	InReview int `json:"inReview"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

type UniversityCount struct {
	University string `json:"university"`
	Count      int    `json:"count"`
}

type CompanyCount struct {
	Company string `json:"company"`
	Count   int    `json:"count"`
}

type Analytics struct {
	TotalUsers              int               `json:"totalUsers"`
	ActiveStudents          int               `json:"activeStudents"`
	ActiveCompanies         int               `json:"activeCompanies"`
	TotalInternships        int               `json:"totalInternships"`
	PendingApprovals        int               `json:"pendingApprovals"`
	ThisMonthApplications   int               `json:"thisMonthApplications"`
	ApplicationStatusCounts StatusCounts      `json:"applicationStatusCounts"`
	TopUniversities         []UniversityCount `json:"topUniversities"`
	TopCompanies            []CompanyCount    `json:"topCompanies"`
}

type CompanyOverview struct {
	Company                 string       `json:"company"`
	TotalInternships        int          `json:"totalInternships"`
	ActiveInternships       int          `json:"activeInternships"`
	PendingInternships      int          `json:"pendingInternships"`
	TotalApplications       int          `json:"totalApplications"`
	ApplicationStatusCounts StatusCounts `json:"applicationStatusCounts"`
}

package wsadmin

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	admin "google.golang.org/api/admin/directory/v1"
)

// EmailDomain derives primary emails for new accounts.
type EmailDomain struct {
	Domain     string
	StudentTag string
}

// Email returns first.last@domain, or first.last.tag@domain for students.
// Names are lower-cased but otherwise used as typed.
func (d EmailDomain) Email(first, last string, student bool) string {
	local := strings.ToLower(first) + "." + strings.ToLower(last)
	if student && d.StudentTag != "" {
		local += "." + d.StudentTag
	}
	return local + "@" + d.Domain
}

// NewUserRequest is the insert body for a new account. The user must change
// the password at first login and is listed in the global address list.
func NewUserRequest(first, last, email, password, orgUnitPath string) *admin.User {
	return &admin.User{
		Name: &admin.UserName{
			GivenName:  first,
			FamilyName: last,
		},
		PrimaryEmail:               email,
		Password:                   password,
		ChangePasswordAtNextLogin:  true,
		OrgUnitPath:                orgUnitPath,
		IncludeInGlobalAddressList: true,
	}
}

type OutcomeStatus string

const (
	StatusCreated OutcomeStatus = "created"
	StatusDeleted OutcomeStatus = "deleted"
	StatusSkipped OutcomeStatus = "skipped"
	StatusFailed  OutcomeStatus = "failed"
)

// Outcome is the result of one item of a bulk operation.
type Outcome struct {
	Email  string
	Status OutcomeStatus
	Err    error
}

// BatchReport collects per-item outcomes so that one failure does not hide
// the rest of the batch.
type BatchReport struct {
	ID       uuid.UUID
	Outcomes []Outcome
}

func NewBatchReport() *BatchReport {
	return &BatchReport{ID: uuid.New()}
}

func (r *BatchReport) Add(email string, status OutcomeStatus, err error) {
	r.Outcomes = append(r.Outcomes, Outcome{Email: email, Status: status, Err: err})
}

// Count returns the number of outcomes with the given status.
func (r *BatchReport) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the failed outcomes.
func (r *BatchReport) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// WriteSummary prints one line of totals followed by the failures.
func (r *BatchReport) WriteSummary(w io.Writer, done OutcomeStatus) {
	fmt.Fprintf(w, "%s: %d, Skipped: %d, Failed: %d\n",
		titleStatus(done), r.Count(done), r.Count(StatusSkipped), r.Count(StatusFailed))
	for _, o := range r.Failed() {
		fmt.Fprintf(w, "\t%s :: %s\n", o.Email, apiMessage(o.Err))
	}
}

func titleStatus(s OutcomeStatus) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

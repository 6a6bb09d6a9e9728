package restapi

import (
	"context"
	"net/url"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/evaluation"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/grading"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/registration"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/resource"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/session"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
)

func esc(id string) string { return url.PathEscape(id) }

// Login exchanges credentials for a token and stores the new session.
func (c *Client) Login(ctx context.Context, username, password string) (user.Profile, error) {
	var res user.LoginResponse
	if err := c.Post(ctx, "/auth/login", user.LoginRequest{Username: username, Password: password}, &res); err != nil {
		return user.Profile{}, err
	}
	if err := c.sessions.SignIn(session.Session{Token: res.Token, User: res.User}); err != nil {
		return user.Profile{}, err
	}
	return res.User, nil
}

// Me returns the profile the backend associates with the current token.
func (c *Client) Me(ctx context.Context) (user.Profile, error) {
	var prof user.Profile
	err := c.Get(ctx, "/auth/me", nil, &prof)
	return prof, err
}

// Notifications

type Notifications struct{ c *Client }

var _ notification.Repository = (*Notifications)(nil)

func NewNotifications(c *Client) *Notifications { return &Notifications{c: c} }

func (r *Notifications) List(ctx context.Context) ([]notification.Notification, error) {
	var items []notification.Notification
	err := r.c.Get(ctx, "/notifications", nil, &items)
	return items, err
}

func (r *Notifications) Create(ctx context.Context, n notification.Notification) error {
	return r.c.Post(ctx, "/notifications", n, nil)
}

func (r *Notifications) MarkRead(ctx context.Context, id string) error {
	return r.c.Patch(ctx, "/notifications/"+esc(id), map[string]bool{"read": true}, nil)
}

func (r *Notifications) MarkManyRead(ctx context.Context, ids []string) error {
	body := struct {
		IDs  []string `json:"ids"`
		Read bool     `json:"read"`
	}{IDs: ids, Read: true}
	return r.c.Patch(ctx, "/notifications/bulk-update", body, nil)
}

func (r *Notifications) Delete(ctx context.Context, id string) error {
	return r.c.Delete(ctx, "/notifications/"+esc(id), nil)
}

// Submissions

type Submissions struct{ c *Client }

var _ submission.Repository = (*Submissions)(nil)

func NewSubmissions(c *Client) *Submissions { return &Submissions{c: c} }

const submissionsPath = "/teacher-submissions"

func (r *Submissions) CreateSlot(ctx context.Context, ns submission.NewSlot) (submission.Slot, error) {
	var slot submission.Slot
	err := r.c.Post(ctx, submissionsPath+"/slots", ns, &slot)
	return slot, err
}

func (r *Submissions) TeacherSlots(ctx context.Context) ([]submission.Slot, error) {
	var slots []submission.Slot
	err := r.c.Get(ctx, submissionsPath+"/slots", nil, &slots)
	return slots, err
}

func (r *Submissions) UpdateTimes(ctx context.Context, slotID string, times submission.SlotTimes) (submission.Slot, error) {
	var slot submission.Slot
	err := r.c.Put(ctx, submissionsPath+"/slots/"+esc(slotID)+"/times", times, &slot)
	return slot, err
}

func (r *Submissions) Statuses(ctx context.Context, slotID string) ([]submission.StudentStatus, error) {
	var rows []submission.StudentStatus
	err := r.c.Get(ctx, submissionsPath+"/slots/"+esc(slotID)+"/statuses", nil, &rows)
	return rows, err
}

func (r *Submissions) Comment(ctx context.Context, submissionID string, cm submission.Comment) (submission.Submission, error) {
	var sub submission.Submission
	err := r.c.Put(ctx, submissionsPath+"/submissions/"+esc(submissionID)+"/comment", cm, &sub)
	return sub, err
}

func (r *Submissions) StudentSlots(ctx context.Context) ([]submission.Slot, error) {
	var slots []submission.Slot
	err := r.c.Get(ctx, submissionsPath+"/student/all-slots", nil, &slots)
	return slots, err
}

func (r *Submissions) OpenSlots(ctx context.Context) ([]submission.Slot, error) {
	var slots []submission.Slot
	err := r.c.Get(ctx, submissionsPath+"/student/open-slots", nil, &slots)
	return slots, err
}

// Upload posts one file to .../upload (field "file"), several to .../uploads (field "files").
func (r *Submissions) Upload(ctx context.Context, slotID string, files []submission.Attachment) ([]submission.Submission, error) {
	parts := make([]File, 0, len(files))
	for _, f := range files {
		parts = append(parts, File{Name: f.Name, Content: f.Content})
	}
	base := submissionsPath + "/student/slots/" + esc(slotID)
	if len(parts) == 1 {
		var sub submission.Submission
		if err := r.c.Upload(ctx, base+"/upload", "file", parts, &sub); err != nil {
			return nil, err
		}
		return []submission.Submission{sub}, nil
	}
	var subs []submission.Submission
	err := r.c.Upload(ctx, base+"/uploads", "files", parts, &subs)
	return subs, err
}

func (r *Submissions) MySubmissions(ctx context.Context, slotID string) ([]submission.Submission, error) {
	var subs []submission.Submission
	err := r.c.Get(ctx, submissionsPath+"/student/slots/"+esc(slotID)+"/my-submissions", nil, &subs)
	return subs, err
}

// Evaluations

type Evaluations struct{ c *Client }

var _ evaluation.Repository = (*Evaluations)(nil)

func NewEvaluations(c *Client) *Evaluations { return &Evaluations{c: c} }

func (r *Evaluations) List(ctx context.Context) ([]evaluation.StudentEvaluation, error) {
	var evals []evaluation.StudentEvaluation
	err := r.c.Get(ctx, "/company-internships/students", nil, &evals)
	return evals, err
}

func (r *Evaluations) Save(ctx context.Context, studentID string, u evaluation.Update) (evaluation.StudentEvaluation, error) {
	var ev evaluation.StudentEvaluation
	err := r.c.Put(ctx, "/company-internships/students/"+esc(studentID)+"/evaluation", u, &ev)
	return ev, err
}

func (r *Evaluations) SubmitAll(ctx context.Context, studentIDs []string) (evaluation.SubmitResult, error) {
	body := struct {
		StudentIDs []string `json:"student_ids"`
	}{StudentIDs: studentIDs}
	var res evaluation.SubmitResult
	err := r.c.Post(ctx, "/company-internships/submit-all-evaluations", body, &res)
	return res, err
}

// Grades

type Grades struct{ c *Client }

var _ grading.Repository = (*Grades)(nil)

func NewGrades(c *Client) *Grades { return &Grades{c: c} }

func (r *Grades) Grade(ctx context.Context, studentID string, g grading.Grade) (grading.Result, error) {
	var res grading.Result
	err := r.c.Post(ctx, "/teacher-reports/students/"+esc(studentID)+"/grade", g, &res)
	return res, err
}

// Registrations

type Registrations struct{ c *Client }

var _ registration.Repository = (*Registrations)(nil)

func NewRegistrations(c *Client) *Registrations { return &Registrations{c: c} }

func (r *Registrations) Submit(ctx context.Context, f registration.Form) (registration.Registration, error) {
	var reg registration.Registration
	err := r.c.Post(ctx, "/internship-registrations", f, &reg)
	return reg, err
}

// Resources

// Resources bundles the list clients of every resource collection.
type Resources struct {
	Students  *resource.Client[resource.Student]
	Teachers  *resource.Client[resource.Teacher]
	Companies *resource.Client[resource.Company]
	Batches   *resource.Client[resource.Batch]
	Reports   *resource.Client[resource.Report]
}

func NewResources(c *Client) (*Resources, error) {
	var (
		res Resources
		err error
	)
	if res.Students, err = resource.NewClient[resource.Student](c, resource.PathStudents); err != nil {
		return nil, err
	}
	if res.Teachers, err = resource.NewClient[resource.Teacher](c, resource.PathTeachers); err != nil {
		return nil, err
	}
	if res.Companies, err = resource.NewClient[resource.Company](c, resource.PathCompanies); err != nil {
		return nil, err
	}
	if res.Batches, err = resource.NewClient[resource.Batch](c, resource.PathBatches); err != nil {
		return nil, err
	}
	if res.Reports, err = resource.NewClient[resource.Report](c, resource.PathReports); err != nil {
		return nil, err
	}
	return &res, nil
}

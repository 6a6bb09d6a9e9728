package notification

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

// Adder is the part of the Store the trigger helpers need.
type Adder interface {
	Add(nn NewNotification) (Notification, error)
}

// NotifyReportSubmitted tells a teacher that a student handed in a weekly report.
func NotifyReportSubmitted(a Adder, teacherID, studentName string, week int) (Notification, error) {
	return a.Add(NewNotification{
		Title:      "New report submitted",
		Message:    fmt.Sprintf("%s submitted the report for week %d.", studentName, week),
		Severity:   SeverityInfo,
		UserID:     teacherID,
		UserRole:   core.RoleTeacher,
		ActionType: ActionReportSubmission,
		ActionURL:  "/teacher/reports",
		Metadata:   &Metadata{StudentName: studentName, WeekNumber: week},
	})
}

// NotifyReportDeadline reminds a student of an upcoming report deadline.
func NotifyReportDeadline(a Adder, studentID string, week int, deadline time.Time) (Notification, error) {
	return a.Add(NewNotification{
		Title:      "Report deadline approaching",
		Message:    fmt.Sprintf("The report for week %d is due on %s.", week, deadline.Format("02/01/2006 15:04")),
		Severity:   SeverityWarning,
		UserID:     studentID,
		UserRole:   core.RoleStudent,
		ActionType: ActionReportDeadline,
		ActionURL:  "/student/reports",
		Metadata:   &Metadata{WeekNumber: week, Deadline: null.TimeFrom(deadline)},
	})
}

// NotifyRegistration reports the outcome of an internship registration to the student.
func NotifyRegistration(a Adder, studentID, companyName string, approved bool) (Notification, error) {
	nn := NewNotification{
		UserID:     studentID,
		UserRole:   core.RoleStudent,
		ActionType: ActionRegistration,
		ActionURL:  "/student/registration",
		Metadata:   &Metadata{CompanyName: companyName},
	}
	if approved {
		nn.Title = "Registration approved"
		nn.Message = fmt.Sprintf("Your internship registration at %s was approved.", companyName)
		nn.Severity = SeveritySuccess
	} else {
		nn.Title = "Registration rejected"
		nn.Message = fmt.Sprintf("Your internship registration at %s was rejected.", companyName)
		nn.Severity = SeverityError
	}
	return a.Add(nn)
}

// NotifyAssignment tells a student who their advising teacher and host company are.
func NotifyAssignment(a Adder, studentID, teacherName, companyName string) (Notification, error) {
	msg := fmt.Sprintf("You have been assigned to teacher %s", teacherName)
	if companyName != "" {
		msg += fmt.Sprintf(" at %s", companyName)
	}
	return a.Add(NewNotification{
		Title:      "Internship assignment",
		Message:    msg + ".",
		Severity:   SeverityInfo,
		UserID:     studentID,
		UserRole:   core.RoleStudent,
		ActionType: ActionAssignment,
		ActionURL:  "/student/internship",
		Metadata:   &Metadata{TeacherName: teacherName, CompanyName: companyName},
	})
}

// NotifySystem adds a system wide announcement for the signed-in user.
func NotifySystem(a Adder, title, message string, severity Severity) (Notification, error) {
	return a.Add(NewNotification{
		Title:      title,
		Message:    message,
		Severity:   severity,
		ActionType: ActionSystem,
	})
}

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/services/restapi"
)

func (cli *commandLine) submissions() (*submission.Service, error) {
	return submission.NewService(restapi.NewSubmissions(cli.client), cli.logger)
}

// slots holds the teacher side of the report workflow.
func (cli *commandLine) slots(ctx context.Context, args []string) error {
	sub, args, err := subcommand(args, "list", "list", "create", "times", "statuses", "comment")
	if err != nil {
		return err
	}
	svc, err := cli.submissions()
	if err != nil {
		return err
	}

	switch sub {
	case "create":
		return cli.createSlot(ctx, svc, args)
	case "times":
		return cli.slotTimes(ctx, svc, args)
	case "statuses":
		return cli.slotStatuses(ctx, svc, args)
	case "comment":
		return cli.commentSubmission(ctx, svc, args)
	}

	slots, err := svc.TeacherSlots(ctx)
	if err != nil {
		return err
	}
	return cli.printSlots(slots)
}

func (cli *commandLine) printSlots(slots []submission.Slot) error {
	if len(slots) == 0 {
		fmt.Fprintln(cli.out, "No slots.")
		return nil
	}
	t := newTable(cli.out, "ID", "TITLE", "KIND", "OPENS", "CLOSES", "STATE")
	for _, s := range slots {
		state := "closed"
		if core.IsWithinWindow(nowFunc(), s.StartAt, s.EndAt) {
			state = "open"
		}
		t.row(s.ID, s.Title, s.Kind.Label(), formatTime(s.StartAt), formatTime(s.EndAt), state)
	}
	return t.flush()
}

func (cli *commandLine) createSlot(ctx context.Context, svc *submission.Service, args []string) error {
	fs := newFlagSet("slots create", cli.out)
	title := fs.String("title", "", "The slot's title.")
	kind := fs.String("kind", string(submission.KindWeekly), "One of tuan, thang, cuoi_ky, tong_ket.")
	desc := fs.String("description", "", "Instructions for the students.")
	start := fs.String("start", "", "Opening time, "+timeLayout+".")
	end := fs.String("end", "", "Closing time, "+timeLayout+".")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *start == "" || *end == "" {
		fs.Usage()
		return errHelp
	}
	startAt, err := parseTime(*start)
	if err != nil {
		return err
	}
	endAt, err := parseTime(*end)
	if err != nil {
		return err
	}

	slot, err := svc.CreateSlot(ctx, submission.NewSlot{
		Title:       *title,
		Kind:        submission.ReportKind(*kind),
		Description: *desc,
		StartAt:     startAt,
		EndAt:       endAt,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Created slot %s (%s).\n", slot.ID, slot.Title)
	return nil
}

func (cli *commandLine) slotTimes(ctx context.Context, svc *submission.Service, args []string) error {
	fs := newFlagSet("slots times", cli.out)
	id := fs.String("id", "", "The slot's id.")
	start := fs.String("start", "", "New opening time, "+timeLayout+".")
	end := fs.String("end", "", "New closing time, "+timeLayout+".")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || *start == "" || *end == "" {
		fs.Usage()
		return errHelp
	}
	startAt, err := parseTime(*start)
	if err != nil {
		return err
	}
	endAt, err := parseTime(*end)
	if err != nil {
		return err
	}

	slot, err := svc.UpdateTimes(ctx, *id, startAt, endAt)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Slot %s is open from %s to %s.\n", slot.ID, formatTime(slot.StartAt), formatTime(slot.EndAt))
	return nil
}

func (cli *commandLine) slotStatuses(ctx context.Context, svc *submission.Service, args []string) error {
	fs := newFlagSet("slots statuses", cli.out)
	id := fs.String("id", "", "The slot's id.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		fs.Usage()
		return errHelp
	}

	rows, sum, err := svc.Statuses(ctx, *id)
	if err != nil {
		return err
	}
	t := newTable(cli.out, "STUDENT", "NAME", "CLASS", "STATUS", "SUBMITTED", "FILE", "SUBMISSION", "COMMENT", "COMPANY")
	for _, r := range rows {
		var file string
		if r.File != nil {
			file = r.File.Name
		}
		company := formatScore(r.CompanyScore)
		if r.CompanyComment.Valid {
			company = fmt.Sprintf("%s %s", company, r.CompanyComment.String)
		}
		t.row(r.StudentCode, r.StudentName, r.ClassName, r.Status.Label(), formatNullTime(r.SubmittedAt), file,
			r.SubmissionID.String, r.TeacherComment.String, company)
	}
	if err := t.flush(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d/%d handed in: %d submitted, %d approved, %d rejected, %d missing\n",
		sum.Handed(), sum.Total, sum.Submitted, sum.Approved, sum.Rejected, sum.NotSubmitted)
	return nil
}

func (cli *commandLine) commentSubmission(ctx context.Context, svc *submission.Service, args []string) error {
	fs := newFlagSet("slots comment", cli.out)
	id := fs.String("submission", "", "The submission's id.")
	text := fs.String("text", "", "The comment.")
	status := fs.String("status", "", "Optional new status: da_nop, da_duyet or tu_choi.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		fs.Usage()
		return errHelp
	}

	s, err := svc.Comment(ctx, *id, *text, submission.Status(*status))
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Submission %s is %s.\n", s.ID, strconv.Quote(s.Status.Label()))
	return nil
}

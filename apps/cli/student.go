package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
)

// student holds the student side of the report workflow.
func (cli *commandLine) student(ctx context.Context, args []string) error {
	sub, args, err := subcommand(args, "slots", "slots", "upload", "submissions")
	if err != nil {
		return err
	}
	svc, err := cli.submissions()
	if err != nil {
		return err
	}

	switch sub {
	case "upload":
		return cli.upload(ctx, svc, args)
	case "submissions":
		return cli.mySubmissions(ctx, svc, args)
	}

	fs := newFlagSet("student slots", cli.out)
	open := fs.Bool("open", false, "Only list the slots accepting uploads now.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var slots []submission.Slot
	if *open {
		slots, err = svc.OpenSlots(ctx)
	} else {
		slots, err = svc.StudentSlots(ctx)
	}
	if err != nil {
		return err
	}
	return cli.printSlots(slots)
}

func (cli *commandLine) upload(ctx context.Context, svc *submission.Service, args []string) error {
	fs := newFlagSet("student upload", cli.out)
	slotID := fs.String("slot", "", "The slot's id.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slotID == "" || fs.NArg() == 0 {
		fmt.Fprintln(cli.out, "usage: student upload -slot ID FILE...")
		return errHelp
	}

	slots, err := svc.StudentSlots(ctx)
	if err != nil {
		return err
	}
	var (
		slot  submission.Slot
		found bool
	)
	for _, s := range slots {
		if s.ID == *slotID {
			slot, found = s, true
			break
		}
	}
	if !found {
		return fmt.Errorf("no slot %q among yours", *slotID)
	}
	if !svc.CanUpload(slot, nowFunc()) {
		return submission.ErrWindowClosed
	}

	files := make([]submission.Attachment, 0, fs.NArg())
	for _, path := range fs.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		files = append(files, submission.Attachment{Name: filepath.Base(path), Content: content})
	}

	subs, err := svc.Upload(ctx, slot, files)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Uploaded %d file(s) to %s.\n", len(files), slot.Title)
	return cli.printSubmissions(subs)
}

func (cli *commandLine) mySubmissions(ctx context.Context, svc *submission.Service, args []string) error {
	fs := newFlagSet("student submissions", cli.out)
	slotID := fs.String("slot", "", "The slot's id.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slotID == "" {
		fs.Usage()
		return errHelp
	}
	subs, err := svc.MySubmissions(ctx, *slotID)
	if err != nil {
		return err
	}
	return cli.printSubmissions(subs)
}

func (cli *commandLine) printSubmissions(subs []submission.Submission) error {
	if len(subs) == 0 {
		fmt.Fprintln(cli.out, "No submissions.")
		return nil
	}
	t := newTable(cli.out, "ID", "SUBMITTED", "STATUS", "FILES", "COMMENT", "COMPANY SCORE")
	for _, s := range subs {
		var names string
		for i, f := range s.Files {
			if i > 0 {
				names += ", "
			}
			names += f.Name
		}
		t.row(s.ID, formatTime(s.SubmittedAt), s.Status.Label(), names, s.TeacherComment.String, formatScore(s.CompanyScore))
	}
	return t.flush()
}

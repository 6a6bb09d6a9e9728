package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/grading"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/services/restapi"
)

func (cli *commandLine) grade(ctx context.Context, args []string) error {
	fs := newFlagSet("grade", cli.out)
	student := fs.String("student", "", "The student's id.")
	score := fs.String("score", "", "The score, 0 to 10 in steps of 0.5.")
	remark := fs.String("remark", "", "Free text remark.")
	canned := fs.Int("canned", 0, "Use the Nth canned remark instead of -remark; see -scale.")
	scale := fs.Bool("scale", false, "Print the score scale and the canned remarks.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *scale {
		for _, s := range grading.Scale() {
			fmt.Fprint(cli.out, strconv.FormatFloat(s, 'f', 1, 64), " ")
		}
		fmt.Fprintln(cli.out)
		for i, r := range grading.CannedRemarks {
			fmt.Fprintf(cli.out, "%d. %s\n", i+1, r)
		}
		return nil
	}
	if *student == "" {
		fs.Usage()
		return errHelp
	}
	if *canned != 0 {
		if *canned < 0 || *canned > len(grading.CannedRemarks) {
			return fmt.Errorf("-canned must be between 1 and %d", len(grading.CannedRemarks))
		}
		*remark = grading.CannedRemarks[*canned-1]
	}

	svc, err := grading.NewService(restapi.NewGrades(cli.client))
	if err != nil {
		return err
	}
	res, err := svc.Grade(ctx, *student, *score, *remark)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Graded %s: %s", res.StudentID, strconv.FormatFloat(res.Score, 'f', 1, 64))
	if res.Remark != "" {
		fmt.Fprintf(cli.out, " (%s)", res.Remark)
	}
	fmt.Fprintln(cli.out, ".")
	return nil
}

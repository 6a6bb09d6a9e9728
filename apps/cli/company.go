package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/evaluation"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/services/restapi"
)

// company holds the evaluation sheet of the host company.
func (cli *commandLine) company(ctx context.Context, args []string) error {
	sub, args, err := subcommand(args, "sheet", "sheet", "score", "remark", "submit")
	if err != nil {
		return err
	}
	svc, err := evaluation.NewService(restapi.NewEvaluations(cli.client), cli.logger)
	if err != nil {
		return err
	}

	switch sub {
	case "score", "remark":
		return cli.saveEvaluation(ctx, svc, sub, args)
	case "submit":
		return cli.submitEvaluations(ctx, svc, args)
	}

	evals, err := svc.Evaluations(ctx)
	if err != nil {
		return err
	}
	return cli.printEvaluations(evals)
}

func (cli *commandLine) printEvaluations(evals []evaluation.StudentEvaluation) error {
	if len(evals) == 0 {
		fmt.Fprintln(cli.out, "No students.")
		return nil
	}
	t := newTable(cli.out, "ID", "CODE", "NAME", "CLASS", "SCORE", "REMARK", "SENT")
	for _, e := range evals {
		t.row(e.StudentID, e.StudentCode, e.StudentName, e.ClassName, formatScore(e.Score), e.Remark.String, formatNullTime(e.SentAt))
	}
	return t.flush()
}

// saveEvaluation saves one field of one student's evaluation; an empty value clears it.
func (cli *commandLine) saveEvaluation(ctx context.Context, svc *evaluation.Service, field string, args []string) error {
	fs := newFlagSet("company "+field, cli.out)
	student := fs.String("student", "", "The student's id.")
	value := fs.String("value", "", "The new "+field+"; empty clears it.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *student == "" {
		fs.Usage()
		return errHelp
	}

	var (
		ev  evaluation.StudentEvaluation
		err error
	)
	if field == "score" {
		score := null.Float64{}
		if v := strings.TrimSpace(*value); v != "" {
			f, perr := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
			if perr != nil {
				return fmt.Errorf("%q is not a number", v)
			}
			score = null.Float64From(f)
		}
		ev, err = svc.SaveScore(ctx, *student, score)
	} else {
		ev, err = svc.SaveRemark(ctx, *student, null.StringFrom(*value))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Saved: %s, score %s, remark %q.\n", ev.StudentName, orDash(formatScore(ev.Score)), ev.Remark.String)
	return nil
}

func (cli *commandLine) submitEvaluations(ctx context.Context, svc *evaluation.Service, args []string) error {
	fs := newFlagSet("company submit", cli.out)
	yes := fs.Bool("yes", false, "Do not ask for confirmation.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	evals, err := svc.Evaluations(ctx)
	if err != nil {
		return err
	}
	qualifying := evaluation.Qualifying(evals)
	if len(qualifying) == 0 {
		return evaluation.ErrNothingToSend
	}
	if !*yes && !cli.confirm(fmt.Sprintf("Send %d evaluation(s) to the teachers?", len(qualifying))) {
		fmt.Fprintln(cli.out, "Cancelled.")
		return nil
	}

	updated, sent, err := svc.SubmitAll(ctx, evals)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Sent %d evaluation(s).\n", sent)
	return cli.printEvaluations(updated)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

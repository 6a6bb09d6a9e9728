package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/resource"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/services/restapi"
)

type listOptions struct {
	query  resource.Query
	all    bool
	active bool
}

// list prints one page (or every page) of a resource collection.
func (cli *commandLine) list(ctx context.Context, args []string) error {
	kinds := []string{"students", "teachers", "companies", "batches", "reports"}
	kind, args, err := subcommand(args, "", kinds...)
	if err != nil {
		return err
	}
	if kind == "" {
		fmt.Fprintln(cli.out, commands()["list"].usage)
		return errHelp
	}

	fs := newFlagSet("list "+kind, cli.out)
	var (
		opts     listOptions
		ordering string
	)
	fs.IntVar(&opts.query.Page, "page", 1, "The page to show.")
	fs.IntVar(&opts.query.Limit, "limit", cli.conf.PageSize, "Items per page.")
	fs.StringVar(&opts.query.Search, "search", "", "Search the code and the name.")
	fs.StringVar(&opts.query.Status, "status", "", "Only this status, eg. active.")
	fs.StringVar(&ordering, "ordering", "", "Comma separated fields, -field for descending.")
	fs.BoolVar(&opts.all, "all", false, "Load every page.")
	fs.BoolVar(&opts.active, "active", false, "The active subset, not paged.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.query.Ordering = core.ParseOrderings(ordering)

	res, err := restapi.NewResources(cli.client)
	if err != nil {
		return err
	}
	switch kind {
	case "students":
		return listResource(ctx, cli, res.Students, opts,
			[]string{"ID", "CODE", "NAME", "CLASS", "EMAIL", "TEACHER", "COMPANY", "STATUS"},
			func(s resource.Student) []string {
				return []string{s.ID, s.Code, s.Name, s.ClassName, s.Email, s.TeacherID.String, s.CompanyID.String, s.Status}
			})
	case "teachers":
		return listResource(ctx, cli, res.Teachers, opts,
			[]string{"ID", "CODE", "NAME", "DEPARTMENT", "DEGREE", "EMAIL", "STATUS"},
			func(t resource.Teacher) []string {
				return []string{t.ID, t.Code, t.Name, t.Department, t.Degree, t.Email, t.Status}
			})
	case "companies":
		return listResource(ctx, cli, res.Companies, opts,
			[]string{"ID", "CODE", "NAME", "FIELD", "ADDRESS", "QUOTA", "STATUS"},
			func(c resource.Company) []string {
				return []string{c.ID, c.Code, c.Name, c.Field, c.Address, strconv.Itoa(c.Quota), c.Status}
			})
	case "batches":
		return listResource(ctx, cli, res.Batches, opts,
			[]string{"ID", "NAME", "START", "END", "REGISTER BY", "STATUS"},
			func(b resource.Batch) []string {
				return []string{b.ID, b.Name, formatTime(b.StartDate), formatTime(b.EndDate), formatNullTime(b.RegistrationDeadline), b.Status}
			})
	default:
		return listResource(ctx, cli, res.Reports, opts,
			[]string{"ID", "STUDENT", "TITLE", "KIND", "WEEK", "SUBMITTED", "STATUS", "SCORE"},
			func(r resource.Report) []string {
				return []string{r.ID, r.StudentID, r.Title, r.Kind, strconv.Itoa(r.Week), formatNullTime(r.SubmittedAt), r.Status, formatScore(r.Score)}
			})
	}
}

func listResource[T any](
	ctx context.Context,
	cli *commandLine,
	repo resource.Repository[T],
	opts listOptions,
	headers []string,
	row func(T) []string,
) error {
	var (
		items []T
		page  resource.Pagination
	)
	switch {
	case opts.active:
		active, err := repo.Active(ctx)
		if err != nil {
			return err
		}
		items = active

	case opts.all || opts.query.Page <= 1:
		st := resource.NewState(repo, opts.query)
		if err := st.Refetch(ctx); err != nil {
			return err
		}
		for opts.all && st.HasMore() {
			if err := st.LoadMore(ctx); err != nil {
				return err
			}
		}
		items, page = st.Items(), st.Pagination()

	default:
		p, err := repo.List(ctx, opts.query)
		if err != nil {
			return err
		}
		items, page = p.Items, p.Pagination
	}

	if len(items) == 0 {
		fmt.Fprintln(cli.out, "Nothing found.")
	} else {
		t := newTable(cli.out, headers...)
		for _, it := range items {
			t.row(row(it)...)
		}
		if err := t.flush(); err != nil {
			return err
		}
	}
	if opts.active {
		return nil
	}
	if opts.all || page.TotalPages == 0 {
		fmt.Fprintf(cli.out, "%d item(s)\n", page.Total)
		return nil
	}
	fmt.Fprintf(cli.out, "page %d/%d, %d item(s)\n", page.Page, page.TotalPages, page.Total)
	return nil
}

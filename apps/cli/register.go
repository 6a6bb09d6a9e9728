package main

import (
	"context"
	"fmt"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/registration"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/services/restapi"
)

func (cli *commandLine) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register", cli.out)
	var f registration.Form
	pref := fs.String("preference", string(registration.PreferenceSchool), "nha_truong (placed by the school) or tu_lien_he (self-arranged).")
	fs.StringVar(&f.BatchID, "batch", "", "The internship batch's id; see list batches -active.")
	fs.StringVar(&f.CompanyName, "company", "", "Self-arranged: the company's name.")
	fs.StringVar(&f.CompanyAddress, "address", "", "Self-arranged: the company's address.")
	fs.StringVar(&f.ContactName, "contact", "", "Self-arranged: the contact person.")
	fs.StringVar(&f.ContactPhone, "phone", "", "Self-arranged: the contact's phone number.")
	fs.StringVar(&f.Note, "note", "", "Anything the school should know.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f.Preference = registration.Preference(*pref)

	svc, err := registration.NewService(restapi.NewRegistrations(cli.client))
	if err != nil {
		return err
	}
	reg, err := svc.Submit(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Registration %s for batch %s is %s.\n", reg.ID, reg.BatchID, reg.Status)
	return nil
}

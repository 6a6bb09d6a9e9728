package echoapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/registration"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

// StatusPending is the status of a registration awaiting review.
const StatusPending = "cho_duyet"

type registrationApi struct {
	store     database.Store
	validator *core.Validator
}

func registerRegistrationAPI(g *echo.Group, authed []echo.MiddlewareFunc, s *Server) {
	api := registrationApi{store: s.Store, validator: s.Validator}

	rg := g.Group("/internship-registrations", with(authed, roleMiddleware(core.RoleStudent))...)
	rg.POST("", api.create)
	rg.GET("", api.query)
}

// create files the signed-in student's registration for one batch. A second registration for
// the same batch is refused.
func (api *registrationApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	var form registration.Form
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to Form")
	}
	form.Clean()
	if err := form.Validate(api.validator); err != nil {
		return err
	}

	if _, err := api.store.GetDocument(rctx, kindBatches, form.BatchID); err != nil {
		if errors.Cause(err) == database.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "dot_thuc_tap_id", Error: "unknown internship batch"})
		}
		return errors.Wrap(err, "getting batch")
	}
	regs, err := api.store.ListRegistrations(rctx, usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing registrations")
	}
	for _, r := range regs {
		if r.BatchID == form.BatchID {
			return core.NewValidationError(nil, core.FieldError{
				Field: "dot_thuc_tap_id",
				Error: "you already registered for this internship batch",
			})
		}
	}

	reg := registration.Registration{
		ID:        uuid.NewString(),
		StudentID: usr.ID,
		Form:      form,
		Status:    StatusPending,
		CreatedAt: nowFunc().UTC(),
	}
	if err := api.store.CreateRegistration(rctx, reg); err != nil {
		return errors.Wrap(err, "creating registration")
	}
	return respond(ctx, http.StatusCreated, reg)
}

func (api *registrationApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	regs, err := api.store.ListRegistrations(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing registrations")
	}
	if regs == nil {
		regs = []registration.Registration{}
	}
	return respond(ctx, http.StatusOK, regs)
}

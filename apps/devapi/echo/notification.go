package echoapi

import (
	"context"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

type notificationApi struct {
	store     database.NotificationStore
	validator *core.Validator
}

func registerNotificationAPI(g *echo.Group, authed []echo.MiddlewareFunc, s *Server) {
	api := notificationApi{store: s.Store, validator: s.Validator}

	ng := g.Group("/notifications", authed...)
	ng.GET("", api.query)
	ng.POST("", api.create)
	ng.PATCH("/bulk-update", api.bulkUpdate)
	ng.PATCH("/:id", api.update)
	ng.DELETE("/:id", api.destroy)
}

type (
	// ReadUpdate is the body of a single notification update.
	ReadUpdate struct {
		Read bool `json:"read"`
	}

	BulkReadUpdate struct {
		IDs  []string `json:"ids" validate:"required,min=1"`
		Read bool     `json:"read"`
	}

	UpdatedResponse struct {
		Updated int `json:"updated"`
	}
)

var errOnlyMarkRead = core.NewValidationError(nil, core.FieldError{Field: "read", Error: "notifications can only be marked as read"})

func (api *notificationApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	items, err := api.store.ListNotifications(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if items == nil {
		items = []notification.Notification{}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return respond(ctx, http.StatusOK, items)
}

// create stores a notification built by a client, eg. a student's upload telling the teacher.
// The client's id is kept so that its local copy and the stored one stay the same.
func (api *notificationApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var n notification.Notification
	if err := ctx.Bind(&n); err != nil {
		return errors.Wrap(err, "binding to Notification")
	}

	nn := notification.NewNotification{
		Title:      core.CleanString(n.Title),
		Message:    core.CleanString(n.Message),
		Severity:   n.Severity,
		UserID:     n.UserID,
		UserRole:   n.UserRole,
		ActionType: n.ActionType,
		ActionURL:  n.ActionURL,
		Metadata:   n.Metadata,
	}
	if nn.UserID == "" {
		nn.UserID, nn.UserRole = usr.ID, usr.Role
	}
	notifier := newNotifier(ctx.Request().Context(), api.store, api.validator)
	created, err := notifier.add(n.ID, nn)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, created)
}

func (api *notificationApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data ReadUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReadUpdate")
	}
	if !data.Read {
		return errOnlyMarkRead
	}

	id := ctx.Param("id")
	if err := api.checkOwned(ctx.Request().Context(), usr.ID, id); err != nil {
		return err
	}
	n, err := api.store.SetNotificationsRead(ctx.Request().Context(), usr.ID, id)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return respond(ctx, http.StatusOK, UpdatedResponse{Updated: n})
}

// bulkUpdate marks the listed notifications read; ids of other users are ignored.
func (api *notificationApi) bulkUpdate(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data BulkReadUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkReadUpdate")
	}
	if err := api.validator.Struct(data); err != nil {
		return err
	}
	if !data.Read {
		return errOnlyMarkRead
	}

	n, err := api.store.SetNotificationsRead(ctx.Request().Context(), usr.ID, data.IDs...)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return respond(ctx, http.StatusOK, UpdatedResponse{Updated: n})
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.store.DeleteNotification(ctx.Request().Context(), usr.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return respondMessage(ctx, http.StatusOK, "notification deleted")
}

func (api *notificationApi) checkOwned(ctx context.Context, userID, id string) error {
	items, err := api.store.ListNotifications(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	for _, it := range items {
		if it.ID == id {
			return nil
		}
	}
	return errHttpNotFound
}

// notifier stores notifications raised by the backend itself.
type notifier struct {
	ctx       context.Context
	store     database.NotificationStore
	validator *core.Validator
}

var _ notification.Adder = (*notifier)(nil)

func newNotifier(ctx context.Context, store database.NotificationStore, validator *core.Validator) *notifier {
	return &notifier{ctx: ctx, store: store, validator: validator}
}

func (nt *notifier) Add(nn notification.NewNotification) (notification.Notification, error) {
	return nt.add("", nn)
}

func (nt *notifier) add(id string, nn notification.NewNotification) (notification.Notification, error) {
	if err := nt.validator.Struct(nn); err != nil {
		return notification.Notification{}, err
	}
	if nn.UserID == "" {
		return notification.Notification{}, core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: "this field is required"})
	}
	if nn.Severity == "" {
		nn.Severity = notification.SeverityInfo
	}
	if id == "" {
		id = uuid.NewString()
	}

	n := notification.Notification{
		ID:         id,
		Title:      nn.Title,
		Message:    nn.Message,
		Severity:   nn.Severity,
		CreatedAt:  nowFunc().UTC(),
		UserID:     nn.UserID,
		UserRole:   nn.UserRole,
		ActionType: nn.ActionType,
		ActionURL:  nn.ActionURL,
		Metadata:   nn.Metadata,
	}
	if err := nt.store.CreateNotification(nt.ctx, n); err != nil {
		return notification.Notification{}, errors.Wrap(err, "creating notification")
	}
	return n, nil
}

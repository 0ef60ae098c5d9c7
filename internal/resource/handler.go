package resource

import (
	"context"
	"strconv"

	"github.com/Kyz7/desa/internal/response"
	"github.com/Kyz7/desa/internal/store"
	"github.com/gofiber/fiber/v2"
)

// Service is the accessor set every admin-managed entity exposes.
// C is the create payload, U the partial update payload.
type Service[T any, C any, U any] interface {
	List(ctx context.Context, p store.ListParams) (store.Page[T], error)
	Get(ctx context.Context, id uint) (*T, error)
	Create(ctx context.Context, in C) (*T, error)
	Update(ctx context.Context, id uint, in U) (*T, error)
	Delete(ctx context.Context, id uint) error
}

// Handler adapts a Service to JSON endpoints with the standard envelope.
type Handler[T any, C any, U any] struct {
	name    string
	svc     Service[T, C, U]
	spec    store.QuerySpec
	present func(*T) interface{}
}

func New[T any, C any, U any](name string, svc Service[T, C, U], spec store.QuerySpec) *Handler[T, C, U] {
	return &Handler[T, C, U]{name: name, svc: svc, spec: spec}
}

// WithView sets how a record is rendered in responses.
func (h *Handler[T, C, U]) WithView(present func(*T) interface{}) *Handler[T, C, U] {
	h.present = present
	return h
}

func (h *Handler[T, C, U]) view(rec *T) interface{} {
	if h.present == nil {
		return rec
	}
	return h.present(rec)
}

// Mount registers list/get behind read and create/update/delete behind write.
func (h *Handler[T, C, U]) Mount(r fiber.Router, read, write fiber.Handler) {
	r.Get("/", read, h.List)
	r.Get("/:id", read, h.Get)
	r.Post("/", write, h.Create)
	r.Patch("/:id", write, h.Update)
	r.Delete("/:id", write, h.Delete)
}

func (h *Handler[T, C, U]) List(c *fiber.Ctx) error {
	params, page, err := ParseListParams(c, h.spec)
	if err != nil {
		return response.FromError(c, err, h.name)
	}

	result, err := h.svc.List(c.UserContext(), params)
	if err != nil {
		return response.FromError(c, err, h.name)
	}

	items := make([]interface{}, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, h.view(&result.Items[i]))
	}
	return response.SuccessWithMeta(c, items, response.CalculateMeta(page.Page, page.Limit, result.Total), "")
}

func (h *Handler[T, C, U]) Get(c *fiber.Ctx) error {
	id, err := ParseID(c, "id")
	if err != nil {
		return response.FromError(c, err, h.name)
	}
	rec, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err, h.name)
	}
	return response.Success(c, h.view(rec), "")
}

func (h *Handler[T, C, U]) Create(c *fiber.Ctx) error {
	var in C
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	rec, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err, h.name)
	}
	return response.Created(c, h.view(rec), h.name+" created successfully")
}

func (h *Handler[T, C, U]) Update(c *fiber.Ctx) error {
	id, err := ParseID(c, "id")
	if err != nil {
		return response.FromError(c, err, h.name)
	}
	var in U
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	rec, err := h.svc.Update(c.UserContext(), id, in)
	if err != nil {
		return response.FromError(c, err, h.name)
	}
	return response.Success(c, h.view(rec), h.name+" updated successfully")
}

func (h *Handler[T, C, U]) Delete(c *fiber.Ctx) error {
	id, err := ParseID(c, "id")
	if err != nil {
		return response.FromError(c, err, h.name)
	}
	if err := h.svc.Delete(c.UserContext(), id); err != nil {
		return response.FromError(c, err, h.name)
	}
	return response.Success(c, fiber.Map{"id": id}, h.name+" deleted successfully")
}

// ParseID reads a positive numeric route parameter.
func ParseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		return 0, store.Invalid(param, param+" must be a positive integer")
	}
	return uint(id), nil
}

// ParseListParams reads page, limit, sort, search and the whitelisted filters
// of spec from the query string.
func ParseListParams(c *fiber.Ctx, spec store.QuerySpec) (store.ListParams, store.PageRequest, error) {
	page := store.NormalizePage(c.QueryInt("page", 1), c.QueryInt("limit", store.DefaultLimit))

	params := store.ListParams{
		Sort:   c.Query("sort"),
		Search: c.Query("search", c.Query("q")),
		Limit:  page.Limit,
		Offset: page.Offset(),
	}

	fields := store.FieldErrors{}
	for column, kind := range spec.Filters {
		raw := c.Query(column)
		if raw == "" {
			continue
		}
		v, ok := store.ParseFilter(kind, raw)
		if !ok {
			fields[column] = column + " has an invalid value"
			continue
		}
		params.Filters = append(params.Filters, store.Filter{Column: column, Value: v})
	}
	if len(fields) > 0 {
		return params, page, &store.ValidationError{Fields: fields}
	}
	return params, page, nil
}

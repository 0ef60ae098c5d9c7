package store

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FilterKind int

const (
	FilterString FilterKind = iota
	FilterBool
	FilterInt
)

// QuerySpec whitelists what a list request may filter, sort and search on.
type QuerySpec struct {
	Filters       map[string]FilterKind
	Sortable      []string
	DefaultSort   string
	SearchColumns []string
}

func (q QuerySpec) canSort(column string) bool {
	for _, s := range q.Sortable {
		if s == column {
			return true
		}
	}
	return false
}

type Filter struct {
	Column string
	Value  interface{}
}

type ListParams struct {
	Filters []Filter
	Search  string
	Sort    string
	Limit   int
	Offset  int
}

// With returns a copy of p with an extra equality filter.
func (p ListParams) With(column string, value interface{}) ListParams {
	out := p
	out.Filters = append(append([]Filter(nil), p.Filters...), Filter{Column: column, Value: value})
	return out
}

type Page[T any] struct {
	Items []T
	Total int64
}

// Repository is the generic accessor every content entity goes through.
type Repository[T any] struct {
	db   *gorm.DB
	spec QuerySpec
}

func NewRepository[T any](db *gorm.DB, spec QuerySpec) *Repository[T] {
	return &Repository[T]{db: db, spec: spec}
}

func (r *Repository[T]) DB() *gorm.DB {
	return r.db
}

func (r *Repository[T]) List(ctx context.Context, p ListParams) (Page[T], error) {
	q := r.scoped(ctx, p).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Page[T]{}, Translate(err)
	}

	items := make([]T, 0)
	if total == 0 {
		return Page[T]{Items: items, Total: 0}, nil
	}

	find := q.Order(r.order(p.Sort))
	if p.Limit > 0 {
		find = find.Limit(p.Limit).Offset(p.Offset)
	}
	if err := find.Find(&items).Error; err != nil {
		return Page[T]{}, Translate(err)
	}
	return Page[T]{Items: items, Total: total}, nil
}

func (r *Repository[T]) Count(ctx context.Context, filters ...Filter) (int64, error) {
	var total int64
	err := r.scoped(ctx, ListParams{Filters: filters}).Count(&total).Error
	return total, Translate(err)
}

func (r *Repository[T]) Get(ctx context.Context, id uint) (*T, error) {
	var rec T
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, Translate(err)
	}
	return &rec, nil
}

// FindBy loads the first record whose column equals value.
func (r *Repository[T]) FindBy(ctx context.Context, column string, value interface{}) (*T, error) {
	var rec T
	err := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).
		First(&rec).Error
	if err != nil {
		return nil, Translate(err)
	}
	return &rec, nil
}

func (r *Repository[T]) Create(ctx context.Context, rec *T) error {
	return Translate(r.db.WithContext(ctx).Create(rec).Error)
}

// Update applies only the given column changes. A missing id is ErrNotFound.
func (r *Repository[T]) Update(ctx context.Context, id uint, changes Changes) (*T, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		if err := r.db.WithContext(ctx).Model(rec).Updates(map[string]interface{}(changes)).Error; err != nil {
			return nil, Translate(err)
		}
	}
	return r.Get(ctx, id)
}

// Delete removes the record. Deleting something that is already gone is ErrNotFound.
func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository[T]) scoped(ctx context.Context, p ListParams) *gorm.DB {
	q := r.db.WithContext(ctx).Model(new(T))
	for _, f := range p.Filters {
		q = q.Where(clause.Eq{Column: clause.Column{Name: f.Column}, Value: f.Value})
	}

	term := strings.TrimSpace(strings.ToLower(p.Search))
	if term != "" && len(r.spec.SearchColumns) > 0 {
		like := "%" + term + "%"
		exprs := make([]clause.Expression, 0, len(r.spec.SearchColumns))
		for _, col := range r.spec.SearchColumns {
			exprs = append(exprs, clause.Expr{SQL: "LOWER(?) LIKE ?", Vars: []interface{}{clause.Column{Name: col}, like}})
		}
		q = q.Where(clause.Or(exprs...))
	}
	return q
}

func (r *Repository[T]) order(sort string) clause.OrderByColumn {
	sort = strings.TrimSpace(sort)
	desc := strings.HasPrefix(sort, "-")
	column := strings.TrimPrefix(sort, "-")

	if column == "" || !r.spec.canSort(column) {
		column = strings.TrimPrefix(r.spec.DefaultSort, "-")
		desc = strings.HasPrefix(r.spec.DefaultSort, "-")
	}
	if column == "" {
		column, desc = "id", true
	}
	return clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}
}

// Changes is a partial update keyed by column name.
type Changes map[string]interface{}

// Set records a change only when the caller actually sent a value.
func Set[V any](ch Changes, column string, v *V) {
	if v != nil {
		ch[column] = *v
	}
}

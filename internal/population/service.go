package population

import (
	"context"
	"sort"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/sanitize"
	"github.com/Kyz7/desa/internal/store"
	"github.com/Kyz7/desa/internal/validation"
	"gorm.io/gorm"
)

// Categories a statistic row may belong to.
var Categories = []string{"gender", "age_group", "religion", "education", "occupation", "hamlet"}

var QuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"year": store.FilterInt, "category": store.FilterString},
	Sortable:      []string{"year", "category", "sort_order", "label"},
	DefaultSort:   "sort_order",
	SearchColumns: []string{"label"},
}

type CreateInput struct {
	Year        int    `json:"year" validate:"required,min=1900,max=2200"`
	Category    string `json:"category" validate:"required,oneof=gender age_group religion education occupation hamlet"`
	Label       string `json:"label" validate:"required,max=100"`
	MaleCount   int    `json:"male_count" validate:"min=0"`
	FemaleCount int    `json:"female_count" validate:"min=0"`
	SortOrder   int    `json:"sort_order"`
}

type UpdateInput struct {
	Year        *int    `json:"year" validate:"omitempty,min=1900,max=2200"`
	Category    *string `json:"category" validate:"omitempty,oneof=gender age_group religion education occupation hamlet"`
	Label       *string `json:"label" validate:"omitempty,min=1,max=100"`
	MaleCount   *int    `json:"male_count" validate:"omitempty,min=0"`
	FemaleCount *int    `json:"female_count" validate:"omitempty,min=0"`
	SortOrder   *int    `json:"sort_order"`
}

// Row is a statistic with its derived total.
type Row struct {
	models.PopulationStat
	Total int `json:"total"`
}

type Group struct {
	Category string `json:"category"`
	Male     int    `json:"male"`
	Female   int    `json:"female"`
	Total    int    `json:"total"`
	Rows     []Row  `json:"rows"`
}

// Summary aggregates one year. Male, Female and Total come from the gender
// breakdown when present, otherwise from the largest group.
type Summary struct {
	Year   int     `json:"year"`
	Years  []int   `json:"years"`
	Male   int     `json:"male"`
	Female int     `json:"female"`
	Total  int     `json:"total"`
	Groups []Group `json:"groups"`
}

type Service struct {
	repo *store.Repository[models.PopulationStat]
}

func NewService(db *gorm.DB) *Service {
	return &Service{repo: store.NewRepository[models.PopulationStat](db, QuerySpec)}
}

func (s *Service) List(ctx context.Context, p store.ListParams) (store.Page[models.PopulationStat], error) {
	return s.repo.List(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.PopulationStat, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.PopulationStat, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	label := sanitize.Text(in.Label)
	if err := store.Required(map[string]*string{"label": &label}); err != nil {
		return nil, err
	}
	stat := &models.PopulationStat{
		Year:        in.Year,
		Category:    in.Category,
		Label:       label,
		MaleCount:   in.MaleCount,
		FemaleCount: in.FemaleCount,
		SortOrder:   in.SortOrder,
	}
	if err := s.repo.Create(ctx, stat); err != nil {
		return nil, err
	}
	return stat, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.PopulationStat, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	label := sanitize.TextPtr(in.Label)
	if err := store.Required(map[string]*string{"label": label}); err != nil {
		return nil, err
	}
	changes := store.Changes{}
	store.Set(changes, "year", in.Year)
	store.Set(changes, "category", in.Category)
	store.Set(changes, "label", label)
	store.Set(changes, "male_count", in.MaleCount)
	store.Set(changes, "female_count", in.FemaleCount)
	store.Set(changes, "sort_order", in.SortOrder)
	return s.repo.Update(ctx, id, changes)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

// Years lists the years that have data, newest first.
func (s *Service) Years(ctx context.Context) ([]int, error) {
	years := make([]int, 0)
	err := s.repo.DB().WithContext(ctx).Model(&models.PopulationStat{}).
		Distinct("year").Order("year DESC").Pluck("year", &years).Error
	return years, store.Translate(err)
}

// Summarize aggregates the given year, or the latest year when year is 0.
// No data yields an empty summary, not an error.
func (s *Service) Summarize(ctx context.Context, year int) (*Summary, error) {
	years, err := s.Years(ctx)
	if err != nil {
		return nil, err
	}
	out := &Summary{Year: year, Years: years, Groups: make([]Group, 0)}
	if year == 0 {
		if len(years) == 0 {
			return out, nil
		}
		out.Year = years[0]
	}

	page, err := s.repo.List(ctx, store.ListParams{
		Filters: []store.Filter{{Column: "year", Value: out.Year}},
		Sort:    "sort_order",
	})
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	for _, st := range page.Items {
		i, ok := index[st.Category]
		if !ok {
			i = len(out.Groups)
			index[st.Category] = i
			out.Groups = append(out.Groups, Group{Category: st.Category, Rows: make([]Row, 0)})
		}
		g := &out.Groups[i]
		g.Male += st.MaleCount
		g.Female += st.FemaleCount
		g.Total += st.Total()
		g.Rows = append(g.Rows, Row{PopulationStat: st, Total: st.Total()})
	}
	sort.SliceStable(out.Groups, func(a, b int) bool {
		return categoryRank(out.Groups[a].Category) < categoryRank(out.Groups[b].Category)
	})

	if headline := headlineGroup(out.Groups); headline != nil {
		out.Male, out.Female, out.Total = headline.Male, headline.Female, headline.Total
	}
	return out, nil
}

func headlineGroup(groups []Group) *Group {
	var best *Group
	for i := range groups {
		g := &groups[i]
		if g.Category == "gender" {
			return g
		}
		if best == nil || g.Total > best.Total {
			best = g
		}
	}
	return best
}

func categoryRank(c string) int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return len(Categories)
}

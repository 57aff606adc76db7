package repo

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/projects_api/internal/models"
)

// ProjectFilter selects non-deleted projects. An empty OwnerEmail means any
// owner; a non-nil IDs restricts the result to those ids.
type ProjectFilter struct {
	OwnerEmail string
	Active     *bool
	Query      string
	IDs        []uint
	Offset     int
	Limit      int
}

func (r *GormRepo) CreateProject(ctx context.Context, p *models.Project) error {
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// SaveProject writes every column of an existing project.
func (r *GormRepo) SaveProject(ctx context.Context, p *models.Project) error {
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Save(p).Error; err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

func (r *GormRepo) FindProject(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := r.live(ctx).Where("projects.id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *GormRepo) FindOwnedProject(ctx context.Context, id uint, ownerEmail string) (*models.Project, error) {
	var p models.Project
	if err := ownedBy(r.live(ctx), ownerEmail).
		Where("projects.id = ?", id).
		First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *GormRepo) ListProjects(ctx context.Context, f ProjectFilter) ([]models.Project, int64, error) {
	q := r.live(ctx)
	if f.OwnerEmail != "" {
		q = ownedBy(q, f.OwnerEmail)
	}
	if f.Active != nil {
		q = q.Where("projects.active = ?", *f.Active)
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return []models.Project{}, 0, nil
		}
		q = q.Where("projects.id IN ?", f.IDs)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Query)); s != "" {
		like := "%" + s + "%"
		q = q.Where("(LOWER(projects.name) LIKE ? OR LOWER(projects.description) LIKE ?)", like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	var out []models.Project
	page := q.Order("projects.id DESC").Offset(f.Offset)
	if f.Limit > 0 {
		page = page.Limit(f.Limit)
	}
	if err := page.Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	return out, total, nil
}

func (r *GormRepo) live(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Model(&models.Project{}).Where("projects.deleted_at IS NULL")
}

func ownedBy(q *gorm.DB, email string) *gorm.DB {
	return q.Joins("JOIN users ON users.id = projects.user_id").
		Where("LOWER(users.email) = LOWER(?)", email)
}

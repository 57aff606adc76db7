package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Skotchmaster/projects_api/internal/apperr"
	"github.com/Skotchmaster/projects_api/internal/logging"
	"github.com/Skotchmaster/projects_api/internal/models"
	"github.com/Skotchmaster/projects_api/internal/principal"
	"github.com/Skotchmaster/projects_api/internal/repo"
	"github.com/Skotchmaster/projects_api/internal/util"
)

type ProjectStore interface {
	ProjectLookup
	CreateProject(ctx context.Context, p *models.Project) error
	SaveProject(ctx context.Context, p *models.Project) error
	ListProjects(ctx context.Context, f repo.ProjectFilter) ([]models.Project, int64, error)
}

type ProjectSearcher interface {
	IndexProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id uint) error
	SearchIDs(ctx context.Context, query string) ([]uint, error)
}

// ProjectInput is used both for creation and for partial updates; nil
// fields are left untouched on update.
type ProjectInput struct {
	Name        *string
	Description *string
	Value       *float64
	Active      *bool
	StartDate   *time.Time
	EndDate     *time.Time
}

type ListParams struct {
	Active *bool
	Query  string
	Page   int
	Size   int
}

type ProjectPage struct {
	Items []models.Project
	Meta  util.PageMeta
}

type ProjectService struct {
	Store  ProjectStore
	Guard  *Guard
	Search ProjectSearcher
	Now    func() time.Time
}

func (s *ProjectService) Create(ctx context.Context, p principal.Principal, in ProjectInput) (*models.Project, error) {
	fields := map[string]string{}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		fields["name"] = "must not be blank"
	}
	if in.Description == nil || strings.TrimSpace(*in.Description) == "" {
		fields["description"] = "must not be blank"
	}
	if in.StartDate == nil {
		fields["startDate"] = "must not be null"
	}
	validateCommon(in, fields)
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		fields["endDate"] = "must not be before startDate"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(apperr.MsgValidation, fields)
	}

	now := s.now()
	proj := &models.Project{
		UserID:      p.UserID,
		Name:        strings.TrimSpace(*in.Name),
		Description: strings.TrimSpace(*in.Description),
		Active:      true,
		StartDate:   *in.StartDate,
		EndDate:     in.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Value != nil {
		proj.Value = *in.Value
	}
	if in.Active != nil {
		proj.Active = *in.Active
	}

	if err := s.Store.CreateProject(ctx, proj); err != nil {
		return nil, err
	}
	s.index(ctx, proj)
	return proj, nil
}

func (s *ProjectService) Get(ctx context.Context, p principal.Principal, id uint) (*models.Project, error) {
	return s.resolve(ctx, p, id)
}

func (s *ProjectService) Update(ctx context.Context, p principal.Principal, id uint, in ProjectInput) (*models.Project, error) {
	fields := map[string]string{}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		fields["name"] = "must not be blank"
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) == "" {
		fields["description"] = "must not be blank"
	}
	validateCommon(in, fields)
	if len(fields) > 0 {
		return nil, apperr.Validation(apperr.MsgValidation, fields)
	}

	proj, err := s.resolve(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		proj.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		proj.Description = strings.TrimSpace(*in.Description)
	}
	if in.Value != nil {
		proj.Value = *in.Value
	}
	if in.Active != nil {
		proj.Active = *in.Active
	}
	if in.StartDate != nil {
		proj.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		proj.EndDate = in.EndDate
	}
	if proj.EndDate != nil && proj.EndDate.Before(proj.StartDate) {
		return nil, apperr.Validation(apperr.MsgValidation, map[string]string{"endDate": "must not be before startDate"})
	}
	proj.UpdatedAt = s.now()

	if err := s.Store.SaveProject(ctx, proj); err != nil {
		return nil, err
	}
	s.index(ctx, proj)
	return proj, nil
}

// Delete is a soft delete; the project disappears from every lookup.
func (s *ProjectService) Delete(ctx context.Context, p principal.Principal, id uint) error {
	proj, err := s.resolve(ctx, p, id)
	if err != nil {
		return err
	}

	now := s.now()
	proj.DeletedAt = &now
	proj.Active = false
	proj.UpdatedAt = now
	if err := s.Store.SaveProject(ctx, proj); err != nil {
		return err
	}

	if s.Search != nil {
		if err := s.Search.DeleteProject(ctx, proj.ID); err != nil {
			logging.FromContext(ctx).Warn("search_delete_failed", "project_id", proj.ID, "error", err)
		}
	}
	return nil
}

// List shows admins every project and other users only their own.
func (s *ProjectService) List(ctx context.Context, p principal.Principal, params ListParams) (*ProjectPage, error) {
	offset, limit := util.Calculate(params.Page, params.Size)
	f := repo.ProjectFilter{
		Active: params.Active,
		Query:  params.Query,
		Offset: offset,
		Limit:  limit,
	}
	if !p.IsAdmin() {
		f.OwnerEmail = p.Email
	}

	if q := strings.TrimSpace(params.Query); q != "" && s.Search != nil {
		ids, err := s.Search.SearchIDs(ctx, q)
		if err != nil {
			logging.FromContext(ctx).Warn("search_failed", "reason", "falling back to database", "error", err)
		} else {
			f.IDs = ids
			f.Query = ""
		}
	}

	items, total, err := s.Store.ListProjects(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ProjectPage{Items: items, Meta: util.Meta(offset, limit, total)}, nil
}

func (s *ProjectService) resolve(ctx context.Context, p principal.Principal, id uint) (*models.Project, error) {
	res, err := s.Guard.Resolve(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		logging.FromContext(ctx).Warn("project_access_denied", "project_id", id, "outcome", res.Outcome.String())
		return nil, err
	}
	return res.Project, nil
}

func (s *ProjectService) index(ctx context.Context, proj *models.Project) {
	if s.Search == nil {
		return
	}
	if err := s.Search.IndexProject(ctx, proj); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "project_id", proj.ID, "error", err)
	}
}

func (s *ProjectService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Limits count characters, not bytes.
const (
	maxNameLen        = 120
	maxDescriptionLen = 500
)

func validateCommon(in ProjectInput, fields map[string]string) {
	if in.Value != nil && *in.Value < 0 {
		fields["value"] = "must be greater than or equal to 0"
	}
	if in.Name != nil && utf8.RuneCountInString(strings.TrimSpace(*in.Name)) > maxNameLen {
		fields["name"] = fmt.Sprintf("size must be at most %d", maxNameLen)
	}
	if in.Description != nil && utf8.RuneCountInString(strings.TrimSpace(*in.Description)) > maxDescriptionLen {
		fields["description"] = fmt.Sprintf("size must be at most %d", maxDescriptionLen)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/projects_api/internal/apperr"
	"github.com/Skotchmaster/projects_api/internal/models"
	"github.com/Skotchmaster/projects_api/internal/principal"
	"github.com/Skotchmaster/projects_api/internal/search"
)

func ptr[T any](v T) *T { return &v }

type fakeSearcher struct {
	mu      sync.Mutex
	indexed []uint
	deleted []uint
	ids     []uint
	err     error
}

func (f *fakeSearcher) IndexProject(_ context.Context, p *models.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, p.ID)
	return nil
}

func (f *fakeSearcher) DeleteProject(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSearcher) SearchIDs(context.Context, string) ([]uint, error) {
	return f.ids, f.err
}

type projectEnv struct {
	*testEnv
	Projects *ProjectService
	Alice    principal.Principal
	Bob      principal.Principal
	Admin    principal.Principal
}

func newProjectEnv(t *testing.T) *projectEnv {
	t.Helper()
	env := newTestEnv(t)
	ctx := context.Background()

	as := func(email string, role models.Role) principal.Principal {
		u := env.register(t, email)
		if role == models.RoleAdmin {
			require.NoError(t, env.Repo.SetRole(ctx, u.ID, role, env.Clock.Now()))
		}
		return principal.Principal{UserID: u.ID, Email: u.Email, Role: role}
	}

	return &projectEnv{
		testEnv: env,
		Projects: &ProjectService{
			Store: env.Repo,
			Guard: &Guard{Projects: env.Repo},
			Now:   env.Clock.Now,
		},
		Alice: as("alice@x.com", models.RoleUser),
		Bob:   as("bob@x.com", models.RoleUser),
		Admin: as("admin@x.com", models.RoleAdmin),
	}
}

func (e *projectEnv) create(t *testing.T, p principal.Principal, name string) *models.Project {
	t.Helper()
	start := e.Clock.Now()
	proj, err := e.Projects.Create(context.Background(), p, ProjectInput{
		Name:        ptr(name),
		Description: ptr(name + " description"),
		Value:       ptr(1000.0),
		StartDate:   &start,
	})
	require.NoError(t, err)
	return proj
}

func TestGuard_Resolve(t *testing.T) {
	t.Parallel()
	env := newProjectEnv(t)
	ctx := context.Background()
	guard := env.Projects.Guard

	alices := env.create(t, env.Alice, "Solar Farm")
	const missing = uint(424242)

	tests := []struct {
		name string
		who  principal.Principal
		id   uint
		want Outcome
	}{
		{"owner", env.Alice, alices.ID, OutcomeFound},
		{"owner with different email casing", principal.Principal{Email: "ALICE@x.com", Role: models.RoleUser}, alices.ID, OutcomeFound},
		{"other user", env.Bob, alices.ID, OutcomeForbidden},
		{"other user missing id", env.Bob, missing, OutcomeNotFound},
		{"admin", env.Admin, alices.ID, OutcomeFound},
		{"admin missing id", env.Admin, missing, OutcomeNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res, err := guard.Resolve(ctx, tt.id, tt.who)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			if tt.want == OutcomeFound {
				require.NotNil(t, res.Project)
				assert.Equal(t, alices.ID, res.Project.ID)
			} else {
				assert.Nil(t, res.Project)
			}
		})
	}

	assert.ErrorIs(t, Resolution{Outcome: OutcomeForbidden}.Err(), apperr.ErrForbidden)
	assert.ErrorIs(t, Resolution{Outcome: OutcomeNotFound}.Err(), apperr.ErrNotFound)
	assert.NoError(t, Resolution{Outcome: OutcomeFound}.Err())
}

type brokenLookup struct{}

func (brokenLookup) FindProject(context.Context, uint) (*models.Project, error) {
	return nil, errors.New("db down")
}

func (brokenLookup) FindOwnedProject(context.Context, uint, string) (*models.Project, error) {
	return nil, errors.New("db down")
}

func TestGuard_StoreFailure(t *testing.T) {
	t.Parallel()
	g := &Guard{Projects: brokenLookup{}}

	_, err := g.Resolve(context.Background(), 1, principal.Principal{Email: "a@x.com", Role: models.RoleUser})
	require.Error(t, err)
	_, err = g.Resolve(context.Background(), 1, principal.Principal{Email: "a@x.com", Role: models.RoleAdmin})
	require.Error(t, err)
}

func TestProjectService_CreateValidation(t *testing.T) {
	t.Parallel()
	env := newProjectEnv(t)
	start := env.Clock.Now()
	before := start.Add(-24 * time.Hour)

	_, err := env.Projects.Create(context.Background(), env.Alice, ProjectInput{
		Name:      ptr("  "),
		Value:     ptr(-1.0),
		StartDate: &start,
		EndDate:   &before,
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, []string{"description", "endDate", "name", "value"}, sortedKeys(ae.Fields))

	_, err = env.Projects.Create(context.Background(), env.Alice, ProjectInput{Name: ptr("x"), Description: ptr("y")})
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.True(t, errors.As(err, &ae))
	assert.Contains(t, ae.Fields, "startDate")
}

func TestProjectService_LengthLimitsCountCharacters(t *testing.T) {
	t.Parallel()
	env := newProjectEnv(t)
	ctx := context.Background()
	start := env.Clock.Now()

	name := strings.Repeat("é", 120)
	proj, err := env.Projects.Create(ctx, env.Alice, ProjectInput{Name: &name, Description: ptr("ok"), StartDate: &start})
	require.NoError(t, err, "120 two-byte characters fit")
	assert.Equal(t, name, proj.Name)

	tests := []struct {
		name  string
		in    ProjectInput
		field string
	}{
		{"name too long", ProjectInput{Name: ptr(strings.Repeat("é", 121))}, "name"},
		{"description too long", ProjectInput{Description: ptr(strings.Repeat("d", 501))}, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Projects.Update(ctx, env.Alice, proj.ID, tt.in)
			require.ErrorIs(t, err, apperr.ErrValidation)
			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Contains(t, ae.Fields, tt.field)
		})
	}
}

func TestProjectService_CreateGetUpdate(t *testing.T) {
	t.Parallel()
	env := newProjectEnv(t)
	ctx := context.Background()

	proj := env.create(t, env.Alice, "Solar Farm")
	assert.Equal(t, env.Alice.UserID, proj.UserID)
	assert.True(t, proj.Active)
	assert.True(t, env.Clock.Now().Equal(proj.CreatedAt))

	got, err := env.Projects.Get(ctx, env.Alice, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, "Solar Farm", got.Name)

	_, err = env.Projects.Get(ctx, env.Bob, proj.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	env.Clock.Advance(time.Hour)
	updated, err := env.Projects.Update(ctx, env.Alice, proj.ID, ProjectInput{Name: ptr("Solar Farm II"), Active: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Solar Farm II", updated.Name)
	assert.Equal(t, "Solar Farm description", updated.Description)
	assert.False(t, updated.Active)
	assert.True(t, env.Clock.Now().Equal(updated.UpdatedAt))
	assert.True(t, proj.CreatedAt.Equal(updated.CreatedAt))

	_, err = env.Projects.Update(ctx, env.Bob, proj.ID, ProjectInput{Name: ptr("stolen")})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	early := proj.StartDate.Add(-time.Hour)
	_, err = env.Projects.Update(ctx, env.Alice, proj.ID, ProjectInput{EndDate: &early})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.Projects.Update(ctx, env.Admin, proj.ID, ProjectInput{Value: ptr(5.0)})
	require.NoError(t, err, "admins may mutate any project")
}

func TestProjectService_SoftDelete(t *testing.T) {
	t.Parallel()
	env := newProjectEnv(t)
	ctx := context.Background()
	idx := &fakeSearcher{}
	env.Projects.Search = idx

	proj := env.create(t, env.Alice, "Bridge")

	require.ErrorIs(t, env.Projects.Delete(ctx, env.Bob, proj.ID), apperr.ErrForbidden)
	require.NoError(t, env.Projects.Delete(ctx, env.Alice, proj.ID))

	_, err := env.Projects.Get(ctx, env.Alice, proj.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = env.Projects.Get(ctx, env.Admin, proj.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = env.Projects.Get(ctx, env.Bob, proj.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound, "deleted projects are invisible, not forbidden")
	require.ErrorIs(t, env.Projects.Delete(ctx, env.Alice, proj.ID), apperr.ErrNotFound)

	page, err := env.Projects.List(ctx, env.Admin, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	assert.Equal(t, []uint{proj.ID}, idx.indexed)
	assert.Equal(t, []uint{proj.ID}, idx.deleted)
}

func TestProjectService_List(t *testing.T) {
	t.Parallel()
	env := newProjectEnv(t)
	ctx := context.Background()

	a1 := env.create(t, env.Alice, "Solar Farm")
	a2 := env.create(t, env.Alice, "Wind Park")
	b1 := env.create(t, env.Bob, "Solar Roof")
	_, err := env.Projects.Update(ctx, env.Alice, a2.ID, ProjectInput{Active: ptr(false)})
	require.NoError(t, err)

	ids := func(items []models.Project) []uint {
		out := make([]uint, 0, len(items))
		for _, p := range items {
			out = append(out, p.ID)
		}
		return out
	}

	page, err := env.Projects.List(ctx, env.Alice, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []uint{a2.ID, a1.ID}, ids(page.Items))
	assert.EqualValues(t, 2, page.Meta.Total)
	assert.Equal(t, 20, page.Meta.Size)

	page, err = env.Projects.List(ctx, env.Admin, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []uint{b1.ID, a2.ID, a1.ID}, ids(page.Items))

	page, err = env.Projects.List(ctx, env.Admin, ListParams{Active: ptr(true), Query: "solar"})
	require.NoError(t, err)
	assert.Equal(t, []uint{b1.ID, a1.ID}, ids(page.Items))

	page, err = env.Projects.List(ctx, env.Bob, ListParams{Query: "solar"})
	require.NoError(t, err)
	assert.Equal(t, []uint{b1.ID}, ids(page.Items))

	page, err = env.Projects.List(ctx, env.Admin, ListParams{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint{a1.ID}, ids(page.Items))
	assert.True(t, page.Meta.HasPrev)
	assert.False(t, page.Meta.HasNext)
	assert.EqualValues(t, 2, page.Meta.TotalPages)
}

func TestProjectService_ListUsesSearchIndex(t *testing.T) {
	t.Parallel()
	env := newProjectEnv(t)
	ctx := context.Background()

	a1 := env.create(t, env.Alice, "Solar Farm")
	b1 := env.create(t, env.Bob, "Solar Roof")

	idx := &fakeSearcher{ids: []uint{b1.ID, a1.ID}}
	env.Projects.Search = idx

	page, err := env.Projects.List(ctx, env.Alice, ListParams{Query: "solr"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "index hits are still filtered by ownership")
	assert.Equal(t, a1.ID, page.Items[0].ID)

	idx.err = errors.New("es down")
	page, err = env.Projects.List(ctx, env.Alice, ListParams{Query: "solar"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "falls back to the database")

	idx.ids, idx.err = nil, fmt.Errorf("%w: 5000", search.ErrTooManyHits)
	page, err = env.Projects.List(ctx, env.Admin, ListParams{Query: "solar"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Meta.Total, "a truncated hit list is not trusted")
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package service

import (
	"context"
	"errors"

	"github.com/Skotchmaster/projects_api/internal/apperr"
	"github.com/Skotchmaster/projects_api/internal/models"
	"github.com/Skotchmaster/projects_api/internal/principal"
	"github.com/Skotchmaster/projects_api/internal/repo"
)

type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeNotFound
	OutcomeForbidden
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Resolution is the result of an ownership check. Project is set only for
// OutcomeFound.
type Resolution struct {
	Project *models.Project
	Outcome Outcome
}

// Err maps a negative outcome to its apperr kind.
func (r Resolution) Err() error {
	switch r.Outcome {
	case OutcomeNotFound:
		return apperr.NotFound(apperr.MsgProjectNotFound)
	case OutcomeForbidden:
		return apperr.Forbidden(apperr.MsgProjectForbidden)
	default:
		return nil
	}
}

type ProjectLookup interface {
	FindProject(ctx context.Context, id uint) (*models.Project, error)
	FindOwnedProject(ctx context.Context, id uint, ownerEmail string) (*models.Project, error)
}

type Guard struct {
	Projects ProjectLookup
}

// Resolve authorizes p against project id among non-deleted projects.
// Admins never get OutcomeForbidden. Only store failures are returned as
// errors.
func (g *Guard) Resolve(ctx context.Context, id uint, p principal.Principal) (Resolution, error) {
	if p.IsAdmin() {
		return g.lookup(ctx, id)
	}

	owned, err := g.Projects.FindOwnedProject(ctx, id, p.Email)
	if err == nil {
		return Resolution{Project: owned, Outcome: OutcomeFound}, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return Resolution{}, err
	}

	res, err := g.lookup(ctx, id)
	if err != nil {
		return Resolution{}, err
	}
	if res.Outcome == OutcomeFound {
		return Resolution{Outcome: OutcomeForbidden}, nil
	}
	return res, nil
}

func (g *Guard) lookup(ctx context.Context, id uint) (Resolution, error) {
	proj, err := g.Projects.FindProject(ctx, id)
	switch {
	case err == nil:
		return Resolution{Project: proj, Outcome: OutcomeFound}, nil
	case errors.Is(err, repo.ErrNotFound):
		return Resolution{Outcome: OutcomeNotFound}, nil
	default:
		return Resolution{}, err
	}
}

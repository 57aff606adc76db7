package transport

import (
	"time"

	"github.com/Skotchmaster/projects_api/internal/models"
	"github.com/Skotchmaster/projects_api/internal/util"
)

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	AccessToken             string `json:"accessToken"`
	TokenType               string `json:"tokenType"`
	AccessExpiresInSeconds  int64  `json:"accessExpiresInSeconds"`
	RefreshToken            string `json:"refreshToken"`
	RefreshExpiresInSeconds int64  `json:"refreshExpiresInSeconds"`
}

// ProjectRequest is shared by create and partial update. Dates use the
// 2006-01-02 layout.
type ProjectRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Value       *float64 `json:"value"`
	Active      *bool    `json:"active"`
	StartDate   *Date    `json:"startDate"`
	EndDate     *Date    `json:"endDate"`
}

type ProjectResponse struct {
	ID          uint      `json:"id"`
	OwnerID     uint      `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Value       float64   `json:"value"`
	Active      bool      `json:"active"`
	StartDate   Date      `json:"startDate"`
	EndDate     *Date     `json:"endDate,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ProjectListResponse struct {
	Items []ProjectResponse `json:"items"`
	Meta  util.PageMeta     `json:"meta"`
}

func NewProjectResponse(p *models.Project) ProjectResponse {
	out := ProjectResponse{
		ID:          p.ID,
		OwnerID:     p.UserID,
		Name:        p.Name,
		Description: p.Description,
		Value:       p.Value,
		Active:      p.Active,
		StartDate:   Date{p.StartDate},
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.EndDate != nil {
		out.EndDate = &Date{*p.EndDate}
	}
	return out
}

func NewProjectListResponse(items []models.Project, meta util.PageMeta) ProjectListResponse {
	out := ProjectListResponse{Items: make([]ProjectResponse, 0, len(items)), Meta: meta}
	for i := range items {
		out.Items = append(out.Items, NewProjectResponse(&items[i]))
	}
	return out
}

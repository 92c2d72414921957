package service

import (
	"errors"
	"strings"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultWorkspaceName = "Personal"

// AuthService maps Auth0 identities to the workspace that owns their data
type AuthService struct {
	userRepo      domain.UserRepository
	workspaceRepo domain.WorkspaceRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo domain.UserRepository, workspaceRepo domain.WorkspaceRepository) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		workspaceRepo: workspaceRepo,
	}
}

// AuthResult represents the result of an authentication operation
type AuthResult struct {
	User      *domain.User
	Workspace *domain.Workspace
	IsNewUser bool
}

// AuthenticateUser registers the identity on first login and returns its workspace.
// Repeated calls are idempotent.
func (s *AuthService) AuthenticateUser(auth0ID, email string, name, pictureURL *string) (*AuthResult, error) {
	if strings.TrimSpace(auth0ID) == "" {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.userRepo.CreateOrGetByAuth0ID(auth0ID, email, name, pictureURL)
	if err != nil {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to create or get user")
		return nil, err
	}

	workspace, err := s.workspaceRepo.GetByUserID(user.ID)
	if err == nil {
		return &AuthResult{User: user, Workspace: workspace}, nil
	}
	if !errors.Is(err, domain.ErrWorkspaceNotFound) {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to get workspace")
		return nil, err
	}

	workspace, err = s.workspaceRepo.Create(&domain.Workspace{UserID: user.ID, Name: defaultWorkspaceName})
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to create default workspace")
		return nil, err
	}
	log.Info().Str("user_id", user.ID.String()).Int32("workspace_id", workspace.ID).Msg("Created workspace for new user")

	return &AuthResult{User: user, Workspace: workspace, IsNewUser: true}, nil
}

// ResolveWorkspaceID returns the workspace owning the data of an Auth0 identity
func (s *AuthService) ResolveWorkspaceID(auth0ID string) (int32, error) {
	workspace, err := s.workspaceRepo.GetByUserAuth0ID(auth0ID)
	if err != nil {
		return 0, err
	}
	return workspace.ID, nil
}

// GetWorkspaceByUserID retrieves a user's workspace
func (s *AuthService) GetWorkspaceByUserID(userID uuid.UUID) (*domain.Workspace, error) {
	return s.workspaceRepo.GetByUserID(userID)
}

// GetUserByAuth0ID retrieves the user registered for an Auth0 identity
func (s *AuthService) GetUserByAuth0ID(auth0ID string) (*domain.User, error) {
	return s.userRepo.GetByAuth0ID(auth0ID)
}

// GetWorkspaceByAuth0ID retrieves the workspace of an Auth0 identity
func (s *AuthService) GetWorkspaceByAuth0ID(auth0ID string) (*domain.Workspace, error) {
	return s.workspaceRepo.GetByUserAuth0ID(auth0ID)
}

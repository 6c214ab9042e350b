package containers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Service handles container business logic
type Service struct {
	repo *Repository
	log  *slog.Logger
}

// NewService creates a new containers service
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(logger.Scope("containers.svc")),
	}
}

// List returns all containers
func (s *Service) List(ctx context.Context) (*ListResult, error) {
	result, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return result, nil
}

// GetByID returns a container or a not-found error
func (s *Service) GetByID(ctx context.Context, containerID string) (*Container, error) {
	container, err := s.repo.GetByID(ctx, containerID)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	if container == nil {
		return nil, apperror.ErrContainerNotFound
	}
	return container, nil
}

// Resolve looks a container up by ID or name
func (s *Service) Resolve(ctx context.Context, idOrName string) (*Container, error) {
	if _, err := uuid.Parse(idOrName); err == nil {
		return s.GetByID(ctx, idOrName)
	}

	container, err := s.repo.GetByName(ctx, idOrName)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	if container == nil {
		return nil, apperror.ErrContainerNotFound
	}
	return container, nil
}

// Create validates and creates a new container
func (s *Service) Create(ctx context.Context, req CreateContainerRequest) (*Container, error) {
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if !ValidName(name) {
		return nil, apperror.ErrValidation.WithMessage(
			"Container name must be 2-64 characters of lower-case letters, digits and hyphens, starting and ending with a letter or digit")
	}

	now := time.Now().UTC()
	container := &Container{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, container); err != nil {
		return nil, err
	}

	s.log.Info("container created",
		slog.String("id", container.ID),
		slog.String("name", container.Name))
	return container, nil
}

// Update applies an update to a container
func (s *Service) Update(ctx context.Context, containerID string, req UpdateContainerRequest) (*Container, error) {
	container, err := s.repo.Update(ctx, containerID, req.Description)
	if err != nil {
		return nil, err
	}
	if container == nil {
		return nil, apperror.ErrContainerNotFound
	}
	return container, nil
}

// Delete removes a container. Deletion is refused while the container
// still holds documents or folders.
func (s *Service) Delete(ctx context.Context, containerID string) error {
	documents, folders, err := s.repo.CountContents(ctx, containerID)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	if documents > 0 || folders > 0 {
		return apperror.ErrConflict.WithMessage("Container is not empty; delete its documents and folders first")
	}

	deleted, err := s.repo.Delete(ctx, containerID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperror.ErrContainerNotFound
	}

	s.log.Info("container deleted", slog.String("id", containerID))
	return nil
}

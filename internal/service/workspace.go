package service

import (
	"context"
	"fmt"

	"github.com/target/engage-api/internal/core"
	"github.com/target/engage-api/internal/domain/model"
)

// WorkspaceServiceOptions groups dependencies for WorkspaceService.
type WorkspaceServiceOptions struct {
	Workspaces core.WorkspaceRepository
	Customers  core.CustomerRepository
}

// WorkspaceService manages workspaces and the customers inside them.
type WorkspaceService struct {
	workspaces core.WorkspaceRepository
	customers  core.CustomerRepository
}

// NewWorkspaceService constructs a new WorkspaceService.
func NewWorkspaceService(opts WorkspaceServiceOptions) *WorkspaceService {
	return &WorkspaceService{workspaces: opts.Workspaces, customers: opts.Customers}
}

// Create validates and creates a workspace.
func (s *WorkspaceService) Create(ctx context.Context, req model.CreateWorkspaceRequest) (*model.Workspace, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ws, err := s.workspaces.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return ws, nil
}

// Get returns a workspace by id.
func (s *WorkspaceService) Get(ctx context.Context, id string) (*model.Workspace, error) {
	return s.workspaces.GetByID(ctx, id)
}

// CreateCustomer validates and creates a customer in an existing workspace.
func (s *WorkspaceService) CreateCustomer(
	ctx context.Context,
	req model.CreateCustomerRequest,
) (*model.Customer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.workspaces.GetByID(ctx, req.WorkspaceID); err != nil {
		return nil, err
	}
	c, err := s.customers.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

// GetCustomer returns a customer of a workspace.
func (s *WorkspaceService) GetCustomer(ctx context.Context, workspaceID, id string) (*model.Customer, error) {
	return s.customers.GetByID(ctx, workspaceID, id)
}

package service

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/access-portal/internal/config"
	"github.com/spec-kit/access-portal/internal/domain"
	"github.com/spec-kit/access-portal/internal/events"
	"github.com/spec-kit/access-portal/internal/repository"
	apperrors "github.com/spec-kit/access-portal/pkg/util"
)

// RequestService coordinates access request workflows.
type RequestService struct {
	requests   repository.RequestRepository
	accounts   repository.AccountRepository
	catalog    config.CatalogConfig
	dispatcher events.Dispatcher
}

// RequestDependencies bundles repositories for the request service.
type RequestDependencies struct {
	RequestRepo repository.RequestRepository
	AccountRepo repository.AccountRepository
	Dispatcher  events.Dispatcher
}

// NewRequestService constructs the service.
func NewRequestService(catalog config.CatalogConfig, deps RequestDependencies) *RequestService {
	return &RequestService{
		requests:   deps.RequestRepo,
		accounts:   deps.AccountRepo,
		catalog:    catalog,
		dispatcher: deps.Dispatcher,
	}
}

// SubmitInput describes an access request submission.
type SubmitInput struct {
	Identifier        string
	RoleClass         domain.RoleClass
	Models            []string
	PromptsPerDay     int
	TokensPerResponse int
	Justification     string
}

// Validate runs validation rules. Submissions that fail never reach storage.
func (in SubmitInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Identifier, validation.Required),
		validation.Field(&in.RoleClass, validation.Required),
		validation.Field(&in.Models, validation.Required, validation.Length(1, 0)),
		validation.Field(&in.PromptsPerDay, validation.Required, validation.Min(1)),
		validation.Field(&in.TokensPerResponse, validation.Required, validation.Min(1)),
		validation.Field(&in.Justification, validation.Required),
	)
}

// StatusState is the resolution of a requester's latest access request.
type StatusState string

const (
	StatusNone     StatusState = "none"
	StatusPending  StatusState = "pending"
	StatusApproved StatusState = "approved"
)

// StatusResult carries the resolution plus the underlying request when one exists.
type StatusResult struct {
	State   StatusState
	Request *domain.AccessRequest
}

// Catalog returns the available model set and default quota values used to
// populate the request form.
func (s *RequestService) Catalog(_ context.Context) domain.Catalog {
	return domain.Catalog{
		Models:               s.catalog.Models,
		DefaultPromptsPerDay: s.catalog.DefaultPromptsPerDay,
		MaxTokensPerResponse: s.catalog.MaxTokensPerResponse,
	}
}

// Submit creates a pending access request. Resubmitting while a request is
// already pending replaces it wholesale, so at most one pending request
// exists per identifier.
func (s *RequestService) Submit(ctx context.Context, input SubmitInput) (*domain.AccessRequest, error) {
	if err := input.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	resubmission := false
	if existing, err := s.requests.GetLatestByIdentifier(ctx, input.Identifier); err == nil {
		resubmission = existing.Status == domain.RequestStatusPending
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	req := &domain.AccessRequest{
		ID:                         uuid.NewString(),
		Identifier:                 input.Identifier,
		RoleClass:                  input.RoleClass,
		RequestedModels:            input.Models,
		RequestedPromptsPerDay:     input.PromptsPerDay,
		RequestedTokensPerResponse: input.TokensPerResponse,
		Justification:              input.Justification,
		Status:                     domain.RequestStatusPending,
	}
	if err := s.requests.Upsert(ctx, req); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:       events.EventRequestSubmitted,
		RequestID:  req.ID,
		Identifier: req.Identifier,
		Payload: events.RequestSubmittedPayload{
			RoleClass:       req.RoleClass,
			RequestedModels: req.RequestedModels,
			Resubmission:    resubmission,
		},
	})
	return req, nil
}

// Status resolves the latest access request for an identifier.
func (s *RequestService) Status(ctx context.Context, identifier string) (*StatusResult, error) {
	req, err := s.requests.GetLatestByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &StatusResult{State: StatusNone}, nil
		}
		return nil, err
	}

	state := StatusPending
	if req.Status == domain.RequestStatusApproved {
		state = StatusApproved
	}
	return &StatusResult{State: state, Request: req}, nil
}

// ListPending returns pending requests, most recent first.
func (s *RequestService) ListPending(ctx context.Context) ([]*domain.AccessRequest, error) {
	return s.requests.ListPending(ctx)
}

// ApproveOne transitions a pending request to approved with the given
// allocation and mirrors the grant onto the requester's account.
func (s *RequestService) ApproveOne(ctx context.Context, requestID string, alloc domain.Allocation, approver string) (*domain.AccessRequest, error) {
	if err := validateAllocation(alloc); err != nil {
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("access request", map[string]any{"id": requestID})
		}
		return nil, err
	}
	if req.Status == domain.RequestStatusApproved {
		return nil, apperrors.NewConflict("request already approved", map[string]any{"id": requestID})
	}

	now := time.Now()
	req.Status = domain.RequestStatusApproved
	req.Allocation = &alloc
	req.ApprovedBy = &approver
	req.ApprovedAt = &now
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}

	if err := s.mirrorApproval(ctx, req.Identifier, alloc); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:       events.EventRequestApproved,
		RequestID:  req.ID,
		Identifier: req.Identifier,
		Payload: events.RequestApprovedPayload{
			ApprovedBy: approver,
			Allocation: alloc,
		},
	})
	return req, nil
}

// EditAllocation replaces the allocation of an approved request and mirrors
// the change onto the account.
func (s *RequestService) EditAllocation(ctx context.Context, requestID string, alloc domain.Allocation, editor string) (*domain.AccessRequest, error) {
	if err := validateAllocation(alloc); err != nil {
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("access request", map[string]any{"id": requestID})
		}
		return nil, err
	}
	if req.Status != domain.RequestStatusApproved {
		return nil, apperrors.NewConflict("request not yet approved", map[string]any{"id": requestID})
	}

	old := *req.Allocation
	req.Allocation = &alloc
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}

	if err := s.mirrorApproval(ctx, req.Identifier, alloc); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:       events.EventAllocationChanged,
		RequestID:  req.ID,
		Identifier: req.Identifier,
		Payload: events.AllocationChangedPayload{
			EditedBy:      editor,
			OldAllocation: old,
			NewAllocation: alloc,
		},
	})
	return req, nil
}

// ApproveAll approves every pending request, granting each exactly what it
// asked for. Returns the number approved.
func (s *RequestService) ApproveAll(ctx context.Context, approver string) (int, error) {
	return s.approveBulk(ctx, approver, func(*domain.AccessRequest) bool { return true })
}

// ApproveByRoleClass approves every pending request from the given role class.
func (s *RequestService) ApproveByRoleClass(ctx context.Context, roleClass domain.RoleClass, approver string) (int, error) {
	return s.approveBulk(ctx, approver, func(req *domain.AccessRequest) bool {
		return req.RoleClass == roleClass
	})
}

func (s *RequestService) approveBulk(ctx context.Context, approver string, match func(*domain.AccessRequest) bool) (int, error) {
	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		return 0, err
	}

	approved := 0
	for _, req := range pending {
		if !match(req) {
			continue
		}
		alloc := domain.Allocation{
			Models:            req.RequestedModels,
			PromptsPerDay:     req.RequestedPromptsPerDay,
			TokensPerResponse: req.RequestedTokensPerResponse,
		}
		if _, err := s.ApproveOne(ctx, req.ID, alloc, approver); err != nil {
			return approved, err
		}
		approved++
	}
	return approved, nil
}

func (s *RequestService) mirrorApproval(ctx context.Context, identifier string, alloc domain.Allocation) error {
	account, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}
	account.IsApproved = true
	account.IsNewUser = false
	account.Allocation = &alloc
	return s.accounts.Update(ctx, account)
}

func (s *RequestService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}

func validateAllocation(alloc domain.Allocation) error {
	if len(alloc.Models) == 0 {
		return apperrors.NewValidationError("allocation requires at least one model", nil)
	}
	if alloc.PromptsPerDay <= 0 || alloc.TokensPerResponse <= 0 {
		return apperrors.NewValidationError("allocation quotas must be positive", nil)
	}
	return nil
}

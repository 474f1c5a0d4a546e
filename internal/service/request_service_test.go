package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/access-portal/internal/config"
	"github.com/spec-kit/access-portal/internal/domain"
	"github.com/spec-kit/access-portal/internal/events"
	apperrors "github.com/spec-kit/access-portal/pkg/util"
)

func testCatalog() config.CatalogConfig {
	return config.CatalogConfig{
		Models:               []string{"gpt-a", "gpt-b"},
		DefaultPromptsPerDay: 10,
		MaxTokensPerResponse: 1500,
	}
}

func newRequestService(t *testing.T) (*RequestService, *fakeRequestRepo, *fakeAccountRepo, *recordingDispatcher) {
	t.Helper()
	requests := newFakeRequestRepo()
	accounts := newFakeAccountRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewRequestService(testCatalog(), RequestDependencies{
		RequestRepo: requests,
		AccountRepo: accounts,
		Dispatcher:  dispatcher,
	})
	return svc, requests, accounts, dispatcher
}

func validSubmit(identifier string) SubmitInput {
	return SubmitInput{
		Identifier:        identifier,
		RoleClass:         domain.RoleClass("3"),
		Models:            []string{"gpt-a"},
		PromptsPerDay:     10,
		TokensPerResponse: 1500,
		Justification:     "need access for evaluation work",
	}
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var derr *apperrors.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, code, derr.Code)
}

func TestCatalogServesConfiguredValues(t *testing.T) {
	svc, _, _, _ := newRequestService(t)

	catalog := svc.Catalog(context.Background())
	assert.Equal(t, []string{"gpt-a", "gpt-b"}, catalog.Models)
	assert.Equal(t, 10, catalog.DefaultPromptsPerDay)
	assert.Equal(t, 1500, catalog.MaxTokensPerResponse)
}

func TestSubmitValidationRejectsBeforeStorage(t *testing.T) {
	svc, requests, _, dispatcher := newRequestService(t)

	cases := []struct {
		name   string
		mutate func(*SubmitInput)
	}{
		{"no models", func(in *SubmitInput) { in.Models = nil }},
		{"empty justification", func(in *SubmitInput) { in.Justification = "" }},
		{"zero prompts per day", func(in *SubmitInput) { in.PromptsPerDay = 0 }},
		{"negative tokens per response", func(in *SubmitInput) { in.TokensPerResponse = -5 }},
		{"missing identifier", func(in *SubmitInput) { in.Identifier = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validSubmit("U1")
			tc.mutate(&input)

			req, err := svc.Submit(context.Background(), input)
			assert.Nil(t, req)
			assertDomainCode(t, err, "VALIDATION_FAILED")
		})
	}

	assert.Empty(t, requests.requests)
	assert.Empty(t, dispatcher.events)
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	svc, _, _, dispatcher := newRequestService(t)

	req, err := svc.Submit(context.Background(), validSubmit("U1"))
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
	assert.Nil(t, req.Allocation)
	assert.Nil(t, req.ApprovedAt)

	submitted := dispatcher.byType(events.EventRequestSubmitted)
	require.Len(t, submitted, 1)
	payload, ok := submitted[0].Payload.(events.RequestSubmittedPayload)
	require.True(t, ok)
	assert.False(t, payload.Resubmission)
}

func TestResubmitReplacesPendingRequest(t *testing.T) {
	svc, requests, _, dispatcher := newRequestService(t)

	first, err := svc.Submit(context.Background(), validSubmit("U1"))
	require.NoError(t, err)

	second := validSubmit("U1")
	second.Models = []string{"gpt-a", "gpt-b"}
	second.PromptsPerDay = 25
	replaced, err := svc.Submit(context.Background(), second)
	require.NoError(t, err)

	// the pending slot is overwritten, keeping a single request
	assert.Equal(t, first.ID, replaced.ID)

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, []string{"gpt-a", "gpt-b"}, pending[0].RequestedModels)
	assert.Equal(t, 25, pending[0].RequestedPromptsPerDay)
	assert.Len(t, requests.requests, 1)

	submitted := dispatcher.byType(events.EventRequestSubmitted)
	require.Len(t, submitted, 2)
	payload := submitted[1].Payload.(events.RequestSubmittedPayload)
	assert.True(t, payload.Resubmission)
}

func TestStatusResolution(t *testing.T) {
	svc, _, accounts, _ := newRequestService(t)
	seedAccount(t, accounts, "U1", domain.RoleClass("3"), "p", nil)

	status, err := svc.Status(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, StatusNone, status.State)
	assert.Nil(t, status.Request)

	req, err := svc.Submit(context.Background(), validSubmit("U1"))
	require.NoError(t, err)

	status, err = svc.Status(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status.State)
	require.NotNil(t, status.Request)
	assert.Equal(t, req.ID, status.Request.ID)

	_, err = svc.ApproveOne(context.Background(), req.ID, domain.Allocation{
		Models:            []string{"gpt-a"},
		PromptsPerDay:     10,
		TokensPerResponse: 1500,
	}, "root")
	require.NoError(t, err)

	status, err = svc.Status(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, status.State)
}

func TestApproveOneGrantsAllocationAndMirrorsAccount(t *testing.T) {
	svc, _, accounts, dispatcher := newRequestService(t)
	seedAccount(t, accounts, "U1", domain.RoleClass("3"), "p", nil)

	req, err := svc.Submit(context.Background(), validSubmit("U1"))
	require.NoError(t, err)

	alloc := domain.Allocation{
		Models:            []string{"gpt-a"},
		PromptsPerDay:     10,
		TokensPerResponse: 1500,
	}
	approved, err := svc.ApproveOne(context.Background(), req.ID, alloc, "root")
	require.NoError(t, err)

	assert.Equal(t, domain.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.Allocation)
	assert.Equal(t, alloc, *approved.Allocation)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "root", *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)

	account, err := accounts.GetByIdentifier(context.Background(), "U1")
	require.NoError(t, err)
	assert.True(t, account.IsApproved)
	assert.False(t, account.IsNewUser)
	require.NotNil(t, account.Allocation)
	assert.Equal(t, alloc, *account.Allocation)

	assert.Len(t, dispatcher.byType(events.EventRequestApproved), 1)
}

func TestApproveOneRejectsAlreadyApproved(t *testing.T) {
	svc, _, accounts, _ := newRequestService(t)
	seedAccount(t, accounts, "U1", domain.RoleClass("3"), "p", nil)

	req, err := svc.Submit(context.Background(), validSubmit("U1"))
	require.NoError(t, err)

	alloc := domain.Allocation{Models: []string{"gpt-a"}, PromptsPerDay: 10, TokensPerResponse: 1500}
	_, err = svc.ApproveOne(context.Background(), req.ID, alloc, "root")
	require.NoError(t, err)

	_, err = svc.ApproveOne(context.Background(), req.ID, alloc, "root")
	assertDomainCode(t, err, "CONFLICT")
}

func TestApproveOneUnknownRequest(t *testing.T) {
	svc, _, _, _ := newRequestService(t)

	alloc := domain.Allocation{Models: []string{"gpt-a"}, PromptsPerDay: 10, TokensPerResponse: 1500}
	_, err := svc.ApproveOne(context.Background(), "missing", alloc, "root")
	assertDomainCode(t, err, "NOT_FOUND")
}

func TestApproveOneRejectsInvalidAllocation(t *testing.T) {
	svc, _, accounts, _ := newRequestService(t)
	seedAccount(t, accounts, "U1", domain.RoleClass("3"), "p", nil)

	req, err := svc.Submit(context.Background(), validSubmit("U1"))
	require.NoError(t, err)

	_, err = svc.ApproveOne(context.Background(), req.ID, domain.Allocation{PromptsPerDay: 10, TokensPerResponse: 1500}, "root")
	assertDomainCode(t, err, "VALIDATION_FAILED")

	status, err := svc.Status(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status.State)
}

func TestEditAllocationRequiresApprovedRequest(t *testing.T) {
	svc, _, accounts, _ := newRequestService(t)
	seedAccount(t, accounts, "U1", domain.RoleClass("3"), "p", nil)

	req, err := svc.Submit(context.Background(), validSubmit("U1"))
	require.NoError(t, err)

	alloc := domain.Allocation{Models: []string{"gpt-b"}, PromptsPerDay: 5, TokensPerResponse: 800}
	_, err = svc.EditAllocation(context.Background(), req.ID, alloc, "root")
	assertDomainCode(t, err, "CONFLICT")
}

func TestEditAllocationReplacesGrant(t *testing.T) {
	svc, _, accounts, dispatcher := newRequestService(t)
	seedAccount(t, accounts, "U1", domain.RoleClass("3"), "p", nil)

	req, err := svc.Submit(context.Background(), validSubmit("U1"))
	require.NoError(t, err)

	initial := domain.Allocation{Models: []string{"gpt-a"}, PromptsPerDay: 10, TokensPerResponse: 1500}
	_, err = svc.ApproveOne(context.Background(), req.ID, initial, "root")
	require.NoError(t, err)

	revised := domain.Allocation{Models: []string{"gpt-a", "gpt-b"}, PromptsPerDay: 50, TokensPerResponse: 2000}
	edited, err := svc.EditAllocation(context.Background(), req.ID, revised, "root")
	require.NoError(t, err)
	require.NotNil(t, edited.Allocation)
	assert.Equal(t, revised, *edited.Allocation)

	account, err := accounts.GetByIdentifier(context.Background(), "U1")
	require.NoError(t, err)
	require.NotNil(t, account.Allocation)
	assert.Equal(t, revised, *account.Allocation)

	changed := dispatcher.byType(events.EventAllocationChanged)
	require.Len(t, changed, 1)
	payload := changed[0].Payload.(events.AllocationChangedPayload)
	assert.Equal(t, initial, payload.OldAllocation)
	assert.Equal(t, revised, payload.NewAllocation)
}

func TestApproveAllGrantsRequestedValues(t *testing.T) {
	svc, _, accounts, _ := newRequestService(t)
	seedAccount(t, accounts, "U1", domain.RoleClass("3"), "p", nil)
	seedAccount(t, accounts, "U2", domain.RoleClass("2"), "p", nil)

	in1 := validSubmit("U1")
	in1.PromptsPerDay = 7
	_, err := svc.Submit(context.Background(), in1)
	require.NoError(t, err)

	in2 := validSubmit("U2")
	in2.RoleClass = domain.RoleClass("2")
	in2.Models = []string{"gpt-b"}
	_, err = svc.Submit(context.Background(), in2)
	require.NoError(t, err)

	count, err := svc.ApproveAll(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)

	account, err := accounts.GetByIdentifier(context.Background(), "U1")
	require.NoError(t, err)
	require.NotNil(t, account.Allocation)
	assert.Equal(t, 7, account.Allocation.PromptsPerDay)

	account, err = accounts.GetByIdentifier(context.Background(), "U2")
	require.NoError(t, err)
	require.NotNil(t, account.Allocation)
	assert.Equal(t, []string{"gpt-b"}, account.Allocation.Models)
}

func TestApproveByRoleClassLeavesOthersPending(t *testing.T) {
	svc, _, accounts, _ := newRequestService(t)
	seedAccount(t, accounts, "U1", domain.RoleClass("3"), "p", nil)
	seedAccount(t, accounts, "U2", domain.RoleClass("2"), "p", nil)

	_, err := svc.Submit(context.Background(), validSubmit("U1"))
	require.NoError(t, err)

	in2 := validSubmit("U2")
	in2.RoleClass = domain.RoleClass("2")
	_, err = svc.Submit(context.Background(), in2)
	require.NoError(t, err)

	count, err := svc.ApproveByRoleClass(context.Background(), domain.RoleClass("3"), "root")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "U2", pending[0].Identifier)

	status, err := svc.Status(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, status.State)
}

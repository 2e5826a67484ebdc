package source

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/journey-mapper/pkg/hubspot"
	"github.com/sells-group/journey-mapper/pkg/salesforce"
)

// --- HubSpot Mock ---

type mockHubSpotClient struct {
	mock.Mock
}

func (m *mockHubSpotClient) GetProperty(ctx context.Context, token, objectType, name string) (*hubspot.Property, error) {
	args := m.Called(ctx, token, objectType, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hubspot.Property), args.Error(1)
}

func (m *mockHubSpotClient) GetContact(ctx context.Context, token, id string, properties []string) (*hubspot.Object, error) {
	args := m.Called(ctx, token, id, properties)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hubspot.Object), args.Error(1)
}

func (m *mockHubSpotClient) SearchContacts(ctx context.Context, token string, req hubspot.SearchRequest) (*hubspot.SearchResponse, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hubspot.SearchResponse), args.Error(1)
}

// --- Token Mock ---

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) Token(ctx context.Context, tenantID string) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

func (m *mockTokens) Invalidate(tenantID string) {
	m.Called(tenantID)
}

// --- Salesforce Mock ---

type mockSFClient struct {
	mock.Mock
}

func (m *mockSFClient) Query(ctx context.Context, soql string, out any) error {
	args := m.Called(ctx, soql, out)
	return args.Error(0)
}

func (m *mockSFClient) DescribeSObject(ctx context.Context, name string) (*salesforce.SObjectDescription, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesforce.SObjectDescription), args.Error(1)
}

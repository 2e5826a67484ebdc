package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/journey-mapper/internal/model"
	"github.com/sells-group/journey-mapper/pkg/salesforce"
)

func TestSalesforce_ListSourceStages(t *testing.T) {
	client := &mockSFClient{}
	client.On("DescribeSObject", mock.Anything, "Contact").Return(&salesforce.SObjectDescription{
		Name: "Contact",
		Fields: []salesforce.SObjectField{{
			Name: "Lifecycle_Stage__c",
			Type: "picklist",
			PicklistValues: []salesforce.PicklistValue{
				{Value: "Prospect", Label: "Prospect", Active: true},
				{Value: "Gone", Label: "Gone", Active: false},
				{Value: "Customer", Active: true},
			},
		}},
	}, nil)

	s := NewSalesforce(client, "", "Lifecycle_Stage__c")
	stages, err := s.ListSourceStages(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, []model.SourceStage{
		{Value: "Prospect", Label: "Prospect"},
		{Value: "Customer", Label: "Customer"},
	}, stages)
}

func TestSalesforce_FetchEntity(t *testing.T) {
	client := &mockSFClient{}
	client.On("Query", mock.Anything, mock.MatchedBy(func(soql string) bool {
		return assert.Contains(t, soql, "WHERE Id = '003xx'")
	}), mock.Anything).Run(func(args mock.Arguments) {
		out := args.Get(2).(*[]map[string]any)
		*out = []map[string]any{{"Id": "003xx", "FirstName": "Grace", "Lifecycle_Stage__c": "Customer"}}
	}).Return(nil)

	s := NewSalesforce(client, "Contact", "Lifecycle_Stage__c")
	e, err := s.FetchEntity(context.Background(), "org-1", "003xx")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "Customer", e.StageValue)
	assert.Equal(t, "Grace", e.FirstName)
}

func TestSalesforce_FetchEntity_NotFound(t *testing.T) {
	client := &mockSFClient{}
	client.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	s := NewSalesforce(client, "Contact", "Lifecycle_Stage__c")
	e, err := s.FetchEntity(context.Background(), "org-1", "003none")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestSalesforce_SearchEntities_Error(t *testing.T) {
	client := &mockSFClient{}
	client.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("INVALID_SESSION_ID"))

	s := NewSalesforce(client, "Contact", "Lifecycle_Stage__c")
	_, err := s.SearchEntities(context.Background(), "org-1", "ada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source: salesforce search contacts")
}

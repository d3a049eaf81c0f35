package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestShippingService() (*ShippingMethodService, *MockShippingMethodMappingRepository) {
	repo := new(MockShippingMethodMappingRepository)
	svc := NewShippingMethodService(repo, ShippingCatalog{
		WarehouseMethods: []string{"wh-ground", "wh-express", "wh-pickup"},
		ChannelMethods:   []string{"Standard", "Express"},
	}, zap.NewNop())
	return svc, repo
}

func TestShippingMethodService_Replace(t *testing.T) {
	svc, repo := newTestShippingService()
	repo.On("Replace", mock.Anything, "loc-1", []fulfillment.ShippingMethodMappingEntry{
		{WarehouseMethodID: "wh-express", ChannelMethodName: "Express"},
		{WarehouseMethodID: "wh-ground", ChannelMethodName: "Standard"},
	}).Return(nil)

	resp, err := svc.Replace(context.Background(), " loc-1 ", ReplaceShippingMethodsRequest{
		Entries: []ShippingMethodEntryInput{
			{WarehouseMethodID: "wh-ground", ChannelMethodName: "Standard"},
			{WarehouseMethodID: "wh-express", ChannelMethodName: "Express"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "loc-1", resp.LocationID)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "wh-express", resp.Entries[0].WarehouseMethodID)
	assert.Len(t, resp.WarehouseMethods, 3)
	repo.AssertExpectations(t)
}

func TestShippingMethodService_Replace_InvalidEntryStoresNothing(t *testing.T) {
	tests := []struct {
		name    string
		entries []ShippingMethodEntryInput
	}{
		{"unknown warehouse method", []ShippingMethodEntryInput{
			{WarehouseMethodID: "wh-ground", ChannelMethodName: "Standard"},
			{WarehouseMethodID: "wh-drone", ChannelMethodName: "Express"},
		}},
		{"unknown channel method", []ShippingMethodEntryInput{
			{WarehouseMethodID: "wh-ground", ChannelMethodName: "Overnight"},
		}},
		{"duplicate warehouse method", []ShippingMethodEntryInput{
			{WarehouseMethodID: "wh-ground", ChannelMethodName: "Standard"},
			{WarehouseMethodID: "wh-ground", ChannelMethodName: "Express"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestShippingService()
			_, err := svc.Replace(context.Background(), "loc-1", ReplaceShippingMethodsRequest{Entries: tt.entries})
			assertCode(t, err, shared.CodeValidation)
			repo.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestShippingMethodService_RequiresLocation(t *testing.T) {
	svc, _ := newTestShippingService()

	_, err := svc.Get(context.Background(), "  ")
	assertCode(t, err, shared.CodeValidation)

	_, err = svc.Replace(context.Background(), "", ReplaceShippingMethodsRequest{})
	assertCode(t, err, shared.CodeValidation)
}

func TestShippingMethodService_GetSkipsStaleEntries(t *testing.T) {
	svc, repo := newTestShippingService()
	repo.On("FindByLocation", mock.Anything, "loc-1").Return([]fulfillment.ShippingMethodMappingEntry{
		{WarehouseMethodID: "wh-ground", ChannelMethodName: "Standard"},
		{WarehouseMethodID: "wh-retired", ChannelMethodName: "Standard"},
	}, nil)

	resp, err := svc.Get(context.Background(), "loc-1")

	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "wh-ground", resp.Entries[0].WarehouseMethodID)
}

func TestShippingMethodService_MappingFor(t *testing.T) {
	t.Run("nil when nothing is mapped", func(t *testing.T) {
		svc, repo := newTestShippingService()
		repo.On("FindByLocation", mock.Anything, "loc-2").Return([]fulfillment.ShippingMethodMappingEntry{}, nil)

		mapping, err := svc.MappingFor(context.Background(), "loc-2")

		require.NoError(t, err)
		assert.Nil(t, mapping)
	})

	t.Run("resolves stored entries", func(t *testing.T) {
		svc, repo := newTestShippingService()
		repo.On("FindByLocation", mock.Anything, "loc-1").Return([]fulfillment.ShippingMethodMappingEntry{
			{WarehouseMethodID: "wh-pickup", ChannelMethodName: "Standard"},
		}, nil)

		mapping, err := svc.MappingFor(context.Background(), "loc-1")

		require.NoError(t, err)
		name, err := mapping.Resolve("wh-pickup")
		require.NoError(t, err)
		assert.Equal(t, "Standard", name)
	})

	t.Run("repository error", func(t *testing.T) {
		svc, repo := newTestShippingService()
		repo.On("FindByLocation", mock.Anything, "loc-1").Return(nil, errors.New("db down"))

		_, err := svc.MappingFor(context.Background(), "loc-1")
		assert.EqualError(t, err, "db down")
	})
}

package fulfillment

import (
	"context"
	"strings"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ShippingCatalog lists the shipping methods a mapping may refer to
type ShippingCatalog struct {
	WarehouseMethods []string
	ChannelMethods   []string
}

// ShippingMethodService manages per-location warehouse -> channel shipping method mappings
type ShippingMethodService struct {
	repo    fulfillment.ShippingMethodMappingRepository
	catalog ShippingCatalog
	logger  *zap.Logger
}

// NewShippingMethodService creates a new ShippingMethodService
func NewShippingMethodService(repo fulfillment.ShippingMethodMappingRepository, catalog ShippingCatalog, logger *zap.Logger) *ShippingMethodService {
	return &ShippingMethodService{repo: repo, catalog: catalog, logger: logger}
}

func (s *ShippingMethodService) newMapping(locationID string) *fulfillment.ShippingMethodMapping {
	return fulfillment.NewShippingMethodMapping(locationID, s.catalog.WarehouseMethods, s.catalog.ChannelMethods)
}

// load rebuilds the stored mapping for a location. Stored entries that no longer
// match the catalogs are skipped.
func (s *ShippingMethodService) load(ctx context.Context, locationID string) (*fulfillment.ShippingMethodMapping, error) {
	entries, err := s.repo.FindByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	mapping := s.newMapping(locationID)
	for _, e := range entries {
		if err := mapping.Set(e.WarehouseMethodID, e.ChannelMethodName); err != nil {
			logger.WithLogger(ctx, s.logger).Warn("skipping stale shipping method mapping",
				zap.String("location_id", locationID),
				zap.String("warehouse_method_id", e.WarehouseMethodID),
				zap.String("channel_method_name", e.ChannelMethodName),
				zap.Error(err),
			)
		}
	}
	return mapping, nil
}

// MappingFor returns the location's mapping, or nil when none is configured
func (s *ShippingMethodService) MappingFor(ctx context.Context, locationID string) (*fulfillment.ShippingMethodMapping, error) {
	mapping, err := s.load(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if mapping.Len() == 0 {
		return nil, nil
	}
	return mapping, nil
}

// Get returns the location's mapping with the catalogs it is validated against
func (s *ShippingMethodService) Get(ctx context.Context, locationID string) (*ShippingMethodMappingResponse, error) {
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return nil, fulfillment.NewValidationError(uuid.Nil, "location id is required")
	}
	mapping, err := s.load(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(mapping), nil
}

// Replace validates and stores a location's whole mapping. Nothing is stored
// unless every entry is valid.
func (s *ShippingMethodService) Replace(ctx context.Context, locationID string, req ReplaceShippingMethodsRequest) (*ShippingMethodMappingResponse, error) {
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return nil, fulfillment.NewValidationError(uuid.Nil, "location id is required")
	}

	entries := make([]fulfillment.ShippingMethodMappingEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = fulfillment.ShippingMethodMappingEntry{
			WarehouseMethodID: e.WarehouseMethodID,
			ChannelMethodName: e.ChannelMethodName,
		}
	}
	mapping := s.newMapping(locationID)
	if err := mapping.ReplaceAll(entries); err != nil {
		return nil, err
	}
	if err := s.repo.Replace(ctx, locationID, mapping.Entries()); err != nil {
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("shipping method mapping replaced",
		zap.String("location_id", locationID),
		zap.Int("entries", mapping.Len()),
	)
	return s.toResponse(mapping), nil
}

func (s *ShippingMethodService) toResponse(m *fulfillment.ShippingMethodMapping) *ShippingMethodMappingResponse {
	entries := m.Entries()
	out := make([]ShippingMethodEntryInput, len(entries))
	for i, e := range entries {
		out[i] = ShippingMethodEntryInput{WarehouseMethodID: e.WarehouseMethodID, ChannelMethodName: e.ChannelMethodName}
	}
	return &ShippingMethodMappingResponse{
		LocationID:       m.LocationID,
		Entries:          out,
		WarehouseMethods: append([]string{}, s.catalog.WarehouseMethods...),
		ChannelMethods:   append([]string{}, s.catalog.ChannelMethods...),
	}
}

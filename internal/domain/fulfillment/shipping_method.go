package fulfillment

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ShippingMethodMapping maps a location's warehouse shipping method ids onto the
// channel's shipping method names. Only ids and names from the catalogs it was
// built with are accepted.
type ShippingMethodMapping struct {
	LocationID string

	warehouseMethods map[string]struct{}
	channelMethods   map[string]struct{}
	entries          map[string]string
}

// ShippingMethodMappingEntry is one warehouseMethodId -> channelMethodName pair
type ShippingMethodMappingEntry struct {
	WarehouseMethodID string
	ChannelMethodName string
}

// NewShippingMethodMapping creates an empty mapping bounded by the two catalogs
func NewShippingMethodMapping(locationID string, warehouseMethodIDs, channelMethodNames []string) *ShippingMethodMapping {
	m := &ShippingMethodMapping{
		LocationID:       locationID,
		warehouseMethods: make(map[string]struct{}, len(warehouseMethodIDs)),
		channelMethods:   make(map[string]struct{}, len(channelMethodNames)),
		entries:          make(map[string]string),
	}
	for _, id := range warehouseMethodIDs {
		if id = strings.TrimSpace(id); id != "" {
			m.warehouseMethods[id] = struct{}{}
		}
	}
	for _, name := range channelMethodNames {
		if name = strings.TrimSpace(name); name != "" {
			m.channelMethods[name] = struct{}{}
		}
	}
	return m
}

// Set maps a warehouse method to a channel method after validating both
func (m *ShippingMethodMapping) Set(warehouseMethodID, channelMethodName string) error {
	warehouseMethodID = strings.TrimSpace(warehouseMethodID)
	channelMethodName = strings.TrimSpace(channelMethodName)
	if _, ok := m.warehouseMethods[warehouseMethodID]; !ok {
		return NewValidationError(uuid.Nil, "unknown warehouse shipping method %q", warehouseMethodID)
	}
	if _, ok := m.channelMethods[channelMethodName]; !ok {
		return NewValidationError(uuid.Nil, "unknown channel shipping method %q", channelMethodName)
	}
	m.entries[warehouseMethodID] = channelMethodName
	return nil
}

// ReplaceAll validates every entry and swaps them in only when all are valid
func (m *ShippingMethodMapping) ReplaceAll(entries []ShippingMethodMappingEntry) error {
	staged := &ShippingMethodMapping{
		LocationID:       m.LocationID,
		warehouseMethods: m.warehouseMethods,
		channelMethods:   m.channelMethods,
		entries:          make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		if _, dup := staged.entries[strings.TrimSpace(e.WarehouseMethodID)]; dup {
			return NewValidationError(uuid.Nil, "warehouse shipping method %q mapped twice", e.WarehouseMethodID)
		}
		if err := staged.Set(e.WarehouseMethodID, e.ChannelMethodName); err != nil {
			return err
		}
	}
	m.entries = staged.entries
	return nil
}

// Resolve returns the channel method for a warehouse method id
func (m *ShippingMethodMapping) Resolve(warehouseMethodID string) (string, error) {
	warehouseMethodID = strings.TrimSpace(warehouseMethodID)
	if _, ok := m.warehouseMethods[warehouseMethodID]; !ok {
		return "", NewValidationError(uuid.Nil, "unknown warehouse shipping method %q", warehouseMethodID)
	}
	name, ok := m.entries[warehouseMethodID]
	if !ok {
		return "", NewValidationError(uuid.Nil, "warehouse shipping method %q has no channel mapping", warehouseMethodID)
	}
	return name, nil
}

// Entries returns the mapping sorted by warehouse method id
func (m *ShippingMethodMapping) Entries() []ShippingMethodMappingEntry {
	out := make([]ShippingMethodMappingEntry, 0, len(m.entries))
	for id, name := range m.entries {
		out = append(out, ShippingMethodMappingEntry{WarehouseMethodID: id, ChannelMethodName: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseMethodID < out[j].WarehouseMethodID })
	return out
}

// Len returns the number of mapped methods
func (m *ShippingMethodMapping) Len() int {
	return len(m.entries)
}

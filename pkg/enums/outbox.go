package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateListing OutboxAggregateType = "listing"
	AggregateItem    OutboxAggregateType = "item"
	AggregateModel   OutboxAggregateType = "model"
	AggregateBrand   OutboxAggregateType = "brand"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateListing,
	AggregateItem,
	AggregateModel,
	AggregateBrand,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a catalog change published to subscribers.
type OutboxEventType string

const (
	EventListingReconciled OutboxEventType = "listing.reconciled"
	EventListingUpdated    OutboxEventType = "listing.updated"
	EventListingDeleted    OutboxEventType = "listing.deleted"
	EventPhotosAttached    OutboxEventType = "photos.attached"
	EventItemDeleted       OutboxEventType = "item.deleted"
	EventModelDeleted      OutboxEventType = "model.deleted"
	EventBrandDeleted      OutboxEventType = "brand.deleted"
)

var validEventTypes = []OutboxEventType{
	EventListingReconciled,
	EventListingUpdated,
	EventListingDeleted,
	EventPhotosAttached,
	EventItemDeleted,
	EventModelDeleted,
	EventBrandDeleted,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

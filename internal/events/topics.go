package events

const (
	TopicBargainCreated  = "marketplace.bargain.created"
	TopicBargainResolved = "marketplace.bargain.resolved"
	TopicOrderCreated    = "marketplace.order.created"
	TopicOrderStatus     = "marketplace.order.status"
	TopicOrderRemoved    = "marketplace.order.removed"
)

// Partition key = entity id, so every event for one bargain/order keeps order.
func PartitionKey(id string) []byte { return []byte(id) }

package constants

const (
	// CollectionStreamName is the JetStream stream holding collection lifecycle events.
	CollectionStreamName = "COLLECTIONS"

	// CollectionCompletedTopic carries run results for finished collection runs.
	CollectionCompletedTopic = "collection.completed"
	// CollectionFailedTopic carries run results for failed collection runs.
	CollectionFailedTopic = "collection.failed"

	// CollectionForceTopicPrefix is the subject prefix for remote force-collection
	// requests; the source name is appended, e.g. collection.force.regtech.
	CollectionForceTopicPrefix = "collection.force."

	// CollectionQueueGroup is the queue group for force-collection consumers so
	// that only one instance acts on a remote trigger.
	CollectionQueueGroup = "collection-workers"
)

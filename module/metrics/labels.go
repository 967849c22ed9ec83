package metrics

const (
	namespaceNode = "zenith"

	subsystemRuntime = "runtime"
	subsystemMining  = "mining"
	subsystemNetwork = "network"
	subsystemClient  = "client"
	subsystemStorage = "storage"
)

const (
	LabelCause  = "cause"
	LabelTag    = "tag"
	LabelDriver = "driver"
	LabelTopic  = "topic"
	LabelReason = "reason"
	LabelKind   = "kind"
)

package common

// Component names used for per-component log levels.
const (
	ComponentSupervisor      = "supervisor"
	ComponentCrawler         = "crawler"
	ComponentRPC             = "rpc"
	ComponentCheckpointStore = "checkpoint-store"
	ComponentDocumentStore   = "document-store"
	ComponentEventBus        = "event-bus"
	ComponentMaintenance     = "maintenance"
	ComponentAPI             = "api"
)

var AllComponents = map[string]struct{}{
	ComponentSupervisor:      {},
	ComponentCrawler:         {},
	ComponentRPC:             {},
	ComponentCheckpointStore: {},
	ComponentDocumentStore:   {},
	ComponentEventBus:        {},
	ComponentMaintenance:     {},
	ComponentAPI:             {},
}

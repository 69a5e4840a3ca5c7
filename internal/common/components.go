package common

const (
	ComponentScheduler    = "scheduler"
	ComponentChainLog     = "chain-log"
	ComponentIngestor     = "ingestor"
	ComponentMaterializer = "materializer"
	ComponentCorrelator   = "lockup-correlator"
	ComponentBalance      = "property-balance"
	ComponentContracts    = "contracts"
	ComponentRPC          = "rpc"
	ComponentMaintenance  = "maintenance"
	ComponentMetrics      = "metrics"
)

var AllComponents = map[string]struct{}{
	ComponentScheduler:    {},
	ComponentChainLog:     {},
	ComponentIngestor:     {},
	ComponentMaterializer: {},
	ComponentCorrelator:   {},
	ComponentBalance:      {},
	ComponentContracts:    {},
	ComponentRPC:          {},
	ComponentMaintenance:  {},
	ComponentMetrics:      {},
}

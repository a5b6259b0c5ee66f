package common

const (
	ComponentSyncManager   = "sync-manager"
	ComponentCoordinator   = "indexer-coordinator"
	ComponentLoanScheme    = "loan-scheme-indexer"
	ComponentSchemeStore   = "scheme-store"
	ComponentNodeClient    = "node-client"
	ComponentVaultService  = "vault-service"
	ComponentAPI           = "api"
)

var AllComponents = map[string]struct{}{
	ComponentSyncManager:  {},
	ComponentCoordinator:  {},
	ComponentLoanScheme:   {},
	ComponentSchemeStore:  {},
	ComponentNodeClient:   {},
	ComponentVaultService: {},
	ComponentAPI:          {},
}

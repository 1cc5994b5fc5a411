package clients

const (
	// -----------------------------
	// RPC TRANSPORT
	// -----------------------------
	ErrRPCRequestFailed    = "rpc_request_failed"
	ErrRPCBadStatus        = "rpc_bad_status"
	ErrRPCUnrecognizedBody = "rpc_unrecognized_body"

	// -----------------------------
	// EXPLORER TRANSPORT
	// -----------------------------
	ErrExplorerRequestFailed = "explorer_request_failed"
	ErrExplorerBadStatus     = "explorer_bad_status"

	// -----------------------------
	// FALLBACK EXHAUSTION
	// -----------------------------
	ErrAllProvidersFailed = "all_providers_failed"
)

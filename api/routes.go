package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// InfoEndpoint returns the circuit limits and the sequencer status
	InfoEndpoint = "/info"
	// OrdersEndpoint is the endpoint for submitting an order
	OrdersEndpoint = "/orders"
	// ValidateOrderEndpoint validates an order synchronously, without
	// queueing it
	ValidateOrderEndpoint = "/orders/validate"
	// OrderEndpoint is the endpoint to get the receipt of an order
	OrderURLParam = "orderId"
	OrderEndpoint = "/orders/{" + OrderURLParam + "}"

	// ArtifactsEndpoint is the base URL other nodes download the circuit
	// artifacts from
	ArtifactsEndpoint = "/artifacts"
	// ArtifactEndpoint serves a cached circuit artifact by its hash
	ArtifactURLParam = "hash"
	ArtifactEndpoint = ArtifactsEndpoint + "/{" + ArtifactURLParam + "}"
)

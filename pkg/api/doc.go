/*
Package api serves the bridge's read-only HTTP surface.

Endpoints:

	GET /health              component health, 503 when any component is unhealthy
	GET /ready               200 once ledger, store and poller are healthy
	GET /live                200 while the process runs
	GET /metrics             Prometheus exposition
	GET /v1/requests         stored data requests, optional ?state=new|finished
	GET /v1/requests/{id}    one stored data request, 404 if not yet relayed

Every route is wrapped by a read-only guard that answers 405 to any method
other than GET and HEAD, and by instrumentation that records
drbridge_api_requests_total and drbridge_api_request_duration_seconds
labeled with the route pattern.

Payloads are returned as 0x-prefixed hex. The resolution hash is only
present for finished requests.
*/
package api

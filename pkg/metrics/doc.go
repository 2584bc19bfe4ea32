/*
Package metrics defines the bridge's Prometheus metrics and its component
health registry.

Metrics are registered on the default registry in init and exposed by
Handler. Timer measures a section of code:

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PollCycleDuration)

The health registry tracks named components (ledger, store, poller, api).
GetHealth reports every registered component; GetReadiness requires the
ledger, the store and the poller to be registered and healthy. Collector
samples the store periodically to keep the stored-request gauges current.
*/
package metrics

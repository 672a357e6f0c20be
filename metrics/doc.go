/*
Package metrics implements the collection of the router metrics with the
Prometheus client library.

The collected metrics include the number and the duration of the routing
decisions by kind, the responses by status code, the time spent waiting
for the static store and the compute backend, the compute failures, and
the build of the loaded manifest.

The metrics are exposed on the /metrics path of the support listener.
When no metrics are configured, the Void implementation drops every
measurement.
*/
package metrics

/*
Package circuit implements the circuit breaker protecting the compute
backend.

The breaker opens when rendering with the compute backend failed N times
in a row, where N is the configured number of failures. While open, the
renders fail immediately and the router answers with the server error
page. After the timeout, the breaker goes into half-open state, where it
expects that M requests succeed. The requests in the half-open state are
accepted concurrently. If any of them fails, the breaker goes back to
open state. If all succeed, it goes to closed state again.

With zero failures configured, the breaker is disabled and never opens.

The breaker can be set from the command line:

	edgerouter -compute-breaker-failures 5 -compute-breaker-timeout 30s
*/
package circuit

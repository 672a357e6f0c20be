/*
Package logging implements the application log setup and the combined
access log of the router.

Application Log

The application log uses the logrus package:

https://github.com/sirupsen/logrus

To send messages to the application log, import logrus and use its
package level methods. Example:

    import log "github.com/sirupsen/logrus"

    func loadManifest() {
        log.Errorf("failed to load the manifest")
    }

During startup, it is possible to redirect the log output from the
default /dev/stderr to another file, set the level, switch to JSON
entries, and set a common prefix for each entry. Setting the prefix may
be a good idea when the access log and the application log share their
output.

Access Log

The access log prints HTTP access information in the Apache combined
log format, extended with the duration in milliseconds, the requested
host, the flow ID and the kind of the routing decision. The Handler
wraps the proxy and logs one entry per request. The proxy annotates the
entry of the current request with SetFlowID and SetDecision.

The access log can be redirected to another output or disabled
completely.
*/
package logging

/*
This command provides the executable of the router.

For the list of command line options, run:

	edgerouter -help

For details about the routing decisions and the served responses, please
see the documentation of the root edgerouter package.
*/
package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/zalando/edgerouter"
	"github.com/zalando/edgerouter/config"
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.Parse(); err != nil {
		log.Fatalf("Error processing config: %s", err)
	}

	if err := edgerouter.Run(cfg.ToOptions()); err != nil {
		log.Fatal(err)
	}
}

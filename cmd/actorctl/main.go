package main

import (
	"fmt"
	"os"

	"github.com/danmuck/actormgr/internal/logging"
)

func main() {
	logging.ConfigureRuntime("actorctl")
	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "actorctl: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/actormgr/internal/logging"
	"github.com/danmuck/actormgr/internal/server"
)

func main() {
	path := flag.String("config", os.Getenv("ACTORMGR_CONFIG"), "config file (.toml, .yaml); defaults and env only when empty")
	flag.Parse()

	logging.ConfigureRuntime(server.Name)
	svc, err := server.New(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "managerd: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "managerd: %v\n", err)
		os.Exit(1)
	}
}

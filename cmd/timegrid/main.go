package main

import (
	"os"

	"github.com/noah-isme/timegrid-api/internal/cli"
)

func main() {
	if err := cli.NewApp(nil).Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/offlinefirst/input-replay/internal/buildinfo"
	"github.com/offlinefirst/input-replay/internal/cmd"
)

// version is set with -ldflags "-X main.version=v1.2.3".
var version string

func main() {
	buildinfo.SetVersion(version)
	root := cmd.NewRootCommand()
	if err := root.Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

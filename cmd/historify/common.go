package main

import (
	"fmt"
	"os"

	"github.com/kwinsch/historify/herrors"
	"github.com/kwinsch/historify/repository"
)

// runners maps a kingpin command's full command string to its handler. Each
// subcommand file registers itself here, one file per subcommand (following
// the per-subcommand-file layout historify's CLI borrows from the rest of
// the pack's multi-command tools).
var runners = map[string]func() error{}

func run(cmd string) {
	handler, ok := runners[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "historify: unknown command %q\n", cmd)
		os.Exit(1)
	}
	err := handler()
	os.Exit(herrors.ExitCode(err))
}

func fail(err error) error {
	if err != nil {
		log.Error(err)
	}
	return err
}

func openRepository(path string) (*repository.Repository, error) {
	if path == "" {
		path = "."
	}
	return repository.Open(path)
}

func resolvePath(path string) string {
	if path == "" {
		return "."
	}
	return path
}

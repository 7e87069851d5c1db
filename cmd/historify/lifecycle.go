package main

import (
	"fmt"
	"os"

	"github.com/kwinsch/historify/changelog"
	"github.com/kwinsch/historify/herrors"
	"github.com/kwinsch/historify/repository"
	"gopkg.in/alecthomas/kingpin.v2"
)

func signingKeyPath(repo *repository.Repository) (string, error) {
	key := repo.Config.Get("minisign.key", "")
	if key == "" {
		return "", herrors.New(herrors.KindConfig, "minisign.key is not configured")
	}
	return key, nil
}

func lifecycleRun(path *string) error {
	repo, err := openRepository(resolvePath(*path))
	if err != nil {
		return fail(err)
	}
	key, err := signingKeyPath(repo)
	if err != nil {
		return fail(err)
	}
	opened, err := changelog.New(repo).Lifecycle(key, os.Getenv("HISTORIFY_PASSWORD"))
	if err != nil {
		return fail(err)
	}
	fmt.Printf("opened %s\n", opened)
	return nil
}

// registerLifecycleCommands wires both "start" and "closing" — identical
// semantics, two names for the same operator action.
func registerLifecycleCommands(app *kingpin.Application) {
	start := app.Command("start", "Advance the changelog chain.")
	startPath := start.Arg("path", "Repository root (default .).").String()
	runners["start"] = func() error { return lifecycleRun(startPath) }

	closing := app.Command("closing", "Advance the changelog chain.")
	closingPath := closing.Arg("path", "Repository root (default .).").String()
	runners["closing"] = func() error { return lifecycleRun(closingPath) }
}

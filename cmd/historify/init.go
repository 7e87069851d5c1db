package main

import (
	"fmt"

	"github.com/kwinsch/historify/repository"
	"gopkg.in/alecthomas/kingpin.v2"
)

func registerInitCommand(app *kingpin.Application) {
	cmd := app.Command("init", "Create a repository.")
	path := cmd.Arg("path", "Repository root directory.").Required().String()
	name := cmd.Flag("name", "Repository name.").String()

	runners["init"] = func() error {
		repo, err := repository.Init(*path, *name)
		if err != nil {
			return fail(err)
		}
		fmt.Printf("initialized historify repository at %s\n", repo.Root)
		return nil
	}
}

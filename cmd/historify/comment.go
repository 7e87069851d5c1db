package main

import (
	"github.com/kwinsch/historify/changelog"
	"gopkg.in/alecthomas/kingpin.v2"
)

func registerCommentCommand(app *kingpin.Application) {
	cmd := app.Command("comment", "Append a comment row to the open changelog.")
	message := cmd.Arg("message", "Comment text.").Required().String()
	path := cmd.Arg("path", "Repository root (default .).").String()

	runners["comment"] = func() error {
		repo, err := openRepository(resolvePath(*path))
		if err != nil {
			return fail(err)
		}
		return fail(changelog.New(repo).AppendComment(*message))
	}
}

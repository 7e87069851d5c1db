package main

import (
	"fmt"
	"os"

	"github.com/kwinsch/historify/herrors"
	"gopkg.in/alecthomas/kingpin.v2"
)

func registerCheckConfigCommand(app *kingpin.Application) {
	cmd := app.Command("check-config", "Report configuration issues.")
	path := cmd.Arg("path", "Repository root (default .).").String()

	runners["check-config"] = func() error {
		repo, err := openRepository(resolvePath(*path))
		if err != nil {
			return fail(err)
		}
		issues := repo.Config.Check(
			func(p string) bool { _, err := os.Stat(p); return err == nil },
			func(p string) bool { _, err := os.Stat(p); return err == nil },
		)
		if len(issues) == 0 {
			fmt.Println("configuration OK")
			return nil
		}
		for _, iss := range issues {
			fmt.Printf("%s: %s\n", iss.Key, iss.Reason)
		}
		return fail(herrors.NewWarning(fmt.Sprintf("%d configuration issue(s)", len(issues))))
	}
}

package main

import (
	"fmt"

	"github.com/kwinsch/historify/changelog"
	"github.com/kwinsch/historify/scanner"
	"gopkg.in/alecthomas/kingpin.v2"
)

func registerStatusCommand(app *kingpin.Application) {
	cmd := app.Command("status", "Summarize repository state.")
	path := cmd.Arg("path", "Repository root (default .).").String()
	category := cmd.Flag("category", "Limit category listing to one name.").String()

	runners["status"] = func() error {
		repo, err := openRepository(resolvePath(*path))
		if err != nil {
			return fail(err)
		}
		c := changelog.New(repo)
		state, err := c.State()
		if err != nil {
			return fail(err)
		}
		fmt.Printf("repository: %s\n", repo.Config.Get("repository.name", "(unnamed)"))
		fmt.Printf("state: %s\n", state)

		open, err := c.CurrentOpen()
		if err != nil {
			return fail(err)
		}
		if open != "" {
			fmt.Printf("open changelog: %s\n", open)
		}
		latest, err := c.LatestSigned()
		if err != nil {
			return fail(err)
		}
		if latest != "" {
			fmt.Printf("latest signed changelog: %s\n", latest)
		}

		cats, err := repo.Categories()
		if err != nil {
			return fail(err)
		}
		for _, cat := range cats {
			if *category != "" && cat.Name != *category {
				continue
			}
			kind := "internal"
			if cat.External {
				kind = "external"
			}
			fmt.Printf("category %q: %s (%s)\n", cat.Name, cat.DataPath, kind)
			if counts, err := scanner.ContentTypeCounts(cat.DataPath); err == nil {
				for ext, n := range counts {
					fmt.Printf("  %s: %d\n", ext, n)
				}
			}
		}

		issues := repo.Config.Check(nil, nil)
		for _, iss := range issues {
			fmt.Printf("config issue: %s: %s\n", iss.Key, iss.Reason)
		}
		return nil
	}
}

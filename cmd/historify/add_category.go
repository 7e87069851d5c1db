package main

import (
	"fmt"

	"github.com/kwinsch/historify/changelog"
	"gopkg.in/alecthomas/kingpin.v2"
)

func registerAddCategoryCommand(app *kingpin.Application) {
	cmd := app.Command("add-category", "Register a category.")
	name := cmd.Arg("name", "Category name.").Required().String()
	datapath := cmd.Arg("datapath", "Directory the category tracks.").Required().String()
	path := cmd.Arg("path", "Repository root (default .).").String()

	runners["add-category"] = func() error {
		repo, err := openRepository(resolvePath(*path))
		if err != nil {
			return fail(err)
		}
		if err := repo.AddCategory(*name, *datapath); err != nil {
			return fail(err)
		}
		cat, err := repo.Category(*name)
		if err != nil {
			return fail(err)
		}
		if err := changelog.New(repo).AppendConfig("category."+*name, cat.DataPath); err != nil {
			log.Warnf("could not record category registration in open changelog: %v", err)
		}
		kind := "internal"
		if cat.External {
			kind = "external"
		}
		fmt.Printf("registered category %q -> %s (%s)\n", cat.Name, cat.DataPath, kind)
		return nil
	}
}

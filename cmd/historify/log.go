package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kwinsch/historify/journal"
	"github.com/kwinsch/historify/snapshot"
	"gopkg.in/alecthomas/kingpin.v2"
)

func registerLogCommand(app *kingpin.Application) {
	cmd := app.Command("log", "Read the changelog chain.")
	path := cmd.Arg("path", "Repository root (default .).").String()
	file := cmd.Flag("file", "Limit to a single changelog file name.").String()
	category := cmd.Flag("category", "Limit to a single category.").String()
	graphOut := cmd.Flag("graph", "Render the chain as a PNG graph at this path instead of printing rows.").String()

	runners["log"] = func() error {
		repo, err := openRepository(resolvePath(*path))
		if err != nil {
			return fail(err)
		}

		if *graphOut != "" {
			g, err := snapshot.ChainGraph(repo)
			if err != nil {
				return fail(err)
			}
			if err := snapshot.RenderGraphPNG(g, *graphOut); err != nil {
				return fail(err)
			}
			fmt.Printf("wrote chain graph to %s\n", *graphOut)
			return nil
		}

		entries, err := os.ReadDir(repo.Chgdir)
		if err != nil {
			return fail(err)
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".csv" {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			if *file != "" && name != *file {
				continue
			}
			rows, err := journal.ReadAll(filepath.Join(repo.Chgdir, name))
			if err != nil {
				return fail(err)
			}
			for _, row := range rows {
				if *category != "" && row.Category != *category {
					continue
				}
				fmt.Printf("%s\t%s\t%s\t%s\t%s\n", name, row.Timestamp, row.Type, row.Path, row.Category)
			}
		}
		return nil
	}
}

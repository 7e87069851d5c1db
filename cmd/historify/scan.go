package main

import (
	"fmt"

	"github.com/kwinsch/historify/repository"
	"github.com/kwinsch/historify/scanner"
	"gopkg.in/alecthomas/kingpin.v2"
)

func registerScanCommand(app *kingpin.Application) {
	cmd := app.Command("scan", "Walk categories and emit change rows.")
	path := cmd.Arg("path", "Repository root (default .).").String()
	category := cmd.Flag("category", "Limit to a single category.").String()
	workers := cmd.Flag("workers", "Parallel hashing workers (0 disables the pool).").Default("0").Int()

	runners["scan"] = func() error {
		repo, err := openRepository(resolvePath(*path))
		if err != nil {
			return fail(err)
		}
		var cats []repository.Category
		if *category != "" {
			cat, err := repo.Category(*category)
			if err != nil {
				return fail(err)
			}
			cats = []repository.Category{cat}
		} else {
			cats, err = repo.Categories()
			if err != nil {
				return fail(err)
			}
		}
		s := scanner.New(repo, *workers)
		for _, cat := range cats {
			if err := s.Scan(cat); err != nil {
				return fail(err)
			}
			fmt.Printf("scanned category %q\n", cat.Name)
		}
		return nil
	}
}

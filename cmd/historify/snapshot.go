package main

import (
	"fmt"
	"time"

	"github.com/kwinsch/historify/herrors"
	"github.com/kwinsch/historify/snapshot"
	"gopkg.in/alecthomas/kingpin.v2"
)

func registerSnapshotCommand(app *kingpin.Application) {
	cmd := app.Command("snapshot", "Archive the repository (and optionally external categories).")
	out := cmd.Arg("out", "Output base path (without extension).").Required().String()
	path := cmd.Arg("path", "Repository root (default .).").String()
	full := cmd.Flag("full", "Also archive external categories.").Bool()
	media := cmd.Flag("media", "Split archives across optical-media images (bd-r, bd-r-dl, dvd).").String()
	graphOut := cmd.Flag("graph", "Also render the chain graph alongside the snapshot.").String()

	runners["snapshot"] = func() error {
		repo, err := openRepository(resolvePath(*path))
		if err != nil {
			return fail(err)
		}
		pub := repo.Config.Get("minisign.pub", "")
		if pub == "" {
			return fail(herrors.New(herrors.KindConfig, "minisign.pub is not configured"))
		}

		p := snapshot.New(repo, pub)
		produced, err := p.Snapshot(snapshot.Options{
			OutputBase: *out,
			Full:       *full,
			Media:      *media,
		}, time.Now())
		if err != nil {
			return fail(err)
		}
		for _, f := range produced {
			fmt.Println(f)
		}

		if *graphOut != "" {
			g, err := snapshot.ChainGraph(repo)
			if err != nil {
				return fail(err)
			}
			if err := snapshot.RenderGraphPNG(g, *graphOut); err != nil {
				return fail(err)
			}
			fmt.Println(*graphOut)
		}
		return nil
	}
}

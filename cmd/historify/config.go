package main

import (
	"fmt"

	"github.com/kwinsch/historify/changelog"
	"github.com/kwinsch/historify/keycache"
	"gopkg.in/alecthomas/kingpin.v2"
)

func registerConfigCommand(app *kingpin.Application) {
	cmd := app.Command("config", "Set a configuration key.")
	key := cmd.Arg("key", "Dotted key, e.g. repository.name.").Required().String()
	value := cmd.Arg("value", "Value to assign.").Required().String()
	path := cmd.Arg("path", "Repository root (default .).").String()

	runners["config"] = func() error {
		repo, err := openRepository(resolvePath(*path))
		if err != nil {
			return fail(err)
		}
		if err := repo.Config.Set(*key, *value); err != nil {
			return fail(err)
		}
		fmt.Printf("%s = %s\n", *key, *value)

		if err := changelog.New(repo).AppendConfig(*key, *value); err != nil {
			log.Warnf("could not record config change in open changelog: %v", err)
		}

		// Setting the public signing key additionally caches a copy under
		// db/keys/<KEYID>.pub. verify and snapshot still read the key from
		// the path configured here, not from the cache.
		if *key == "minisign.pub" {
			cache, err := keycache.New(repo.DBDir)
			if err != nil {
				return fail(err)
			}
			if _, err := cache.Import(*value); err != nil {
				log.Warnf("could not cache public key %s: %v", *value, err)
			}
		}
		return nil
	}
}

package main

import (
	"fmt"

	"github.com/kwinsch/historify/herrors"
	"github.com/kwinsch/historify/verifier"
	"gopkg.in/alecthomas/kingpin.v2"
)

func registerVerifyCommand(app *kingpin.Application) {
	cmd := app.Command("verify", "Verify the changelog chain.")
	path := cmd.Arg("path", "Repository root (default .).").String()
	fullChain := cmd.Flag("full-chain", "Verify the entire chain from the seed, not just the latest changelog.").Bool()

	runners["verify"] = func() error {
		repo, err := openRepository(resolvePath(*path))
		if err != nil {
			return fail(err)
		}
		pub := repo.Config.Get("minisign.pub", "")
		if pub == "" {
			return fail(herrors.New(herrors.KindConfig, "minisign.pub is not configured"))
		}

		v := verifier.New(repo, pub)
		var result verifier.Result
		if *fullChain {
			result = v.VerifyFullChain()
		} else {
			result = v.VerifyRecent()
		}

		for _, iss := range result.Issues {
			fmt.Printf("%s: %s\n", iss.Kind, iss.Message)
		}
		if result.ExitCode() == 0 {
			fmt.Println("chain verified clean")
			return nil
		}
		if !result.OK {
			return fail(herrors.New(herrors.KindChain, "verification failed"))
		}
		return fail(herrors.NewWarning("verification completed with warnings"))
	}
}

// Command historify is a revision-safe, tamper-evident journal for file-tree
// changes: a hash-chain of signed CSV changelogs anchored in a random seed.
//
// Usage:
//
//	historify init PATH [--name NAME]
//	historify config KEY VALUE [PATH]
//	historify check-config [PATH]
//	historify add-category NAME DATAPATH [PATH]
//	historify start|closing [PATH]
//	historify scan [PATH] [--category C]
//	historify comment MESSAGE [PATH]
//	historify log [PATH] [--file NAME] [--category C] [--graph OUT.png]
//	historify verify [PATH] [--full-chain]
//	historify status [PATH] [--category C]
//	historify snapshot OUT [PATH] [--full] [--media=bd-r|bd-r-dl|dvd]
//
// --media always takes a value; there is no bare --media form.
package main

import (
	"os"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/kwinsch/historify/version"
)

var (
	app     = kingpin.New("historify", "Tamper-evident journal for file-tree changes.")
	debug   = app.Flag("debug", "Enable debug logging.").Bool()
	profCPU = app.Flag("profile.cpu", "Write a CPU profile (scan/verify only).").Bool()

	log = logrus.New()
)

func main() {
	app.Version(version.Print("historify"))
	app.HelpFlag.Short('h')

	registerInitCommand(app)
	registerConfigCommand(app)
	registerCheckConfigCommand(app)
	registerAddCategoryCommand(app)
	registerLifecycleCommands(app)
	registerScanCommand(app)
	registerCommentCommand(app)
	registerLogCommand(app)
	registerVerifyCommand(app)
	registerStatusCommand(app)
	registerSnapshotCommand(app)

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if *profCPU && (cmd == "scan" || cmd == "verify") {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	run(cmd)
}

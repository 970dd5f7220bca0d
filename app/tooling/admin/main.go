// This program performs administrative tasks for a ledger stored on disk.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/ledger/app/tooling/admin/commands"
	"github.com/ardanlabs/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the command and report any failure.
	if err := run(log); err != nil {
		if !errors.Is(err, commands.ErrInvalidChain) {
			log.Errorw("admin", "build", build, "ERROR", err)
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	log.Infow("admin", "status", "running", "build", build, "args", os.Args[1:])

	return commands.Run(os.Args[1:], os.Stdout)
}

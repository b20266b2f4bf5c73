// This program mines a single block against the blockweave block core and
// prints its canonical encoding to stdout, mirroring the layout of the
// ardanlabs/blockchain teacher's own command binaries: a thin main that
// wires up the logger and hands off to a cobra command tree.
package main

import (
	"fmt"
	"os"

	"github.com/blockweave/blockcore/cmd/mineblock/cmd"
	"github.com/blockweave/blockcore/foundation/logger"
)

// build is the git version of this program. It is set using build flags
// in the makefile.
var build = "develop"

func main() {
	log, err := logger.New("MINEBLOCK")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	cmd.Build = build
	cmd.Log = log

	if err := cmd.Execute(); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

// praxis checks rule and constraint contracts and records their history.
//
// Usage:
//
//	praxis validate <contracts-dir> [--format text|json|sarif]
//	praxis ledger write <contracts-dir>
//	praxis ledger show <rule-id> [--version n]
//	praxis ledger history <rule-id>
//	praxis ledger assumptions [--impact spec|tests|code]
//	praxis ledger watch [--metrics-addr addr]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/plures/praxis/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	// ExitErrors have already been reported by the command.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "praxis: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}

// lisjob wraps one LIS NetCDF→Zarr conversion job for SLURM: it declares
// the resource directives, activates the Python runtime environment, runs
// the conversion program once, and exits with the program's own status.
package main

import (
	"errors"
	"os"

	"github.com/ashiklom/veda-data-processing/internal/cli"
	"github.com/ashiklom/veda-data-processing/internal/launcher"
)

func main() {
	err := cli.NewRootCmd().Execute()
	if err == nil {
		return
	}

	// The launcher's exit code is a lossless mirror of the external
	// command's; everything else is a CLI-level failure.
	var exitErr *launcher.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	os.Exit(1)
}

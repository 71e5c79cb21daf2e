//go:build !statsview

package statsview

import (
	"fmt"
	"io"
)

const Address = ""

// Launch reports that the binary was built without the statsview tag.
func Launch(output io.Writer) {
	_, _ = fmt.Fprintln(output, "stats server not available: rebuild with -tags statsview")
}

// Available returns true if a statsview is available to launch.
func Available() bool {
	return false
}

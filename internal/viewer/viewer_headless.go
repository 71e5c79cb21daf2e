//go:build headless

package viewer

import "context"

// Run reports that no window backend was compiled in.
func (v *Viewer) Run(ctx context.Context) error {
	return ErrUnavailable
}

//go:build !memdebug

// memory_lenient.go - Clamp out-of-range byte access

package spectrum

const memoryStrict = false

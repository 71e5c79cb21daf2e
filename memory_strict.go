//go:build memdebug

// memory_strict.go - Panic on out-of-range byte access

package spectrum

const memoryStrict = true

// Package statsview is an optional HTTP server offering runtime statistics
// of the emulator process. The real server is only compiled in with the
// statsview build tag:
//
//	go build -tags statsview ./cmd/zxspectrum
//
// After launch the charts are at localhost:12600/debug/statsview and the
// standard pprof pages at localhost:12600/debug/pprof/.
package statsview

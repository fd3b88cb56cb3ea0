//go:build !linux && !darwin
// +build !linux,!darwin

package handler

// getCPUUsage is not implemented on this platform.
func getCPUUsage() float64 {
	return 0
}

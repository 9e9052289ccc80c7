//go:build windows

package processhost

import "golang.org/x/sys/windows"

// freeDiskBytes returns the bytes available to the calling process on the
// volume backing path (spec §4.D pre-flight check).
func freeDiskBytes(path string) (uint64, error) {
	var freeBytesAvailable uint64
	var totalBytes uint64
	var totalFreeBytes uint64

	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return 0, err
	}
	return freeBytesAvailable, nil
}

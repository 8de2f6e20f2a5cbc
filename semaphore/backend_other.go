//go:build !linux && !windows

package semaphore

// Platforms without a kernel backend fall back to emulation.
func newNative(initial uint, c config) (handle, error) {
	e, err := newEmulated(initial, c.maxCount(emulatedMaxCount))
	if err != nil {
		return nil, err
	}
	return e, nil
}

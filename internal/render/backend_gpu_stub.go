//go:build !gpu

package render

import "fmt"

// newGPUDispatcher reports that this binary was built without the gpu
// build tag, so no OpenCL dispatcher is available.
func newGPUDispatcher() (Dispatcher, error) {
	return nil, fmt.Errorf("%w: build without -tags gpu", ErrBackendUnavailable)
}

//go:build gpu

package render

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <CL/cl.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/cwbudde/mandelcore/internal/gpu"
	"github.com/cwbudde/mandelcore/internal/kernel"
	"github.com/cwbudde/mandelcore/internal/orbit"
	"github.com/cwbudde/mandelcore/internal/palette"
)

// openclKernelSource implements one pixel's worth of spec §4.3 per
// work-item: it reads the reference orbit (read-only), reads/writes its
// own pixel record, and atomically increments the remaining-work
// counter on suspend. No inter-work-item communication, per spec §5.1.
const openclKernelSource = `
__kernel void mandel_step(
    const int pixelCount,
    const int orbitLen,
    const int iterations,
    const int batchIter,
    __global const float *orbitX,
    __global const float *orbitY,
    __global float *dx,
    __global float *dy,
    __global const float *dx0,
    __global const float *dy0,
    __global uint *refIteration,
    __global uint *iteration,
    __global uchar *status,
    __global volatile uint *remaining) {

    const int idx = get_global_id(0);
    if (idx >= pixelCount) {
        return;
    }
    if (status[idx] != 0) {
        return;
    }

    float x = dx[idx];
    float y = dy[idx];
    const float x0 = dx0[idx];
    const float y0 = dy0[idx];
    uint ref = refIteration[idx];
    uint iter = iteration[idx];

    int thisBatch = 0;
    while (iter < (uint)iterations && thisBatch < batchIter) {
        thisBatch++;

        const float rx = orbitX[ref];
        const float ry = orbitY[ref];

        const float newX = 2.0f*rx*x - 2.0f*ry*y + x*x - y*y + x0;
        const float newY = 2.0f*rx*y + 2.0f*ry*x + 2.0f*x*y + y0;
        x = newX;
        y = newY;

        ref += 1;
        const int atEnd = (ref >= (uint)(orbitLen - 1)) ? 1 : 0;
        if (atEnd) {
            // No recorded reference point beyond the last sample: clamp
            // instead of reading past the end of orbitX/orbitY, and
            // force the rebase below.
            ref = (uint)(orbitLen - 1);
        }
        const float rx2 = orbitX[ref];
        const float ry2 = orbitY[ref];

        const float zx = x + rx2;
        const float zy = y + ry2;
        const float zmag = zx*zx + zy*zy;
        const float dmag = x*x + y*y;

        if (zmag > 10000.0f) {
            status[idx] = 1; // escaped
            break;
        } else if (atEnd || zmag < dmag) {
            x += rx2;
            y += ry2;
            ref = 0;
        }
        iter += 1;
    }

    dx[idx] = x;
    dy[idx] = y;
    refIteration[idx] = ref;
    iteration[idx] = iter;

    if (status[idx] == 0 && iter >= (uint)iterations) {
        status[idx] = 2; // exhausted
    }
    if (status[idx] == 0) {
        atomic_inc(remaining);
    }
}
`

// gpuDispatcher executes the kernel as one OpenCL work-item per pixel,
// launched as a one-dimensional range with a local size of 256. Smooth coloring is
// finished on the host once a pixel leaves the Active state, since the
// palette lookup's bilinear, linear-light blend is cheap relative to
// the perturbation recurrence and keeps the device kernel small.
type gpuDispatcher struct {
	runtime *gpu.Runtime
	context C.cl_context
	queue   C.cl_command_queue
	device  C.cl_device_id
	program C.cl_program
	kern    C.cl_kernel
}

func newGPUDispatcher() (Dispatcher, error) {
	rt, err := gpu.InitOpenCL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	d := &gpuDispatcher{
		runtime: rt,
		context: C.cl_context(rt.ContextPtr()),
		queue:   C.cl_command_queue(rt.QueuePtr()),
		device:  C.cl_device_id(rt.DevicePtr()),
	}

	if err := d.build(); err != nil {
		rt.Close()
		return nil, err
	}

	slog.Info("gpu backend initialised",
		"device", rt.Device.Name,
		"vendor", rt.Device.Vendor,
		"compute_units", rt.Device.MaxComputeUnits,
	)
	return d, nil
}

func (d *gpuDispatcher) build() error {
	source := C.CString(openclKernelSource)
	defer C.free(unsafe.Pointer(source))

	var status C.cl_int
	d.program = C.clCreateProgramWithSource(d.context, 1, &source, nil, &status)
	if status != C.CL_SUCCESS {
		return clError("clCreateProgramWithSource", status)
	}

	status = C.clBuildProgram(d.program, 1, &d.device, nil, nil, nil)
	if status != C.CL_SUCCESS {
		return clError("clBuildProgram", status)
	}

	name := C.CString("mandel_step")
	defer C.free(unsafe.Pointer(name))
	d.kern = C.clCreateKernel(d.program, name, &status)
	if status != C.CL_SUCCESS {
		return clError("clCreateKernel", status)
	}
	return nil
}

// Dispatch uploads the pixel-state grid and reference orbit, runs one
// bounded NDRange over every pixel, and reads the updated state back.
// Buffers are created fresh per dispatch: a render's orbit and grid
// dimensions are fixed for its lifetime, but this keeps the dispatcher
// simple at the cost of reupload bandwidth the production design would
// amortize with persistent buffers.
func (d *gpuDispatcher) Dispatch(grid *Grid, store *orbit.Store, coeffs orbit.Coefficients, iterations, batchIter int, pal palette.Palette, colorScale float64) {
	grid.ResetRemaining()

	n := len(grid.Pixels)
	orbitX := make([]float32, store.Len())
	orbitY := make([]float32, store.Len())
	for i := 0; i < store.Len(); i++ {
		orbitX[i], orbitY[i] = kernel.LiftPoint(store.At(i))
	}

	dxs := make([]float32, n)
	dys := make([]float32, n)
	dx0s := make([]float32, n)
	dy0s := make([]float32, n)
	refIters := make([]uint32, n)
	iters := make([]uint32, n)
	statuses := make([]uint8, n)

	for i, ps := range grid.Pixels {
		dxs[i], dys[i] = ps.DX, ps.DY
		dx0s[i], dy0s[i] = ps.DX0, ps.DY0
		refIters[i], iters[i] = ps.RefIteration, ps.Iteration
		statuses[i] = uint8(ps.Status)
	}

	orbitXBuf := d.uploadFloat32(orbitX, C.CL_MEM_READ_ONLY)
	orbitYBuf := d.uploadFloat32(orbitY, C.CL_MEM_READ_ONLY)
	dxBuf := d.uploadFloat32(dxs, C.CL_MEM_READ_WRITE)
	dyBuf := d.uploadFloat32(dys, C.CL_MEM_READ_WRITE)
	dx0Buf := d.uploadFloat32(dx0s, C.CL_MEM_READ_ONLY)
	dy0Buf := d.uploadFloat32(dy0s, C.CL_MEM_READ_ONLY)
	refBuf := d.uploadUint32(refIters, C.CL_MEM_READ_WRITE)
	iterBuf := d.uploadUint32(iters, C.CL_MEM_READ_WRITE)
	statusBuf := d.uploadUint8(statuses, C.CL_MEM_READ_WRITE)

	var zero uint32
	remainingBuf := d.uploadUint32([]uint32{zero}, C.CL_MEM_READ_WRITE)

	defer releaseBuffer(orbitXBuf)
	defer releaseBuffer(orbitYBuf)
	defer releaseBuffer(dx0Buf)
	defer releaseBuffer(dy0Buf)
	defer releaseBuffer(remainingBuf)

	d.setArgs(n, store.Len(), iterations, batchIter, orbitXBuf, orbitYBuf, dxBuf, dyBuf, dx0Buf, dy0Buf, refBuf, iterBuf, statusBuf, remainingBuf)

	global := C.size_t(n)
	local := C.size_t(256)
	if status := C.clEnqueueNDRangeKernel(d.queue, d.kern, 1, nil, &global, &local, 0, nil, nil); status != C.CL_SUCCESS {
		slog.Error("gpu dispatch failed", "error", clError("clEnqueueNDRangeKernel", status))
		releaseBuffer(dxBuf)
		releaseBuffer(dyBuf)
		releaseBuffer(refBuf)
		releaseBuffer(iterBuf)
		releaseBuffer(statusBuf)
		return
	}
	C.clFinish(d.queue)

	d.readFloat32(dxBuf, dxs)
	d.readFloat32(dyBuf, dys)
	d.readUint32(refBuf, refIters)
	d.readUint32(iterBuf, iters)
	d.readUint8(statusBuf, statuses)

	releaseBuffer(dxBuf)
	releaseBuffer(dyBuf)
	releaseBuffer(refBuf)
	releaseBuffer(iterBuf)
	releaseBuffer(statusBuf)

	remainingCount := uint64(0)
	for i := range grid.Pixels {
		ps := &grid.Pixels[i]
		ps.DX, ps.DY = dxs[i], dys[i]
		ps.RefIteration, ps.Iteration = refIters[i], iters[i]
		ps.Status = kernel.Status(statuses[i])

		if ps.Status == kernel.Active {
			remainingCount++
			continue
		}
		if ps.Status == kernel.Escaped {
			rx, ry := kernel.LiftPoint(store.At(int(ps.RefIteration)))
			ps.Color = kernel.HostSmoothColor(int(ps.Iteration), ps.DX+rx, ps.DY+ry, pal, colorScale)
		} else {
			ps.Color = palette.Color{}
		}
	}
	for i := uint64(0); i < remainingCount; i++ {
		grid.MarkActive()
	}
}

func (d *gpuDispatcher) Close() {
	if d.kern != nil {
		C.clReleaseKernel(d.kern)
	}
	if d.program != nil {
		C.clReleaseProgram(d.program)
	}
	d.runtime.Close()
}

func (d *gpuDispatcher) uploadFloat32(data []float32, flags C.cl_mem_flags) C.cl_mem {
	var status C.cl_int
	size := C.size_t(len(data)) * C.size_t(unsafe.Sizeof(float32(0)))
	buf := C.clCreateBuffer(d.context, flags|C.CL_MEM_COPY_HOST_PTR, size, unsafe.Pointer(&data[0]), &status)
	return buf
}

func (d *gpuDispatcher) uploadUint32(data []uint32, flags C.cl_mem_flags) C.cl_mem {
	var status C.cl_int
	size := C.size_t(len(data)) * C.size_t(unsafe.Sizeof(uint32(0)))
	buf := C.clCreateBuffer(d.context, flags|C.CL_MEM_COPY_HOST_PTR, size, unsafe.Pointer(&data[0]), &status)
	return buf
}

func (d *gpuDispatcher) uploadUint8(data []uint8, flags C.cl_mem_flags) C.cl_mem {
	var status C.cl_int
	size := C.size_t(len(data))
	buf := C.clCreateBuffer(d.context, flags|C.CL_MEM_COPY_HOST_PTR, size, unsafe.Pointer(&data[0]), &status)
	return buf
}

func (d *gpuDispatcher) readFloat32(buf C.cl_mem, out []float32) {
	size := C.size_t(len(out)) * C.size_t(unsafe.Sizeof(float32(0)))
	C.clEnqueueReadBuffer(d.queue, buf, C.CL_TRUE, 0, size, unsafe.Pointer(&out[0]), 0, nil, nil)
}

func (d *gpuDispatcher) readUint32(buf C.cl_mem, out []uint32) {
	size := C.size_t(len(out)) * C.size_t(unsafe.Sizeof(uint32(0)))
	C.clEnqueueReadBuffer(d.queue, buf, C.CL_TRUE, 0, size, unsafe.Pointer(&out[0]), 0, nil, nil)
}

func (d *gpuDispatcher) readUint8(buf C.cl_mem, out []uint8) {
	size := C.size_t(len(out))
	C.clEnqueueReadBuffer(d.queue, buf, C.CL_TRUE, 0, size, unsafe.Pointer(&out[0]), 0, nil, nil)
}

func (d *gpuDispatcher) setArgs(pixelCount, orbitLen, iterations, batchIter int, orbitX, orbitY, dx, dy, dx0, dy0, ref, iter, status, remaining C.cl_mem) {
	argInt := func(i C.cl_uint, v C.int) {
		C.clSetKernelArg(d.kern, i, C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v))
	}
	argMem := func(i C.cl_uint, v C.cl_mem) {
		C.clSetKernelArg(d.kern, i, C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v))
	}
	argInt(0, C.int(pixelCount))
	argInt(1, C.int(orbitLen))
	argInt(2, C.int(iterations))
	argInt(3, C.int(batchIter))
	argMem(4, orbitX)
	argMem(5, orbitY)
	argMem(6, dx)
	argMem(7, dy)
	argMem(8, dx0)
	argMem(9, dy0)
	argMem(10, ref)
	argMem(11, iter)
	argMem(12, status)
	argMem(13, remaining)
}

func releaseBuffer(buf C.cl_mem) {
	if buf != nil {
		C.clReleaseMemObject(buf)
	}
}

func clError(prefix string, status C.cl_int) error {
	return fmt.Errorf("%s: opencl status %d", prefix, int(status))
}

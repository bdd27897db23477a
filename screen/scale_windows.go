//go:build windows

package screen

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/kbinani/screenshot"
)

// Per-monitor DPI lookup. Prefers GetDpiForMonitor (Win 8.1+), falls back to
// the system DPI, then 1.0.

const (
	mdtEffectiveDPI      = 0
	monitorDefaultToNear = 2
	logPixelsX           = 88
	baselineDPI          = 96.0
)

var (
	modShcore            = windows.NewLazySystemDLL("shcore.dll")
	modUser32            = windows.NewLazySystemDLL("user32.dll")
	modGdi32             = windows.NewLazySystemDLL("gdi32.dll")
	procGetDpiForMonitor = modShcore.NewProc("GetDpiForMonitor")
	procMonitorFromPoint = modUser32.NewProc("MonitorFromPoint")
	procGetDC            = modUser32.NewProc("GetDC")
	procReleaseDC        = modUser32.NewProc("ReleaseDC")
	procGetDeviceCaps    = modGdi32.NewProc("GetDeviceCaps")
)

type winPoint struct {
	X, Y int32
}

// displayScale returns the DPI scale factor for a display.
func displayScale(index int) float64 {
	bounds := screenshot.GetDisplayBounds(index)
	cx := int32(bounds.Min.X + bounds.Dx()/2)
	cy := int32(bounds.Min.Y + bounds.Dy()/2)

	if procGetDpiForMonitor.Find() == nil && procMonitorFromPoint.Find() == nil {
		pt := winPoint{X: cx, Y: cy}
		hmon, _, _ := procMonitorFromPoint.Call(
			uintptr(*(*int64)(unsafe.Pointer(&pt))), monitorDefaultToNear)
		if hmon != 0 {
			var dpiX, dpiY uint32
			r, _, _ := procGetDpiForMonitor.Call(hmon, mdtEffectiveDPI,
				uintptr(unsafe.Pointer(&dpiX)), uintptr(unsafe.Pointer(&dpiY)))
			if r == 0 && dpiX > 0 {
				return float64(dpiX) / baselineDPI
			}
		}
	}
	return systemScale()
}

// systemScale reads the system-wide DPI from the screen DC.
func systemScale() float64 {
	hdc, _, _ := procGetDC.Call(0)
	if hdc == 0 {
		return 1.0
	}
	defer procReleaseDC.Call(0, hdc)
	dpi, _, _ := procGetDeviceCaps.Call(hdc, logPixelsX)
	if dpi == 0 {
		return 1.0
	}
	return float64(dpi) / baselineDPI
}

// Package platform is the windowing collaborator spec.md §6 describes:
// a thin adapter over *glfw.Window supplying the surface-creation
// callback and framebuffer-size query the swapchain needs, the
// required-instance-extension list the device needs, input-event
// polling, and window-geometry persistence.
//
// Grounded on the teacher's display.go (CoreDisplay.GetVulkanSurface,
// GetSize) generalized to satisfy swapchain.SurfaceFunc/ExtentFunc and
// instance.ProbeSurfaceFunc directly, with the init-sequence and
// resize-callback shape of mrigankad-gorenderengine/core/window.go
// (NewWindow, SetSizeCallback).
package platform

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

func init() {
	runtime.LockOSThread()
}

// Window owns the GLFW window backing the swapchain's surface. glfw
// must only be touched from the OS thread it was initialized on,
// hence the runtime.LockOSThread above.
type Window struct {
	handle *glfw.Window

	mu      sync.Mutex
	width   int
	height  int
	resized bool
}

// New initializes GLFW and opens a window sized per cfg. ClientAPI is
// forced to NoAPI since Vulkan owns the surface (the teacher's
// render_test.go does the same before calling vk.Init).
func New(cfg WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("platform: glfw.Init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, boolToInt(cfg.Resizable))
	glfw.WindowHint(glfw.Visible, glfw.True)

	var monitor *glfw.Monitor
	if cfg.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}

	handle, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("platform: CreateWindow: %w", err)
	}

	w := &Window{handle: handle, width: cfg.Width, height: cfg.Height}
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.mu.Lock()
		w.width, w.height = width, height
		w.resized = true
		w.mu.Unlock()
	})
	return w, nil
}

// CreateSurface satisfies instance.ProbeSurfaceFunc and
// swapchain.SurfaceFunc: both need a fresh vk.Surface bound to this
// window on demand (probe once at device selection, again on every
// swapchain recreate).
func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := w.handle.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("platform: CreateWindowSurface: %w", err)
	}
	return vk.SurfaceFromPointer(ptr), nil
}

// FramebufferSize satisfies swapchain.ExtentFunc. A (0,0) result is
// the signal the swapchain's StatePaused transition watches for
// (spec.md §4.3 "the window is minimized").
func (w *Window) FramebufferSize() (uint32, uint32) {
	width, height := w.handle.GetFramebufferSize()
	return uint32(width), uint32(height)
}

// RequiredInstanceExtensions feeds instance.Config.RequiredInstanceExts.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.handle.GetRequiredInstanceExtensions()
}

// ShouldClose reports whether the user requested the window close.
func (w *Window) ShouldClose() bool { return w.handle.ShouldClose() }

// PollEvents pumps the GLFW event queue, delivering queued resize and
// input callbacks.
func (w *Window) PollEvents() { glfw.PollEvents() }

// ConsumeResized reports whether the framebuffer size changed since
// the last call and clears the flag, letting the caller decide
// whether to recreate the swapchain this tick instead of racing the
// callback against the render loop.
func (w *Window) ConsumeResized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.resized
	w.resized = false
	return r
}

// KeyPressed reports whether key is currently held.
func (w *Window) KeyPressed(key glfw.Key) bool {
	return w.handle.GetKey(key) == glfw.Press
}

// CursorPos returns the cursor position in window-local coordinates.
func (w *Window) CursorPos() (float64, float64) {
	return w.handle.GetCursorPos()
}

// Destroy closes the window and terminates GLFW.
func (w *Window) Destroy() {
	w.handle.Destroy()
	glfw.Terminate()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

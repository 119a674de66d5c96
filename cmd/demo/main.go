// Command demo wires every package in this module into the frame
// lifecycle spec.md describes: open a window, bring up the instance
// and device, build the swapchain and VRAM allocator, spin up the
// frame scheduler, load one mesh through the resource store, and
// render a frame every tick until the window closes. The mesh is not
// uploaded or drawn: the draw list carries no batches, so each frame
// only clears the screen.
//
// Grounded on the teacher's test/render_test.go (glfw init sequence,
// main loop shape) generalized from a test into a standalone binary.
package main

import (
	"os"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vkengine/internal/logx"
	"github.com/andewx/vkengine/platform"
	"github.com/andewx/vkengine/resource"
	"github.com/andewx/vkengine/vk/descriptor"
	"github.com/andewx/vkengine/vk/instance"
	"github.com/andewx/vkengine/vk/renderer"
	"github.com/andewx/vkengine/vk/swapchain"
	"github.com/andewx/vkengine/vk/vram"
)

func main() {
	log := logx.New("demo")

	cfgPath := "window.toml"
	winCfg, extra, err := platform.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load window config")
	}

	win, err := platform.New(winCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open window")
	}
	defer win.Destroy()
	defer platform.SaveConfig(cfgPath, winCfg, extra)

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		log.Fatal().Err(err).Msg("vk.Init")
	}

	dev, err := instance.New(instance.Config{
		AppName:              "vkengine-demo",
		EngineName:           "vkengine",
		RequiredInstanceExts: win.RequiredInstanceExtensions(),
		EnableValidation:     os.Getenv("VKENGINE_VALIDATION") != "",
		ProbeSurface:         win.CreateSurface,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("instance.New")
	}
	defer dev.Destroy()

	sc, err := swapchain.New(swapchain.Config{
		Instance:        dev.Instance,
		Physical:        dev.Physical,
		Device:          dev.Handle,
		GraphicsFamily:  dev.Families.Graphics,
		PresentQueue:    dev.PresentQueue,
		DepthFormat:     dev.Limits.DepthFormat,
		CreateSurface:   win.CreateSurface,
		FramebufferSize: win.FramebufferSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("swapchain.New")
	}
	defer sc.Destroy()

	alloc, err := vram.New(dev.Handle, dev.MemProperties, dev.TransferQueue, dev.Families.Transfer)
	if err != nil {
		log.Fatal().Err(err).Msg("vram.New")
	}
	defer alloc.Shutdown()

	sched, err := renderer.New(renderer.Config{
		Device:         dev.Handle,
		GraphicsFamily: dev.Families.Graphics,
		GraphicsQueue:  dev.GraphicsQueue,
		PresentQueue:   dev.PresentQueue,
		MaxSamplers:    descriptor.MaxDiffuse,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("renderer.New")
	}
	defer sched.Destroy(alloc)

	fallback, err := descriptor.NewFallbackTextures(dev.Handle, alloc)
	if err != nil {
		log.Fatal().Err(err).Msg("fallback textures")
	}

	store := resource.New()
	watcher, err := resource.NewWatcher(store)
	if err != nil {
		log.Fatal().Err(err).Msg("resource.NewWatcher")
	}
	defer watcher.Close()

	assetDir := "assets"
	if _, loadErr := store.Load("mesh.default", assetDir+"/mesh.glb", resource.LoadMesh); loadErr != nil {
		log.Warn().Err(loadErr).Msg("no default mesh; rendering an empty frame")
	}

	start := time.Now()
	pollInterval := 500 * time.Millisecond
	lastPoll := time.Now()

	for !win.ShouldClose() {
		win.PollEvents()
		win.ConsumeResized()

		if time.Since(lastPoll) >= pollInterval {
			watcher.Poll()
			store.Update(func(id string, old interface{}) {
				log.Info().Str("id", id).Msg("asset reloaded")
			})
			lastPoll = time.Now()
		}

		list := descriptor.DrawList{
			ClearColor: [4]float32{0.02, 0.02, 0.04, 1},
			ClearDepth: 1.0,
			View: descriptor.ViewUBO{
				Time: float32(time.Since(start).Seconds()),
			},
		}

		outcome, err := sched.RenderFrame(sc, alloc, list, fallback)
		if err != nil {
			log.Error().Err(err).Msg("RenderFrame")
			continue
		}
		if outcome == swapchain.OutcomeRecreated {
			log.Info().Msg("swapchain recreated")
		}
	}
}

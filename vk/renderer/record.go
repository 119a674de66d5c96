package renderer

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vkengine/vk/descriptor"
	"github.com/andewx/vkengine/vk/swapchain"
	"github.com/andewx/vkengine/vk/vkerr"
)

// recordFrame records the frame's single primary command buffer:
// begin, begin render pass (clearing to list's clear values), one
// setViewport/setScissor/draw sequence per batch with bind-pipeline
// memoization, end render pass, end.
func recordFrame(f *frame, sc *swapchain.Context, imageIdx uint32, batches []descriptor.OrderedBatch, list descriptor.DrawList) error {
	cmd := f.cmd

	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := vkerr.Result(vkerr.KindDeviceLost, "BeginCommandBuffer", ret); err != nil {
		return err
	}

	extent := sc.Extent()
	clearValues := []vk.ClearValue{
		vk.NewClearValue(list.ClearColor[:]),
		vk.NewClearDepthStencil(list.ClearDepth, list.ClearStencil),
	}

	vk.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  sc.RenderPass(),
		Framebuffer: sc.Framebuffer(imageIdx),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}, vk.SubpassContentsInline)

	for _, batch := range batches {
		viewport := transformViewport(batch.Viewport, extent)
		scissor := transformScissor(batch.Scissor, extent)
		vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
		vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor})

		var bound vk.Pipeline
		var boundLayout vk.PipelineLayout
		layoutBound := false
		for _, d := range batch.Drawables {
			if d.Pipeline != bound {
				bound = d.Pipeline
				vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, d.Pipeline)
			}
			if !layoutBound || d.PipelineLayout != boundLayout {
				boundLayout = d.PipelineLayout
				layoutBound = true
				sets := []vk.DescriptorSet{f.set.View, f.set.Object, f.set.Textures}
				vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, d.PipelineLayout, 0, uint32(len(sets)), sets, 0, nil)
			}
			pushBytes := d.Push.Bytes()
			vk.CmdPushConstants(cmd, d.PipelineLayout,
				vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
				0, uint32(len(pushBytes)), unsafe.Pointer(&pushBytes[0]))

			offsets := []vk.DeviceSize{0}
			vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{d.VertexBuffer}, offsets)
			if d.IndexCount > 0 {
				vk.CmdBindIndexBuffer(cmd, d.IndexBuffer, 0, vk.IndexTypeUint32)
				vk.CmdDrawIndexed(cmd, d.IndexCount, 1, 0, 0, 0)
			} else {
				vk.CmdDraw(cmd, d.VertexCount, 1, 0, 0)
			}
		}
	}

	vk.CmdEndRenderPass(cmd)
	if ret := vk.EndCommandBuffer(cmd); ret != vk.Success {
		return vkerr.Result(vkerr.KindDeviceLost, "EndCommandBuffer", ret)
	}
	return nil
}

// transformViewport converts a normalized batch rect into a
// Y-flipped pixel viewport (Vulkan's clip space has +Y down; flipping
// the viewport height restores the conventional top-left origin).
// Grounded on
// original_source/libs/engine/src/gfx/renderer.cpp:Renderer::transformViewport.
func transformViewport(r descriptor.ScreenRect, extent vk.Extent2D) vk.Viewport {
	w, h := float32(extent.Width), float32(extent.Height)
	sizeX := (r.Right - r.Left) * w
	sizeY := (r.Bottom - r.Top) * h
	height := -sizeY
	return vk.Viewport{
		X:        r.Left * w,
		Y:        r.Top*h - height,
		Width:    sizeX,
		Height:   height,
		MinDepth: 0,
		MaxDepth: 1,
	}
}

func transformScissor(r descriptor.ScreenRect, extent vk.Extent2D) vk.Rect2D {
	w, h := float32(extent.Width), float32(extent.Height)
	return vk.Rect2D{
		Offset: vk.Offset2D{X: int32(r.Left * w), Y: int32(r.Top * h)},
		Extent: vk.Extent2D{
			Width:  uint32((r.Right - r.Left) * w),
			Height: uint32((r.Bottom - r.Top) * h),
		},
	}
}

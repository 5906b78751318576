// Command d3d11demo records draws on parallel deferred contexts, replays
// them on the immediate context and prints device statistics.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/d3d11"
	"github.com/gogpu/d3d11/backend/native"
	"github.com/gogpu/d3d11/gpucore"
	"github.com/gogpu/d3d11/interop"
)

const vertexSource = `
@vertex
fn main(@location(0) pos: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 0.0, 1.0);
}
`

const fragmentSource = `
@fragment
fn main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.5, 0.0, 1.0);
}
`

type config struct {
	backend string
	lists   int
	draws   int
	size    uint32
	pending int
	debug   bool
	verbose bool
	output  string
}

func main() {
	var cfg config
	flag.StringVar(&cfg.backend, "backend", "", "backend name (empty selects the best available)")
	flag.IntVar(&cfg.lists, "lists", 4, "deferred command lists recorded in parallel")
	flag.IntVar(&cfg.draws, "draws", 256, "draws per command list")
	size := flag.Uint("size", 64, "render target width and height")
	flag.IntVar(&cfg.pending, "pending", d3d11.DefaultMaxPendingDraws, "draws before the immediate context flushes")
	flag.BoolVar(&cfg.debug, "debug", false, "enable backend validation")
	flag.BoolVar(&cfg.verbose, "v", false, "log at debug level")
	flag.StringVar(&cfg.output, "output", "", "write the render target to this BMP file")
	flag.Parse()
	cfg.size = uint32(*size)

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	d3d11.SetLogger(logger)
	native.SetLogger(logger)

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("d3d11demo: %v", err)
	}
}

func run(ctx context.Context, cfg config) error {
	dev, err := interop.Open(interop.Config{
		Backend: cfg.backend,
		Debug:   cfg.debug,
		Options: []d3d11.Option{d3d11.WithMaxPendingDraws(cfg.pending)},
	}, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}()
	info := dev.Info()
	log.Printf("device %q on %s backend", info.Name, info.Backend)

	vs, err := dev.CreateShader(gpucore.ShaderStageVertex, "demo vs", vertexSource)
	if err != nil {
		return err
	}
	fs, err := dev.CreateShader(gpucore.ShaderStageFragment, "demo fs", fragmentSource)
	if err != nil {
		return err
	}

	target, err := dev.CreateTexture(&d3d11.TextureDesc{
		Label:     "target",
		Dimension: gpucore.ImageType2D,
		Format:    gpucore.FormatRGBA8Unorm,
		Width:     cfg.size,
		Height:    cfg.size,
		MipLevels: 1,
		Bind:      d3d11.BindRenderTarget,
	}, nil)
	if err != nil {
		return err
	}
	defer target.Release()

	viewport := gpucore.Viewport{Width: float32(cfg.size), Height: float32(cfg.size), MaxDepth: 1}
	record := func(dc *d3d11.DeferredContext, vb *d3d11.Buffer, slot int) error {
		dc.SetShaders(vs, fs)
		dc.SetRenderTargets([]*d3d11.Texture{target}, nil)
		dc.SetViewports([]gpucore.Viewport{viewport})
		dc.SetVertexBuffers(0, []d3d11.VertexBufferBinding{{Buffer: vb, Stride: 8}})
		for i := range cfg.draws {
			mapType := d3d11.MapWriteNoOverwrite
			if i%triangleSlots == 0 {
				mapType = d3d11.MapWriteDiscard
			}
			m, err := dc.Map(vb, 0, mapType, 0)
			if err != nil {
				return err
			}
			off := uint32(i%triangleSlots) * triangleBytes
			putTriangle(m.Data[off:], float32(slot*cfg.draws+i))
			dc.Unmap(vb, 0)
			dc.Draw(3, off/8)
		}
		return nil
	}

	buffers := make([]*d3d11.Buffer, cfg.lists)
	fns := make([]d3d11.RecordFunc, cfg.lists)
	for i := range fns {
		vb, err := dev.CreateBuffer(&d3d11.BufferDesc{
			Label:     fmt.Sprintf("vertices %d", i),
			Size:      triangleSlots * triangleBytes,
			Usage:     d3d11.UsageDynamic,
			Bind:      d3d11.BindVertexBuffer,
			CPUAccess: d3d11.CPUAccessWrite,
		}, nil)
		if err != nil {
			return err
		}
		defer vb.Release()
		buffers[i] = vb
		fns[i] = func(dc *d3d11.DeferredContext) error { return record(dc, vb, i) }
	}

	start := time.Now()
	lists, err := dev.RecordParallel(ctx, fns...)
	if err != nil {
		return err
	}
	log.Printf("recorded %d command lists in %v", len(lists), time.Since(start))

	imm := dev.ImmediateContext()
	imm.ClearRenderTarget(target, [4]float32{0, 0, 0.2, 1})
	for _, l := range lists {
		if err := imm.ExecuteCommandList(l, false); err != nil {
			return err
		}
		l.Release()
	}

	img, err := readTarget(dev, target)
	if err != nil {
		return err
	}
	log.Printf("pixel (0,0) = %v", img.RGBAAt(0, 0))
	if cfg.output != "" {
		if err := writeBMP(cfg.output, img); err != nil {
			return err
		}
		log.Printf("render target saved to %s", cfg.output)
	}
	printStats(dev.Stats())
	return nil
}

func printStats(s d3d11.Stats) {
	p := message.NewPrinter(language.English)
	p.Printf("submissions: %d (retired %d)\n", s.Submissions, s.Retired)
	p.Printf("replayed:    %d chunks, %d commands\n", s.Chunks, s.Commands)
	p.Printf("flushes:     %d in %v\n", s.Flushes, s.FlushTime)
	p.Printf("waits:       %d in %v (max %v)\n", s.Waits, s.WaitTime, s.MaxWait)
	p.Printf("memory:      %d bytes device-local, %d bytes host-visible\n",
		s.Memory.DeviceLocalBytes, s.Memory.HostVisibleBytes)
	p.Printf("pipelines:   %d cached, %d hits\n", s.Pipelines.Len, s.Pipelines.Hits)
}

func writeBMP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

const (
	triangleSlots = 64
	triangleBytes = 3 * 8
)

// putTriangle writes a small triangle rotated by angle degrees.
func putTriangle(dst []byte, angle float32) {
	for v := range 3 {
		a := float64(angle)*math.Pi/180 + float64(v)*2*math.Pi/3
		binary.LittleEndian.PutUint32(dst[v*8:], math.Float32bits(float32(0.5*math.Cos(a))))
		binary.LittleEndian.PutUint32(dst[v*8+4:], math.Float32bits(float32(0.5*math.Sin(a))))
	}
}

// readTarget copies target to a staging texture and reads it back.
func readTarget(dev *d3d11.Device, target *d3d11.Texture) (*image.RGBA, error) {
	desc := target.Desc()
	desc.Label = "readback"
	desc.Usage = d3d11.UsageStaging
	desc.Bind = 0
	desc.CPUAccess = d3d11.CPUAccessRead
	staging, err := dev.CreateTexture(&desc, nil)
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	imm := dev.ImmediateContext()
	imm.CopyResource(staging, target)
	m, err := imm.Map(staging, 0, d3d11.MapRead, 0)
	if err != nil {
		return nil, err
	}
	defer imm.Unmap(staging, 0)

	img := image.NewRGBA(image.Rect(0, 0, int(desc.Width), int(desc.Height)))
	for y := range int(desc.Height) {
		row := m.Data[uint64(y)*m.RowPitch:]
		copy(img.Pix[y*img.Stride:(y+1)*img.Stride], row[:img.Stride])
	}
	return img, nil
}

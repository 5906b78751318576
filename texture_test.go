package d3d11

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/d3d11/backend"
	"github.com/gogpu/d3d11/gpucore"
)

func TestShadowBufferSize(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{LinearTiling: false})

	tests := []struct {
		name   string
		format gpucore.Format
		w, h   uint32
		want   uint64
	}{
		{"rgba8", gpucore.FormatRGBA8Unorm, 16, 8, 4 * 16 * 8},
		{"r32f odd", gpucore.FormatR32Float, 7, 3, 4 * 7 * 3},
		{"bc1 partial blocks", gpucore.FormatBC1RGBAUnorm, 10, 6, 8 * 3 * 2},
		{"bc3", gpucore.FormatBC3RGBAUnorm, 16, 16, 16 * 4 * 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := dev.CreateTexture(&TextureDesc{
				Label:     tt.name,
				Dimension: gpucore.ImageType2D,
				Format:    tt.format,
				Width:     tt.w,
				Height:    tt.h,
				Usage:     UsageDynamic,
				CPUAccess: CPUAccessWrite,
				Bind:      BindShaderResource,
			}, nil)
			if err != nil {
				t.Fatalf("CreateTexture() error = %v", err)
			}
			if tex.MapMode() != MapModeBuffer {
				t.Errorf("MapMode() = %v, want Buffer", tex.MapMode())
			}
			if got := tex.ShadowSize(); got != tt.want {
				t.Errorf("ShadowSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTextureMapModeSelection(t *testing.T) {
	staging := TextureDesc{
		Dimension: gpucore.ImageType2D,
		Format:    gpucore.FormatRGBA8Unorm,
		Width:     8,
		Height:    8,
		MipLevels: 1,
		Usage:     UsageStaging,
		CPUAccess: CPUAccessRead | CPUAccessWrite,
	}
	chain := staging
	chain.MipLevels = 0
	sampled := staging
	sampled.Usage, sampled.CPUAccess, sampled.Bind = UsageDefault, 0, BindShaderResource

	tests := []struct {
		name   string
		linear bool
		desc   TextureDesc
		want   MapMode
	}{
		{"staging on linear device", true, staging, MapModeDirect},
		{"staging without linear tiling", false, staging, MapModeBuffer},
		{"staging mip chain", true, chain, MapModeBuffer},
		{"no cpu access", true, sampled, MapModeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, _ := newTestDevice(t, backend.SoftwareConfig{LinearTiling: tt.linear})
			tex, err := dev.CreateTexture(&tt.desc, nil)
			if err != nil {
				t.Fatalf("CreateTexture() error = %v", err)
			}
			if got := tex.MapMode(); got != tt.want {
				t.Errorf("MapMode() = %v, want %v", got, tt.want)
			}
			if (tex.ShadowSize() != 0) != (tt.want == MapModeBuffer) {
				t.Errorf("ShadowSize() = %d with mode %v", tex.ShadowSize(), tt.want)
			}
		})
	}
}

func TestCreateTextureDefaults(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{})

	tex, err := dev.CreateTexture(&TextureDesc{
		Dimension: gpucore.ImageType2D,
		Format:    gpucore.FormatRGBA8Unorm,
		Width:     64,
		Height:    16,
		Bind:      BindShaderResource,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	d := tex.Desc()
	if d.MipLevels != 7 || d.ArraySize != 1 || d.Depth != 1 || d.SampleCount != 1 {
		t.Errorf("Desc() = %+v, want 7 mips and unit array size, depth and samples", d)
	}

	ms, err := dev.CreateTexture(&TextureDesc{
		Dimension:   gpucore.ImageType2D,
		Format:      gpucore.FormatRGBA8Unorm,
		Width:       64,
		Height:      64,
		SampleCount: 4,
		Bind:        BindRenderTarget,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture(4 samples) error = %v", err)
	}
	if got := ms.Desc().MipLevels; got != 1 {
		t.Errorf("multisampled MipLevels = %d, want 1", got)
	}

	cube, err := dev.CreateTexture(&TextureDesc{
		Dimension: gpucore.ImageType2D,
		Format:    gpucore.FormatRGBA8Unorm,
		Width:     16,
		Height:    16,
		ArraySize: 6,
		Bind:      BindShaderResource,
		Misc:      MiscTextureCube,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture(cube) error = %v", err)
	}
	if cube.img.Desc().Flags&gpucore.ImageFlagCubeCompatible == 0 {
		t.Errorf("cube texture missing cube-compatible flag")
	}

	vol, err := dev.CreateTexture(&TextureDesc{
		Dimension: gpucore.ImageType3D,
		Format:    gpucore.FormatRGBA8Unorm,
		Width:     8,
		Height:    8,
		Depth:     8,
		MipLevels: 1,
		Bind:      BindRenderTarget,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture(3D) error = %v", err)
	}
	if vol.img.Desc().Flags&gpucore.ImageFlag2DArrayCompatible == 0 {
		t.Errorf("3D render target missing 2D-array-compatible flag")
	}
}

func TestCreateTextureErrors(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{})

	base := TextureDesc{
		Dimension: gpucore.ImageType2D,
		Format:    gpucore.FormatRGBA8Unorm,
		Width:     16,
		Height:    16,
		MipLevels: 1,
		Bind:      BindShaderResource,
	}
	tests := []struct {
		name   string
		modify func(*TextureDesc)
		want   error
	}{
		{"zero width", func(d *TextureDesc) { d.Width = 0 }, ErrInvalidArg},
		{"three samples", func(d *TextureDesc) { d.SampleCount = 3 }, ErrInvalidArg},
		{"128 samples", func(d *TextureDesc) { d.SampleCount = 128 }, ErrInvalidArg},
		{"unsupported samples", func(d *TextureDesc) { d.SampleCount = 8 }, ErrUnsupported},
		{"too wide", func(d *TextureDesc) { d.Width = 1 << 15 }, ErrUnsupported},
		{"too many layers", func(d *TextureDesc) { d.ArraySize = 4096 }, ErrUnsupported},
		{"too many mips", func(d *TextureDesc) { d.MipLevels = 9 }, ErrInvalidArg},
		{"cube of five", func(d *TextureDesc) { d.ArraySize = 5; d.Misc = MiscTextureCube }, ErrInvalidArg},
		{"compressed render target", func(d *TextureDesc) {
			d.Format = gpucore.FormatBC1RGBAUnorm
			d.Bind = BindRenderTarget
		}, ErrUnsupported},
		{"immutable without data", func(d *TextureDesc) { d.Usage = UsageImmutable }, ErrInvalidArg},
		{"dynamic readable", func(d *TextureDesc) {
			d.Usage = UsageDynamic
			d.CPUAccess = CPUAccessRead | CPUAccessWrite
		}, ErrInvalidArg},
		{"bound staging", func(d *TextureDesc) {
			d.Usage = UsageStaging
			d.CPUAccess = CPUAccessRead
		}, ErrInvalidArg},
		{"1D with height", func(d *TextureDesc) { d.Dimension = gpucore.ImageType1D }, ErrInvalidArg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := base
			tt.modify(&desc)
			_, err := dev.CreateTexture(&desc, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("CreateTexture() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubresourceIndex(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{})
	tex, err := dev.CreateTexture(&TextureDesc{
		Dimension: gpucore.ImageType2D,
		Format:    gpucore.FormatRGBA8Unorm,
		Width:     8,
		Height:    8,
		MipLevels: 3,
		ArraySize: 2,
		Bind:      BindShaderResource,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}

	for index := range tex.Subresources() {
		sub, err := tex.Subresource(index)
		if err != nil {
			t.Fatalf("Subresource(%d) error = %v", index, err)
		}
		if sub.MipLevel != index%3 || sub.ArrayLayer != index/3 {
			t.Errorf("Subresource(%d) = mip %d layer %d", index, sub.MipLevel, sub.ArrayLayer)
		}
		if got := tex.SubresourceIndex(sub.MipLevel, sub.ArrayLayer); got != index {
			t.Errorf("SubresourceIndex(%d, %d) = %d, want %d", sub.MipLevel, sub.ArrayLayer, got, index)
		}
	}
	if _, err := tex.Subresource(6); !errors.Is(err, ErrInvalidArg) {
		t.Errorf("Subresource(6) error = %v, want ErrInvalidArg", err)
	}
}

func TestTextureInitialData(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{LinearTiling: true})

	// 2x2 RGBA8 with 4 bytes of row padding.
	padded := []byte{
		1, 1, 1, 1, 2, 2, 2, 2, 0xee, 0xee, 0xee, 0xee,
		3, 3, 3, 3, 4, 4, 4, 4,
	}
	want := []byte{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}

	tex, err := dev.CreateTexture(&TextureDesc{
		Dimension: gpucore.ImageType2D,
		Format:    gpucore.FormatRGBA8Unorm,
		Width:     2,
		Height:    2,
		MipLevels: 1,
		Usage:     UsageStaging,
		CPUAccess: CPUAccessRead,
	}, []SubresourceData{{Data: padded, RowPitch: 12}})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if tex.MapMode() != MapModeDirect {
		t.Fatalf("MapMode() = %v, want Direct", tex.MapMode())
	}

	ctx := dev.ImmediateContext()
	m, err := ctx.Map(tex, 0, MapRead, 0)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if m.RowPitch != 8 || m.DepthPitch != 16 {
		t.Errorf("pitches = %d/%d, want 8/16", m.RowPitch, m.DepthPitch)
	}
	if !bytes.Equal(m.Data, want) {
		t.Errorf("Map().Data = %v, want %v", m.Data, want)
	}
	ctx.Unmap(tex, 0)

	_, err = dev.CreateTexture(&TextureDesc{
		Dimension: gpucore.ImageType2D,
		Format:    gpucore.FormatRGBA8Unorm,
		Width:     2,
		Height:    2,
		MipLevels: 1,
		Bind:      BindShaderResource,
	}, []SubresourceData{{Data: want[:8]}})
	if !errors.Is(err, ErrInvalidArg) {
		t.Errorf("short initial data error = %v, want ErrInvalidArg", err)
	}
}

func TestPackSubresource(t *testing.T) {
	// Two slices of two 3-byte rows, stored with row pitch 4 and depth pitch 10.
	src := []byte{
		1, 2, 3, 0, 4, 5, 6, 0, 0, 0,
		7, 8, 9, 0, 10, 11, 12,
	}
	got, err := packSubresource(SubresourceData{Data: src, RowPitch: 4, DepthPitch: 10}, 3, 6, 2)
	if err != nil {
		t.Fatalf("packSubresource() error = %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if !bytes.Equal(got, want) {
		t.Errorf("packSubresource() = %v, want %v", got, want)
	}

	if _, err := packSubresource(SubresourceData{Data: src, RowPitch: 2}, 3, 6, 1); !errors.Is(err, ErrInvalidArg) {
		t.Errorf("pitch below row size error = %v, want ErrInvalidArg", err)
	}
}

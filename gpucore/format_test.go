package gpucore

import "testing"

func TestMipLevelCount(t *testing.T) {
	tests := []struct {
		extent Extent3D
		want   uint32
	}{
		{Extent3D{1, 1, 1}, 1},
		{Extent3D{2, 1, 1}, 2},
		{Extent3D{256, 256, 1}, 9},
		{Extent3D{300, 17, 1}, 9},
		{Extent3D{4, 4, 64}, 7},
	}
	for _, tt := range tests {
		if got := MipLevelCount(tt.extent); got != tt.want {
			t.Errorf("MipLevelCount(%v) = %d, want %d", tt.extent, got, tt.want)
		}
	}
}

func TestMipLevelExtent(t *testing.T) {
	got := MipLevelExtent(Extent3D{64, 16, 1}, 5)
	want := Extent3D{2, 1, 1}
	if got != want {
		t.Errorf("MipLevelExtent() = %v, want %v", got, want)
	}
}

func TestBlockCount(t *testing.T) {
	tests := []struct {
		name   string
		extent Extent3D
		block  Extent3D
		want   Extent3D
	}{
		{"texel", Extent3D{7, 3, 1}, texel, Extent3D{7, 3, 1}},
		{"bc exact", Extent3D{16, 8, 1}, block, Extent3D{4, 2, 1}},
		{"bc partial", Extent3D{5, 1, 1}, block, Extent3D{2, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BlockCount(tt.extent, tt.block); got != tt.want {
				t.Errorf("BlockCount() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatInfo(t *testing.T) {
	if got := FormatBC1RGBAUnorm.Info(); got.ElementSize != 8 || !got.Compressed() {
		t.Errorf("BC1 info = %+v, want 8-byte compressed blocks", got)
	}
	if FormatRGBA8Unorm.Info().Compressed() {
		t.Error("RGBA8Unorm reported as compressed")
	}
	if !FormatD24UnormS8Uint.IsDepthStencil() {
		t.Error("D24UnormS8Uint.IsDepthStencil() = false, want true")
	}
	if got := Format(9999).String(); got != "Format(9999)" {
		t.Errorf("String() = %q, want %q", got, "Format(9999)")
	}
}

func TestLinearLayout(t *testing.T) {
	extent := Extent3D{8, 4, 1}

	l0 := LinearLayout(FormatRGBA8Unorm, extent, 2, Subresource{MipLevel: 0})
	if l0.Offset != 0 || l0.RowPitch != 32 || l0.Size != 128 {
		t.Errorf("level 0 layout = %+v", l0)
	}

	l1 := LinearLayout(FormatRGBA8Unorm, extent, 2, Subresource{MipLevel: 1})
	if l1.Offset != 128 || l1.RowPitch != 16 || l1.Size != 32 {
		t.Errorf("level 1 layout = %+v", l1)
	}

	layer1 := LinearLayout(FormatRGBA8Unorm, extent, 2, Subresource{MipLevel: 1, ArrayLayer: 1})
	if layer1.Offset != 160+128 || layer1.ArrayPitch != 160 {
		t.Errorf("layer 1 level 1 layout = %+v", layer1)
	}

	if got := ImageSize(FormatRGBA8Unorm, extent, 2, 3); got != 480 {
		t.Errorf("ImageSize() = %d, want 480", got)
	}
}

func TestOptimizeLayout(t *testing.T) {
	tests := []struct {
		usage ImageUsage
		want  ImageLayout
	}{
		{ImageUsageColorAttachment | ImageUsageTransferSrc, ImageLayoutColorAttachment},
		{ImageUsageDepthStencilAttachment, ImageLayoutDepthStencilAttachment},
		{ImageUsageSampled | ImageUsageTransferDst, ImageLayoutShaderReadOnly},
		{ImageUsageSampled | ImageUsageColorAttachment, ImageLayoutGeneral},
		{ImageUsageStorage, ImageLayoutGeneral},
	}
	for _, tt := range tests {
		if got := OptimizeLayout(tt.usage); got != tt.want {
			t.Errorf("OptimizeLayout(%b) = %v, want %v", tt.usage, got, tt.want)
		}
	}
}

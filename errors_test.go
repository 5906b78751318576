package d3d11

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/d3d11/backend"
	"github.com/gogpu/d3d11/gpucore"
)

func TestErrorClassification(t *testing.T) {
	cause := errors.New("format rejected")
	tests := []struct {
		name string
		err  error
		kind error
		msg  string
	}{
		{"invalid argument", invalidArgf("d3d11: map of %q", "vb"), ErrInvalidArg, `map of "vb"`},
		{"invalid call", invalidCallf("d3d11: list %d", 3), ErrInvalidCall, "list 3"},
		{"classified cause", classify(ErrInvalidArg, cause), ErrInvalidArg, "format rejected"},
		{"unsupported", unsupported(cause, "format %s", gpucore.FormatRGBA8Unorm), ErrUnsupported, "format rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.msg) {
				t.Errorf("Error() = %q, want it to contain %q", tt.err, tt.msg)
			}
		})
	}
}

func TestNoOverwriteWithoutDiscardIsInvalidArg(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{})
	dc := newDeferred(t, dev)
	vb := dynamicVertices(t, dev, 16)

	_, err := dc.Map(vb, 0, MapWriteNoOverwrite, 0)
	if !errors.Is(err, ErrInvalidArg) {
		t.Fatalf("Map(no-overwrite) error = %v, want ErrInvalidArg", err)
	}
	if errors.Is(err, ErrInvalidCall) || errors.Is(err, ErrUnsupported) {
		t.Errorf("Map(no-overwrite) error = %v matches another kind", err)
	}
}

func TestShaderErrorsAreInvalidArg(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{})
	if _, err := dev.CreateShader(gpucore.ShaderStageCompute, "broken", "fn ("); !errors.Is(err, ErrInvalidArg) {
		t.Errorf("CreateShader(invalid WGSL) error = %v, want ErrInvalidArg", err)
	}
	if _, err := dev.CreateShaderFromSPIRV(gpucore.ShaderStageCompute, "short", []uint32{1}); !errors.Is(err, ErrInvalidArg) {
		t.Errorf("CreateShaderFromSPIRV(short) error = %v, want ErrInvalidArg", err)
	}
}

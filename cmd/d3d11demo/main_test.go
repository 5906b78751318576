package main

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/d3d11/backend"
)

func TestRunSoftware(t *testing.T) {
	out := filepath.Join(t.TempDir(), "target.bmp")
	cfg := config{
		backend: backend.BackendSoftware,
		lists:   3,
		draws:   triangleSlots + 6,
		size:    8,
		pending: 16,
		output:  out,
	}
	if err := run(context.Background(), cfg); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	fi, err := os.Stat(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if fi.Size() == 0 {
		t.Error("output is empty")
	}
}

func TestPutTriangle(t *testing.T) {
	buf := make([]byte, triangleBytes)
	putTriangle(buf, 0)
	x := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))
	if x != 0.5 || y != 0 {
		t.Errorf("first vertex = (%v, %v), want (0.5, 0)", x, y)
	}
}

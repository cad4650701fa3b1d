package cmd

import (
	"bufio"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresmejia3/biopass/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		r := bufio.NewReader(strings.NewReader(tt.input))
		assert.Equal(t, tt.want, confirm(r, "sure?"), "input %q", tt.input)
	}
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "2.0 KB", humanBytes(2048))
}

func TestDisplayAddr(t *testing.T) {
	assert.Equal(t, "localhost:8080", displayAddr(":8080"))
	assert.Equal(t, "0.0.0.0:9000", displayAddr("0.0.0.0:9000"))
}

func TestFrameFromFile(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 12, 6))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	img.Set(0, 0, color.NRGBA{A: 255})
	data, err := frame.FromImage(img, time.Now()).EncodeJPEG()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "face.jpg")
	require.NoError(t, os.WriteFile(path, data, 0644))

	f, err := frameFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 12, f.Width)
	assert.Equal(t, 6, f.Height)

	_, err = frameFromFile(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"run", "register", "login", "list", "label", "delete", "reset", "probe"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, have[name], "missing command %s", name)
	}
	assert.Equal(t, "true", probeCmd.Annotations[skipDB], "probe must not need a database")
}

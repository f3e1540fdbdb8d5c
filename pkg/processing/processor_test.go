package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/frame-selector/pkg/types"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8((x * 255) / width), uint8((y * 255) / height), 128, 255})
		}
	}
	return img
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	img := createTestImage(40, 30)

	for _, format := range []string{"png", "jpg", "webp"} {
		path := filepath.Join(dir, "frame."+format)
		require.NoError(t, p.SaveImage(img, path, format, 90, true), format)

		loaded, err := p.LoadImage(path)
		require.NoError(t, err, format)
		assert.Equal(t, 40, loaded.Bounds().Dx(), format)
		assert.Equal(t, 30, loaded.Bounds().Dy(), format)
	}
}

func TestLoadImageUnknownFormat(t *testing.T) {
	p := NewProcessor()
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := p.LoadImage(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, path)
	assert.ErrorContains(t, err, "unknown or unsupported format")

	_, err = p.LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestLoadImageWebPWithForeignExtension(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	webpPath := filepath.Join(dir, "frame.webp")
	require.NoError(t, p.SaveImage(createTestImage(20, 10), webpPath, "webp", 90, true))

	// frame sources name files by index, not by codec
	data, err := os.ReadFile(webpPath)
	require.NoError(t, err)
	renamed := filepath.Join(dir, "frame_0001.img")
	require.NoError(t, os.WriteFile(renamed, data, 0o644))

	img, err := p.LoadImage(renamed)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())
}

func TestLoadImageFromReader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, createTestImage(12, 8)))

	img, err := NewProcessor().LoadImageFromReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())

	_, err = NewProcessor().LoadImageFromReader(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestPrepareImageForModelResizes(t *testing.T) {
	p := NewProcessor()
	encoded, err := p.PrepareImageForModel(createTestImage(400, 200), "png", 100, 85)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())

	_, err = p.PrepareImageForModel(nil, "jpg", 0, 85)
	assert.Error(t, err)
}

func TestCropImageToBox(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(200, 100)

	crop, err := p.CropImageToBox(img, types.Box{X: 0.25, Y: 0.5, W: 0.5, H: 0.5}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, crop.Bounds().Dx())
	assert.Equal(t, 50, crop.Bounds().Dy())

	thumb, err := p.CropImageToBox(img, types.Box{X: 0, Y: 0, W: 1, H: 1}, 50, 50)
	require.NoError(t, err)
	assert.LessOrEqual(t, thumb.Bounds().Dx(), 50)
	assert.LessOrEqual(t, thumb.Bounds().Dy(), 50)
}

func TestCreateDebugOverlay(t *testing.T) {
	p := NewProcessor()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	overlay := p.CreateDebugOverlay(img, []types.Item{
		{Label: "sneaker", Confidence: 0.9, Box: types.Box{X: 0.1, Y: 0.1, W: 0.5, H: 0.5}},
	})

	r, g, b, a := overlay.At(10, 30).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0), b)
	assert.Equal(t, uint32(0xffff), a)

	// interior untouched
	_, g, _, _ = overlay.At(30, 30).RGBA()
	assert.Equal(t, uint32(0), g)
}

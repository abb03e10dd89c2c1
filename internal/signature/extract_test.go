package signature

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/lepinkainen/coverspectrum/internal/config"
	coverrors "github.com/lepinkainen/coverspectrum/internal/errors"
	"github.com/lepinkainen/coverspectrum/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractor(env *testutil.TestEnv) *Extractor {
	return NewExtractor(config.ThumbnailsConfig{
		Dir:     env.Path("thumbnails"),
		Size:    64,
		Quality: 75,
	})
}

func TestThumbnailPath(t *testing.T) {
	e := NewExtractor(config.ThumbnailsConfig{Dir: "nature_thumbnails", Size: 64, Quality: 75})
	got := e.ThumbnailPath(filepath.Join("nature_covers", "nature_636_8041.jpg"))
	assert.Equal(t, filepath.Join("nature_thumbnails", "nature_636_8041_thumbnail.jpg"), got)
}

func TestExtract_SolidColor(t *testing.T) {
	env := testutil.NewTestEnv(t)
	src := env.WriteSolidCover("covers/nature_1_2.jpg", testutil.RGB(0, 0, 255))

	res, err := newExtractor(env).Extract(src)
	require.NoError(t, err)

	assert.Equal(t, RGB{0, 0, 255}, res.RGB)
	assert.Equal(t, env.Path("thumbnails", "nature_1_2_thumbnail.jpg"), res.ThumbnailPath)

	thumb, err := imaging.Open(res.ThumbnailPath)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(64, 64), thumb.Bounds().Size())
}

func TestExtract_ReusesExistingThumbnail(t *testing.T) {
	env := testutil.NewTestEnv(t)
	src := env.WriteSolidCover("covers/nature_1_2.jpg", testutil.RGB(200, 10, 10))
	e := newExtractor(env)

	first, err := e.Extract(src)
	require.NoError(t, err)
	before, err := os.ReadFile(first.ThumbnailPath)
	require.NoError(t, err)
	info, err := os.Stat(first.ThumbnailPath)
	require.NoError(t, err)

	second, err := e.Extract(src)
	require.NoError(t, err)
	after, err := os.ReadFile(second.ThumbnailPath)
	require.NoError(t, err)
	info2, err := os.Stat(second.ThumbnailPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before, after)
	assert.Equal(t, info.ModTime(), info2.ModTime())
}

func TestExtract_GrayscaleSourceNormalizesToThreeChannels(t *testing.T) {
	env := testutil.NewTestEnv(t)
	gray := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range gray.Pix {
		gray.Pix[i] = 90
	}
	src := env.WritePNG("covers/gray.jpg", gray)

	res, err := newExtractor(env).Extract(src)
	require.NoError(t, err)
	assert.Equal(t, RGB{90, 90, 90}, res.RGB)
}

func TestExtract_TransparencyIsDropped(t *testing.T) {
	env := testutil.NewTestEnv(t)
	src := env.WritePNG("covers/alpha.jpg", testutil.Solid(16, 16, color.NRGBA{R: 0, G: 200, B: 0, A: 40}))

	res, err := newExtractor(env).Extract(src)
	require.NoError(t, err)
	assert.Equal(t, RGB{0, 200, 0}, res.RGB)
}

func TestExtract_CorruptImage(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("covers/broken.jpg", "<html>not an image</html>")

	res, err := newExtractor(env).Extract(env.Path("covers/broken.jpg"))

	require.Error(t, err)
	assert.True(t, coverrors.IsDecodeError(err))
	assert.Equal(t, RGB{}, res.RGB)
	assert.Equal(t, env.Path("thumbnails", "broken_thumbnail.jpg"), res.ThumbnailPath)
	env.RequireFileNotExists("thumbnails/broken_thumbnail.jpg")
}

func TestExtract_ThumbnailWriteFailure(t *testing.T) {
	env := testutil.NewTestEnv(t)
	src := env.WriteSolidCover("covers/nature_1_2.jpg", testutil.RGB(255, 255, 255))
	// a regular file where the thumbnail directory should be
	env.WriteFileString("thumbnails", "blocker")

	res, err := newExtractor(env).Extract(src)

	require.Error(t, err)
	var decodeErr *coverrors.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "save", decodeErr.Op)
	assert.Equal(t, RGB{}, res.RGB, "sentinel color on failure")
	assert.NotEmpty(t, res.ThumbnailPath)
}

func TestAverage_Truncates(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 1, B: 10, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 0, B: 11, A: 255})

	assert.Equal(t, RGB{127, 0, 10}, Average(img))
}

func TestAverage_SubImageAndEmpty(t *testing.T) {
	img := testutil.Solid(4, 4, testutil.RGB(10, 20, 30))
	img.SetNRGBA(0, 0, testutil.RGB(255, 255, 255))
	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.NRGBA)

	assert.Equal(t, RGB{10, 20, 30}, Average(sub))
	assert.Equal(t, RGB{}, Average(image.NewNRGBA(image.Rect(0, 0, 0, 0))))
}

func TestThumbnail_Size(t *testing.T) {
	thumb := Thumbnail(testutil.Solid(300, 400, testutil.RGB(1, 2, 3)), 64)
	assert.Equal(t, image.Pt(64, 64), thumb.Bounds().Size())
	assert.Equal(t, RGB{1, 2, 3}, Average(thumb))
}

package export

import (
	"bytes"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/inamate/svgfit/internal/asset"
	"github.com/inamate/svgfit/internal/render"
	"github.com/inamate/svgfit/internal/typeid"
)

const circleSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
  <circle cx="5" cy="5" r="5" fill="#0000ff"/>
</svg>`

func upload(t *testing.T, target, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newHandler(t *testing.T, renderer string) *Handler {
	log := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	return NewHandler(Options{
		Options:    asset.Options{Width: 200, Height: 100},
		Renderer:   renderer,
		Background: color.White,
	}, log)
}

func TestRenderPNG(t *testing.T) {
	for _, renderer := range []string{render.RendererRasterx, render.RendererGG} {
		t.Run(renderer, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newHandler(t, renderer).Render(rec, upload(t, "/render", "My Drawing.svg", circleSVG))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="my-drawing.png"`, rec.Header().Get("Content-Disposition"))

			img, err := png.Decode(rec.Body)
			require.NoError(t, err)
			assert.Equal(t, 200, img.Bounds().Dx())
			assert.Equal(t, 100, img.Bounds().Dy())

			// the circle is scaled to the canvas height and centered
			center := color.NRGBAModel.Convert(img.At(100, 50)).(color.NRGBA)
			assert.Greater(t, center.B, uint8(200))
			assert.Less(t, center.R, uint8(50))
			corner := color.NRGBAModel.Convert(img.At(5, 5)).(color.NRGBA)
			assert.Greater(t, corner.R, uint8(200))
		})
	}
}

func TestRenderJPEG(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(t, render.RendererRasterx).Render(rec, upload(t, "/render?format=jpg", "c.svg", circleSVG))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	_, err := jpeg.Decode(rec.Body)
	require.NoError(t, err)
}

func TestRenderErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(t, render.RendererRasterx).Render(rec, upload(t, "/render?format=gif", "c.svg", circleSVG))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	newHandler(t, render.RendererRasterx).Render(rec, upload(t, "/render", "e.svg", `<svg xmlns="http://www.w3.org/2000/svg"/>`))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	for _, q := range []string{"width=NaN", "height=Inf", "width=0", "height=-1"} {
		rec = httptest.NewRecorder()
		newHandler(t, render.RendererRasterx).Render(rec, upload(t, "/render?"+q, "c.svg", circleSVG))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec = httptest.NewRecorder()
	newHandler(t, "cairo").Render(rec, upload(t, "/render", "c.svg", circleSVG))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "logo-final.png", FileName("Logo Final.svg", render.PNG))
	assert.Equal(t, "cafe.jpg", FileName("dir/Café.svg", render.JPEG))

	name := FileName("!!!.svg", render.PNG)
	require.True(t, len(name) > 4)
	assert.NoError(t, typeid.Validate(name[:len(name)-4], typeid.PrefixRender))
}

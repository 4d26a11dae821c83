package ocr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmercado-dev/merchant-intake/internal/common"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner answers per command name.
type fakeRunner struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   []string
	onRun   func(key string, args []string) // side effects, e.g. pdftoppm writing pages
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	key := name
	// tesseract runs twice (text + tsv); discriminate by trailing arg
	if name == "tesseract" && len(args) > 0 && args[len(args)-1] == "tsv" {
		key = "tesseract-tsv"
	}
	f.calls = append(f.calls, key)
	if f.onRun != nil {
		f.onRun(key, args)
	}
	if err, ok := f.errs[key]; ok && err != nil {
		return nil, []byte("boom"), err
	}
	return f.outputs[key], nil, nil
}

// writePagePNG mimics pdftoppm: the output prefix is the last argument.
func writePagePNG(key string, args []string) {
	if key != "pdftoppm" || len(args) == 0 {
		return
	}
	prefix := args[len(args)-1]
	_ = os.WriteFile(prefix+"-1.png", []byte("png"), 0o644)
}

func newFakeExtractor(r Runner) *Extractor {
	e := NewExtractor(Config{}, testLogger())
	e.runner = r
	return e
}

func TestNormalizeStripsGridNoise(t *testing.T) {
	in := "Legal Name: Acme LLC   \r\n|||||____\nEIN: 12-3456789\n\n\n\n\nEnd"
	out := Normalize(in)
	assert.NotContains(t, out, "|||")
	assert.NotContains(t, out, "____")
	assert.NotContains(t, out, "\r")
	assert.NotContains(t, out, "\n\n\n")
	assert.Contains(t, out, "EIN: 12-3456789")
}

func TestHeuristicConfidence(t *testing.T) {
	rich := "Merchant Application\nEIN: 12-3456789\nRouting: 021000021\nRequested: $50,000.00\nPhone: (212) 555-0100\n" +
		strings.Repeat("business detail ", 20)
	poor := "x"
	assert.Greater(t, heuristicConfidence(rich), float32(0.8))
	assert.LessOrEqual(t, heuristicConfidence(poor), float32(0.2))
}

func TestExtractUnsupportedExtension(t *testing.T) {
	e := newFakeExtractor(&fakeRunner{})
	_, err := e.Extract(context.Background(), "/in/notes.docx")
	require.Error(t, err)
	assert.Equal(t, common.FailureUnsupportedFormat, common.KindOf(err))
	assert.False(t, common.IsTransient(err))
}

func TestExtractImage(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t96\tACME\n" +
		"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t88\tLLC\n"
	r := &fakeRunner{outputs: map[string][]byte{
		"tesseract":     []byte("ACME LLC\nRouting: 021000021\nAmount: $12.00"),
		"tesseract-tsv": []byte(tsv),
	}}
	e := newFakeExtractor(r)

	res, err := e.Extract(context.Background(), "/in/voided_check.png")
	require.NoError(t, err)
	assert.Equal(t, "image-ocr", res.Method)
	require.Len(t, res.Pages, 1)
	assert.Contains(t, res.Pages[0], "021000021")
	// mean tsv confidence (92%) dominates the blend
	assert.Greater(t, res.Confidence, float32(0.6))
	assert.Positive(t, res.Duration)
}

func TestExtractImageMissingBinaryIsTransient(t *testing.T) {
	r := &fakeRunner{errs: map[string]error{"tesseract": exec.ErrNotFound}}
	e := newFakeExtractor(r)

	_, err := e.Extract(context.Background(), "/in/check.jpg")
	require.Error(t, err)
	assert.Equal(t, common.FailureEngineUnavailable, common.KindOf(err))
	assert.True(t, common.IsTransient(err))
}

func TestExtractImageGarbledFileIsCorrupt(t *testing.T) {
	r := &fakeRunner{errs: map[string]error{"tesseract": errors.New("Error in pixReadStream")}}
	e := newFakeExtractor(r)

	_, err := e.Extract(context.Background(), "/in/check.jpg")
	require.Error(t, err)
	assert.Equal(t, common.FailureCorruptFile, common.KindOf(err))
	assert.False(t, common.IsTransient(err))
}

func TestHealthcheck(t *testing.T) {
	ok := newFakeExtractor(&fakeRunner{outputs: map[string][]byte{
		"tesseract": []byte("tesseract 5.3.0\n leptonica-1.82"),
	}})
	assert.NoError(t, ok.Healthcheck(context.Background()))

	missing := newFakeExtractor(&fakeRunner{errs: map[string]error{"tesseract": exec.ErrNotFound}})
	err := missing.Healthcheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, common.FailureEngineUnavailable, common.KindOf(err))
}

func TestPDFRasterOCRMissingTesseractIsTransient(t *testing.T) {
	r := &fakeRunner{
		errs:  map[string]error{"tesseract": exec.ErrNotFound},
		onRun: writePagePNG,
	}
	e := newFakeExtractor(r)

	// A missing engine must surface as retryable, not as a corrupt input
	// via empty pages.
	_, err := e.pdfToOCR(context.Background(), "/in/scan.pdf", 1)
	require.Error(t, err)
	assert.Equal(t, common.FailureEngineUnavailable, common.KindOf(err))
	assert.True(t, common.IsTransient(err))
}

func TestPDFRasterOCRBadPageDegradesToWarning(t *testing.T) {
	r := &fakeRunner{
		errs:  map[string]error{"tesseract": errors.New("Error in pixReadStream")},
		onRun: writePagePNG,
	}
	e := newFakeExtractor(r)

	res, err := e.pdfToOCR(context.Background(), "/in/scan.pdf", 1)
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	assert.Empty(t, res.Pages[0])
	assert.NotEmpty(t, res.Warnings)
}

func TestBlendConfidence(t *testing.T) {
	// engine signal dominates when present
	assert.InDelta(t, 0.7*0.9+0.3*0.5, float64(blendConfidence(0.9, 0.5)), 1e-6)
	// heuristic only when the engine gave nothing
	assert.InDelta(t, 0.5, float64(blendConfidence(0, 0.5)), 1e-6)
	assert.LessOrEqual(t, blendConfidence(1.0, 1.0), float32(1.0))
}

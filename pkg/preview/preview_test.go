package preview

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/igolaizola/lightshow/pkg/show"
)

func TestPlot(t *testing.T) {
	song := &show.SongSequence{
		SongID:          "s1",
		SongName:        "One",
		DurationSeconds: 12,
		Mode:            show.Strobe,
		Sequence: []show.ColorBlock{
			{Start: 0, End: 5, Color: "#FF0000"},
			{Start: 6, End: 10, Color: "#00FF00", StrobeColor2: "#0000FF"},
		},
	}
	b, err := Plot(song, "png", "")
	if err != nil {
		t.Fatalf("Plot() err = %v; want nil", err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Errorf("Plot() didn't return a png")
	}

	song.Sequence = append(song.Sequence, show.ColorBlock{Start: 9, End: 11, Color: "#FFFFFF"})
	if _, err := Plot(song, "png", ""); !errors.Is(err, show.ErrInvalid) {
		t.Errorf("Plot() of overlapping blocks err = %v; want ErrInvalid", err)
	}
}

func TestPlotStrobeColor(t *testing.T) {
	song := &show.SongSequence{
		SongID:          "s1",
		DurationSeconds: 10,
		Mode:            show.Strobe,
		Sequence:        []show.ColorBlock{{Start: 0, End: 10, Color: "#FF0000"}},
	}
	custom := color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff}

	b, err := Plot(song, "png", "#123456")
	if err != nil {
		t.Fatalf("Plot() err = %v; want nil", err)
	}
	if !hasColor(t, b, custom) {
		t.Errorf("Plot() with strobe color #123456 doesn't draw it")
	}
	b, err = Plot(song, "png", "")
	if err != nil {
		t.Fatalf("Plot() err = %v; want nil", err)
	}
	if hasColor(t, b, custom) {
		t.Errorf("Plot() with default strobe color draws #123456")
	}

	if _, err := Plot(song, "png", "white"); !errors.Is(err, show.ErrInvalid) {
		t.Errorf("Plot() with strobe color white err = %v; want ErrInvalid", err)
	}
}

func hasColor(t *testing.T, b []byte, want color.RGBA) bool {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("png.Decode() err = %v", err)
	}
	return findColor(img, want)
}

func findColor(img image.Image, want color.RGBA) bool {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if color.RGBAModel.Convert(img.At(x, y)).(color.RGBA) == want {
				return true
			}
		}
	}
	return false
}

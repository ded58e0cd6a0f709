package media

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestImageFitterShrinksLargeImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.png")
	if err := imaging.Save(imaging.New(3000, 1000, color.White), path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}

	if err := (ImageFitter{MaxWidth: 1920, MaxHeight: 1080}).Fit(path); err != nil {
		t.Fatalf("fit: %v", err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open fitted: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1920 || b.Dy() != 640 {
		t.Fatalf("unexpected fitted size %dx%d", b.Dx(), b.Dy())
	}
}

func TestImageFitterLeavesSmallImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.png")
	if err := imaging.Save(imaging.New(64, 64, color.Black), path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	before, _ := os.Stat(path)

	if err := (ImageFitter{MaxWidth: 1920, MaxHeight: 1080}).Fit(path); err != nil {
		t.Fatalf("fit: %v", err)
	}

	after, _ := os.Stat(path)
	if !after.ModTime().Equal(before.ModTime()) || after.Size() != before.Size() {
		t.Fatal("expected small image to be untouched")
	}
}

func TestImageFitterRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.jpg")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := (ImageFitter{MaxWidth: 10, MaxHeight: 10}).Fit(path); err == nil {
		t.Fatal("expected decode error")
	}
}

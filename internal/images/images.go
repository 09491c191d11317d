// Package images ingests uploaded pictures: random filenames, downscaling
// into a bounding box, and persistence under the static directory.
package images

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// Bounding boxes for the two picture kinds.
const (
	ProfileBox = 125
	NoteBox    = 400
)

var ErrUnsupportedType = errors.New("unsupported image type")

func allowedExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	}
	return false
}

func randomName(ext string) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf) + ext, nil
}

// fit returns the image scaled down to fit within box x box, preserving
// aspect ratio. Images already inside the box are returned unchanged.
func fit(src image.Image, box int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= box && h <= box {
		return src
	}

	var dw, dh int
	if w >= h {
		dw = box
		dh = h * box / w
	} else {
		dh = box
		dw = w * box / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// Save decodes the uploaded image, downscales it into the bounding box and
// writes it under dir with a random hex filename keeping the original
// extension. The generated filename is returned.
func Save(r io.Reader, originalName, dir string, box int) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExt(ext) {
		return "", ErrUnsupportedType
	}

	src, _, err := image.Decode(r)
	if err != nil {
		return "", err
	}
	resized := fit(src, box)

	filename, err := randomName(ext)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch ext {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, resized, nil)
	case ".png":
		err = png.Encode(f, resized)
	case ".gif":
		err = gif.Encode(f, resized, nil)
	}
	if err != nil {
		os.Remove(filepath.Join(dir, filename))
		return "", err
	}
	return filename, nil
}

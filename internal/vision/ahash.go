// Package vision implements the perceptual fingerprinting the stuck detector
// and the observe step rely on: a 64-bit average hash over an 8x8 grayscale
// reduction, compared by Hamming distance.
package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
)

const hashSide = 8

// AverageHash decodes img, reduces it to an 8x8 grayscale grid by block
// averaging, and emits a 64-bit value where bit i is set iff cell i exceeds
// the mean intensity. Deterministic for identical bytes.
func AverageHash(img []byte) (uint64, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return 0, fmt.Errorf("decode image: %w", err)
	}
	return hashImage(decoded), nil
}

func hashImage(img image.Image) uint64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return 0
	}

	var cells [hashSide * hashSide]float64
	for row := 0; row < hashSide; row++ {
		y0 := bounds.Min.Y + row*height/hashSide
		y1 := bounds.Min.Y + (row+1)*height/hashSide
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for col := 0; col < hashSide; col++ {
			x0 := bounds.Min.X + col*width/hashSide
			x1 := bounds.Min.X + (col+1)*width/hashSide
			if x1 <= x0 {
				x1 = x0 + 1
			}
			var sum, count float64
			for y := y0; y < y1 && y < bounds.Max.Y; y++ {
				for x := x0; x < x1 && x < bounds.Max.X; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					// Luma on 16-bit channel values.
					sum += 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
					count++
				}
			}
			if count > 0 {
				cells[row*hashSide+col] = sum / count
			}
		}
	}

	var mean float64
	for _, cell := range cells {
		mean += cell
	}
	mean /= float64(len(cells))

	var hash uint64
	for i, cell := range cells {
		if cell > mean {
			hash |= 1 << uint(i)
		}
	}
	return hash
}

// HammingDistance counts differing bits between two hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// DiffClass buckets the visual distance between two screenshots.
type DiffClass int

const (
	DiffIdentical DiffClass = iota
	DiffMinor
	DiffModerate
	DiffSignificant
	DiffMajor
)

func (d DiffClass) String() string {
	switch d {
	case DiffIdentical:
		return "identical"
	case DiffMinor:
		return "minor"
	case DiffModerate:
		return "moderate"
	case DiffSignificant:
		return "significant"
	default:
		return "major"
	}
}

// ClassifyDiff maps a Hamming distance onto the fixed thresholds
// 0 / <=5 / <=15 / <=30 / >30.
func ClassifyDiff(distance int) DiffClass {
	switch {
	case distance == 0:
		return DiffIdentical
	case distance <= 5:
		return DiffMinor
	case distance <= 15:
		return DiffModerate
	case distance <= 30:
		return DiffSignificant
	default:
		return DiffMajor
	}
}

// Package diskimage recognizes the raw floppy, VHD and PCjr cartridge
// image formats by file size and/or magic bytes, and reports the drive
// geometry that recognition implies.
package diskimage

import "fmt"

// Kind identifies the recognized image format.
type Kind int

const (
	KindUnknown Kind = iota
	KindFloppy
	KindVHD
	KindCartridge
)

func (k Kind) String() string {
	switch k {
	case KindFloppy:
		return "Floppy"
	case KindVHD:
		return "VHD"
	case KindCartridge:
		return "Cartridge"
	}
	return "Unknown"
}

// FloppyGeometry describes a recognized raw sector image's drive
// parameters.
type FloppyGeometry struct {
	SizeBytes           int
	Cylinders, Heads, SectorsPerTrack int
	Label               string
}

// floppySizes enumerates the exact raw image sizes this package
// recognizes, each with its implied drive geometry.
var floppySizes = []FloppyGeometry{
	{SizeBytes: 160 * 1024, Cylinders: 40, Heads: 1, SectorsPerTrack: 8, Label: "160KB 5.25\" SSDD-8"},
	{SizeBytes: 180 * 1024, Cylinders: 40, Heads: 1, SectorsPerTrack: 9, Label: "180KB 5.25\" SSDD-9"},
	{SizeBytes: 320 * 1024, Cylinders: 40, Heads: 2, SectorsPerTrack: 8, Label: "320KB 5.25\" DSDD-8"},
	{SizeBytes: 360 * 1024, Cylinders: 40, Heads: 2, SectorsPerTrack: 9, Label: "360KB 5.25\" DSDD-9"},
	{SizeBytes: 720 * 1024, Cylinders: 80, Heads: 2, SectorsPerTrack: 9, Label: "720KB 3.5\" DSDD"},
	{SizeBytes: 1200 * 1024, Cylinders: 80, Heads: 2, SectorsPerTrack: 15, Label: "1.2MB 5.25\" DSHD"},
	{SizeBytes: 1440 * 1024, Cylinders: 80, Heads: 2, SectorsPerTrack: 18, Label: "1.44MB 3.5\" DSHD"},
}

// xebecSectorSize and xebecGeometry describe the one fixed-geometry VHD
// layout recognized here: a 20MiB Xebec hard disk image.
const (
	xebecSectorSize = 512
	xebecCylinders  = 615
	xebecHeads      = 4
	xebecSectors    = 17
	xebecImageSize  = xebecSectorSize * xebecCylinders * xebecHeads * xebecSectors
)

// VHDGeometry describes a recognized fixed-geometry hard disk image.
type VHDGeometry struct {
	SizeBytes                       int
	Cylinders, Heads, SectorsPerTrack int
}

// jrcMagic is the byte sequence a PCjr cartridge dump starts with.
var jrcMagic = []byte{0x55, 0xAA}

// Identify classifies data by size and magic bytes, and returns the
// recognized Kind plus the sector/track geometry implied for floppy and
// VHD images.
func Identify(data []byte) (Kind, interface{}, error) {
	if geom, ok := matchFloppy(len(data)); ok {
		return KindFloppy, geom, nil
	}
	if len(data) == xebecImageSize {
		return KindVHD, VHDGeometry{
			SizeBytes:       len(data),
			Cylinders:       xebecCylinders,
			Heads:           xebecHeads,
			SectorsPerTrack: xebecSectors,
		}, nil
	}
	if isCartridge(data) {
		return KindCartridge, nil, nil
	}
	return KindUnknown, nil, fmt.Errorf("diskimage: unrecognized image of %d bytes", len(data))
}

func matchFloppy(size int) (FloppyGeometry, bool) {
	for _, g := range floppySizes {
		if g.SizeBytes == size {
			return g, true
		}
	}
	return FloppyGeometry{}, false
}

// isCartridge recognizes a PCjr JRC cartridge dump by its leading ROM
// signature and a plausible 8KiB-aligned size: cartridges are ROM
// images addressed on 8KiB/16KiB boundaries in the PCjr's cartridge
// slot.
func isCartridge(data []byte) bool {
	if len(data) < 2 || len(data)%(8*1024) != 0 {
		return false
	}
	return data[0] == jrcMagic[0] && data[1] == jrcMagic[1]
}

// Package romset implements ROM-set provides/requires resolution:
// ROM images keyed by md5 or filename, their load address/size/chip
// organization, the features a set provides or requires, and the patches
// and checkpoints a set carries for the memory it loads into.
package romset

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/dbalsom/martypc/hardware/bus"
	"github.com/dbalsom/martypc/logger"
)

// Organization describes how a multi-chip ROM image's bytes map onto the
// flat load region.
type Organization int

const (
	Normal Organization = iota
	Reversed
	InterleavedEven
	InterleavedOdd
)

// ROMEntry is one chip image within a Set.
type ROMEntry struct {
	Filename     string
	MD5          string
	LoadAddress  uint32
	Size         int
	Organization Organization
	ChipGroup    string
	Data         []byte
}

// PatchEntry mirrors bus.Patch, kept separate from the bus type so
// romset has no import-time dependency beyond bus.Patch's literal shape.
type PatchEntry struct {
	Label       string
	TriggerAddr uint32
	TargetAddr  uint32
	Bytes       []byte
	Reversible  bool
}

// CheckpointEntry mirrors bus.Checkpoint.
type CheckpointEntry struct {
	Label       string
	Addr        uint32
	Severity    logger.Severity
	Description string
}

// Set is one named ROM set: its chip images, the features it provides,
// the features it requires from other sets loaded alongside it, a
// priority used to break provider ties, and its patches/checkpoints.
type Set struct {
	Name      string
	OEM       bool
	Priority  int
	Entries   []ROMEntry
	Provides  []string
	Requires  []string
	Patches   []PatchEntry
	Checkpoints []CheckpointEntry
}

// Catalog is the collection of known ROM sets a configuration resolves
// features against.
type Catalog struct {
	Sets []*Set
}

func NewCatalog() *Catalog { return &Catalog{} }

func (c *Catalog) Add(s *Set) { c.Sets = append(c.Sets, s) }

// ByName returns the set with the given name, if present.
func (c *Catalog) ByName(name string) (*Set, bool) {
	for _, s := range c.Sets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Resolve picks, for each required feature, the highest-priority set
// that provides it, with OEM sets preferred on a priority tie.
func (c *Catalog) Resolve(required []string) ([]*Set, error) {
	resolved := make(map[string]*Set)
	for _, feature := range required {
		var best *Set
		for _, s := range c.Sets {
			if !providesFeature(s, feature) {
				continue
			}
			if best == nil || better(s, best) {
				best = s
			}
		}
		if best == nil {
			return nil, fmt.Errorf("romset: no ROM set provides feature %q", feature)
		}
		resolved[best.Name] = best
	}

	out := make([]*Set, 0, len(resolved))
	for _, s := range resolved {
		out = append(out, s)
	}

	for _, s := range out {
		for _, req := range s.Requires {
			if _, ok := findProvider(out, req); !ok {
				provider, err := c.findAndAppend(req, &out)
				if err != nil {
					return nil, fmt.Errorf("romset: resolving dependency of %q: %w", s.Name, err)
				}
				_ = provider
			}
		}
	}

	return out, nil
}

func (c *Catalog) findAndAppend(feature string, out *[]*Set) (*Set, error) {
	for _, s := range c.Sets {
		if providesFeature(s, feature) {
			*out = append(*out, s)
			return s, nil
		}
	}
	return nil, fmt.Errorf("no ROM set provides feature %q", feature)
}

func findProvider(sets []*Set, feature string) (*Set, bool) {
	for _, s := range sets {
		if providesFeature(s, feature) {
			return s, true
		}
	}
	return nil, false
}

func providesFeature(s *Set, feature string) bool {
	for _, p := range s.Provides {
		if p == feature {
			return true
		}
	}
	return false
}

// better reports whether candidate should win a tie over current:
// higher priority wins outright, and on an equal priority an OEM set is
// preferred.
func better(candidate, current *Set) bool {
	if candidate.Priority != current.Priority {
		return candidate.Priority > current.Priority
	}
	return candidate.OEM && !current.OEM
}

// VerifyMD5 confirms an entry's loaded Data matches its declared MD5, the
// integrity check a ROM set's loader runs before trusting an image.
func VerifyMD5(entry ROMEntry) bool {
	if entry.MD5 == "" {
		return true
	}
	sum := md5.Sum(entry.Data)
	return hex.EncodeToString(sum[:]) == entry.MD5
}

// organize reorders raw chip bytes into load order per Organization
// ("Reversed/InterleavedEven/InterleavedOdd" chip wiring).
func organize(data []byte, org Organization) []byte {
	switch org {
	case Reversed:
		out := make([]byte, len(data))
		for i, b := range data {
			out[len(data)-1-i] = b
		}
		return out
	case InterleavedEven, InterleavedOdd:
		out := make([]byte, 0, len(data))
		start := 0
		if org == InterleavedOdd {
			start = 1
		}
		for i := start; i < len(data); i += 2 {
			out = append(out, data[i])
		}
		return out
	default:
		return data
	}
}

// LoadInto installs every entry of the resolved sets into b, applying
// chip organization, then the sets' patches and checkpoints.
func LoadInto(b *bus.Bus, sets []*Set) {
	for _, s := range sets {
		for _, e := range s.Entries {
			ordered := organize(e.Data, e.Organization)
			b.InstallROM(e.LoadAddress, e.LoadAddress+uint32(len(ordered))-1, e.Filename, 0, ordered)
		}
		for _, p := range s.Patches {
			b.AddPatch(bus.Patch{
				Label:       p.Label,
				TriggerAddr: p.TriggerAddr,
				TargetAddr:  p.TargetAddr,
				TargetBytes: p.Bytes,
				Reversible:  p.Reversible,
			})
		}
		for _, cp := range s.Checkpoints {
			b.AddCheckpoint(bus.Checkpoint{
				Label:       cp.Label,
				Addr:        cp.Addr,
				Severity:    cp.Severity,
				Description: cp.Description,
			})
		}
	}
}

package keyframe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Portable is the durable form of a Store:
//
//	tracks:
//	  <object>:
//	    <property>: {times, values, interpolations[, handles]}
//	max_time: <seconds>
//	frame_rate: <fps>
//
// Values hold 3 floats per keyframe. Interpolations hold one
// Interpolation code (0 linear, 1 step, 2 bezier) per keyframe.
type Portable struct {
	Tracks    map[string]map[string]PortableTrack `json:"tracks" yaml:"tracks" toml:"tracks"`
	MaxTime   float64                             `json:"max_time" yaml:"max_time" toml:"max_time"`
	FrameRate int                                 `json:"frame_rate" yaml:"frame_rate" toml:"frame_rate"`
}

// PortableTrack is one track's keyframes in parallel arrays.
type PortableTrack struct {
	Times          []float64        `json:"times" yaml:"times,flow" toml:"times"`
	Values         []float64        `json:"values" yaml:"values,flow" toml:"values"`
	Interpolations []int            `json:"interpolations" yaml:"interpolations,flow" toml:"interpolations"`
	Handles        []PortableHandle `json:"handles,omitempty" yaml:"handles,omitempty" toml:"handles,omitempty"`
}

// PortableHandle stores the explicit Bézier control points of the keyframe
// at Index.
type PortableHandle struct {
	Index int        `json:"index" yaml:"index" toml:"index"`
	P1    [3]float64 `json:"p1" yaml:"p1,flow" toml:"p1"`
	P2    [3]float64 `json:"p2" yaml:"p2,flow" toml:"p2"`
}

// ToPortable snapshots the store's tracks, extent and frame rate.
func (s *Store) ToPortable() *Portable {
	p := &Portable{
		Tracks:    make(map[string]map[string]PortableTrack, len(s.tracks)),
		MaxTime:   s.maxTime,
		FrameRate: s.frameRate,
	}
	for id, props := range s.tracks {
		out := make(map[string]PortableTrack, len(props))
		for name, t := range props {
			out[name] = t.portable()
		}
		p.Tracks[id] = out
	}
	return p
}

func (t *Track) portable() PortableTrack {
	pt := PortableTrack{
		Times:          append([]float64{}, t.times[:t.count]...),
		Values:         append([]float64{}, t.values[:t.count*3]...),
		Interpolations: make([]int, t.count),
	}
	for i := 0; i < t.count; i++ {
		pt.Interpolations[i] = int(t.interps[i])
		if t.hasHandles[i] {
			h := t.handles[i]
			pt.Handles = append(pt.Handles, PortableHandle{
				Index: i,
				P1:    [3]float64{h.P1.X, h.P1.Y, h.P1.Z},
				P2:    [3]float64{h.P2.X, h.P2.Y, h.P2.Z},
			})
		}
	}
	return pt
}

// FromPortable rebuilds a store by replaying every stored keyframe through
// Track.Add, so the result obeys the same invariants as hand-built data.
func FromPortable(p *Portable) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("from portable: nil data")
	}
	if p.FrameRate <= 0 {
		return nil, fmt.Errorf("from portable: frame rate %d: %w", p.FrameRate, ErrInvalidFrameRate)
	}
	s := NewStore(StoreConfig{FrameRate: p.FrameRate, Capacity: portableCapacity(p)})
	if err := s.replay(p); err != nil {
		return nil, err
	}
	s.UpdateMaxTime(p.MaxTime)
	return s, nil
}

// portableCapacity sizes tracks so that every stored track fits.
func portableCapacity(p *Portable) int {
	return max(DefaultCapacity, longestTrack(p))
}

func longestTrack(p *Portable) int {
	n := 0
	for _, props := range p.Tracks {
		for _, pt := range props {
			n = max(n, len(pt.Times))
		}
	}
	return n
}

// replay adds every keyframe of p to s in a deterministic order.
func (s *Store) replay(p *Portable) error {
	for _, id := range sortedKeys(p.Tracks) {
		props := p.Tracks[id]
		for _, name := range sortedKeys(props) {
			if err := s.replayTrack(id, name, props[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) replayTrack(id, name string, pt PortableTrack) error {
	n := len(pt.Times)
	if len(pt.Values) != n*3 {
		return fmt.Errorf("from portable: %s/%s: %d values for %d keyframes: %w",
			id, name, len(pt.Values), n, ErrInvalidValue)
	}
	if len(pt.Interpolations) != n {
		return fmt.Errorf("from portable: %s/%s: %d interpolations for %d keyframes: %w",
			id, name, len(pt.Interpolations), n, ErrInvalidInterpolation)
	}
	handles := make(map[int]Handles, len(pt.Handles))
	for _, h := range pt.Handles {
		if h.Index < 0 || h.Index >= n {
			return fmt.Errorf("from portable: %s/%s: handle index %d: %w", id, name, h.Index, ErrIndexOutOfRange)
		}
		handles[h.Index] = Handles{
			P1: Vec3{h.P1[0], h.P1[1], h.P1[2]},
			P2: Vec3{h.P2[0], h.P2[1], h.P2[2]},
		}
	}

	t := s.AddTrack(id, name)
	for i := 0; i < n; i++ {
		v := Vec3{pt.Values[i*3], pt.Values[i*3+1], pt.Values[i*3+2]}
		code := pt.Interpolations[i]
		if code < 0 || code > int(InterpolationBezier) {
			return fmt.Errorf("from portable: %s/%s keyframe %d: code %d: %w",
				id, name, i, code, ErrInvalidInterpolation)
		}
		interp := Interpolation(code)
		var err error
		if h, ok := handles[i]; ok && interp == InterpolationBezier {
			_, err = t.AddBezier(pt.Times[i], v, h)
		} else {
			_, err = t.Add(pt.Times[i], v, interp)
		}
		if err != nil {
			return fmt.Errorf("from portable: %s/%s keyframe %d: %w", id, name, i, err)
		}
	}
	return nil
}

// --- Encoding ---

// Format selects the text encoding of a persisted timeline.
type Format uint8

const (
	FormatJSON Format = iota // encoding/json
	FormatYAML               // gopkg.in/yaml.v3
	FormatTOML               // github.com/BurntSushi/toml
)

// FormatFromPath picks a Format from a file extension (.json, .yaml, .yml,
// .toml).
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return 0, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// Encode serializes p in the given format.
func (p *Portable) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(p, "", "  ")
	case FormatYAML:
		return yaml.Marshal(p)
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(p); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, ErrUnsupportedFormat
}

// DecodePortable parses data in the given format.
func DecodePortable(data []byte, format Format) (*Portable, error) {
	var p Portable
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse timeline json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse timeline yaml: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &p); err != nil {
			return nil, fmt.Errorf("parse timeline toml: %w", err)
		}
	default:
		return nil, ErrUnsupportedFormat
	}
	return &p, nil
}

// SaveFile writes the store's portable form to path. The format follows the
// file extension.
func (s *Store) SaveFile(path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := s.ToPortable().Encode(format)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save timeline: %w", err)
	}
	return nil
}

// readPortable loads and decodes a timeline file.
func readPortable(path string) (*Portable, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	return DecodePortable(data, format)
}

// LoadFile reads a timeline file written by SaveFile.
func LoadFile(path string) (*Store, error) {
	p, err := readPortable(path)
	if err != nil {
		return nil, err
	}
	return FromPortable(p)
}

// ReloadFile replaces the store's contents with the timeline at path. The
// file is fully decoded and validated before anything changes, and
// subscribers see the reloaded keyframes arrive as EventAdded events.
func (s *Store) ReloadFile(path string) error {
	p, err := readPortable(path)
	if err != nil {
		return err
	}
	return s.Restore(p)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

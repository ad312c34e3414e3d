package bin

import (
	"fmt"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/splice/internal/media"
)

// Catalog resolves bin ids to assets. The timeline depends on this
// interface only.
type Catalog interface {
	ClipByBinID(id string) (*Asset, bool)
}

// Project is an in-memory bin, kept in insertion order.
//
// Thread-safety: all methods are safe for concurrent use.
type Project struct {
	mu     sync.RWMutex
	assets map[string]*Asset
	order  []string
}

// NewProject creates an empty bin.
func NewProject() *Project {
	return &Project{assets: make(map[string]*Asset)}
}

// Add inserts an asset. Ids must be unique.
func (p *Project) Add(a *Asset) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.assets[a.ID()]; exists {
		return fmt.Errorf("duplicate asset id: %s", a.ID())
	}
	p.assets[a.ID()] = a
	p.order = append(p.order, a.ID())
	return nil
}

// ClipByBinID implements Catalog.
func (p *Project) ClipByBinID(id string) (*Asset, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.assets[id]
	return a, ok
}

// Assets returns all assets in insertion order.
func (p *Project) Assets() []*Asset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Asset, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.assets[id])
	}
	return out
}

// Len returns the number of assets.
func (p *Project) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// AssetSpec describes an asset in a catalog or edit script.
type AssetSpec struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	Service  string `yaml:"service,omitempty" json:"service,omitempty"`
	Resource string `yaml:"resource,omitempty" json:"resource,omitempty"`
	Length   int    `yaml:"length" json:"length"`

	// Limited defaults to true except for color sources.
	Limited *bool `yaml:"limited,omitempty" json:"limited,omitempty"`

	// Stream indices; nil means the service default (avformat: audio 1,
	// video 0; others: no audio, video 0). -1 marks an absent stream.
	AudioIndex *int `yaml:"audio_index,omitempty" json:"audio_index,omitempty"`
	VideoIndex *int `yaml:"video_index,omitempty" json:"video_index,omitempty"`
}

// withDefaults fills unset fields.
func (s AssetSpec) withDefaults() AssetSpec {
	if s.Service == "" {
		s.Service = media.ServiceAVFormat
	}
	if s.Resource == "" {
		s.Resource = s.ID
	}
	if s.Name == "" {
		s.Name = s.ID
	}
	s.Name = norm.NFC.String(s.Name)
	if s.Limited == nil {
		limited := s.Service != media.ServiceColor
		s.Limited = &limited
	}
	if s.AudioIndex == nil {
		audio := -1
		if s.Service == media.ServiceAVFormat {
			audio = 1
		}
		s.AudioIndex = &audio
	}
	if s.VideoIndex == nil {
		video := 0
		s.VideoIndex = &video
	}
	return s
}

// Validate checks required fields.
func (s AssetSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("asset id is required")
	}
	if s.Length <= 0 {
		return fmt.Errorf("asset %s: length must be positive, got %d", s.ID, s.Length)
	}
	return nil
}

// BuildAsset creates the asset's producer through engine.
func BuildAsset(engine media.Engine, spec AssetSpec) (*Asset, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec = spec.withDefaults()
	p, err := engine.NewProducer(spec.Service, spec.Resource, spec.Length)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", spec.ID, err)
	}
	p.SetInt(media.PropAudioIndex, *spec.AudioIndex)
	p.SetInt(media.PropVideoIndex, *spec.VideoIndex)
	return NewAsset(spec.ID, spec.Name, p, *spec.Limited), nil
}

// BuildProject creates a bin holding one asset per spec.
func BuildProject(engine media.Engine, specs []AssetSpec) (*Project, error) {
	p := NewProject()
	for _, spec := range specs {
		a, err := BuildAsset(engine, spec)
		if err != nil {
			return nil, err
		}
		if err := p.Add(a); err != nil {
			return nil, err
		}
	}
	return p, nil
}

package permute

import "slices"

// Renderer describes one encoder family: its option axes, how a combination
// of those options is rendered to ffmpeg arguments, and the settings used
// when no sweep is requested.
type Renderer interface {
	Axes() []Axis
	Render(t Tuple) string
	DefaultSettings() string
}

// Permutator holds the most recently generated settings list for a renderer
// and a cursor over it.
type Permutator struct {
	renderer Renderer
	settings []string
	cursor   int
}

// New creates a permutator for r. Nothing is generated until Init or
// RunStandardOnly is called.
func New(r Renderer) *Permutator {
	return &Permutator{renderer: r, cursor: -1}
}

// Init regenerates the full ordered settings list from the renderer's axes
// and rewinds the cursor. Repeated calls return identical lists.
func (p *Permutator) Init() []string {
	p.cursor = -1
	axes := p.renderer.Axes()

	p.settings = make([]string, 0, Count(axes))
	for t := range Product(axes) {
		p.settings = append(p.settings, p.renderer.Render(t))
	}

	return slices.Clone(p.settings)
}

// RunStandardOnly replaces the list with the renderer's recommended default
// settings and rewinds the cursor.
func (p *Permutator) RunStandardOnly() []string {
	p.cursor = -1
	p.settings = []string{p.renderer.DefaultSettings()}
	return slices.Clone(p.settings)
}

// Next advances the cursor and returns the index and settings it lands on.
// ok is false once the last element has been returned.
func (p *Permutator) Next() (index int, settings string, ok bool) {
	if p.cursor >= len(p.settings)-1 {
		return 0, "", false
	}
	p.cursor++
	return p.cursor, p.settings[p.cursor], true
}

// Len returns the size of the last generated list.
func (p *Permutator) Len() int {
	return len(p.settings)
}

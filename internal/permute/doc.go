// Package permute builds the ordered space of encoder settings that a search
// sweeps over.
//
// An encoder family is described by a list of [Axis] values, one per encoder
// option. [Product] walks the cartesian product of those axes with the first
// axis varying slowest, so the same axes always produce the same order.
// A [Renderer] turns each tuple into the literal argument string handed to
// ffmpeg, and a [Permutator] keeps the last rendered list and iterates over it.
//
//	p := permute.New(catalog)
//	for _, settings := range p.Init() {
//		fmt.Println(settings)
//	}
package permute

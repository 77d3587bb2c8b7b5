package encoders

import (
	"fmt"
	"strconv"

	"github.com/smazurov/permutor/internal/permute"
)

// Amf is the AMD AMF catalog.
type Amf struct {
	encoder string
	gpu     int
	axes    []permute.Axis
}

// NewAmf creates the catalog for h264_amf or hevc_amf. Only hevc has a
// profile tier option.
func NewAmf(encoder string, gpu int) *Amf {
	isHevc := encoder == "hevc_amf"

	profiles := permute.NewAxis("profile", "main", "high", "constrained_baseline", "constrained_high")
	if isHevc {
		profiles = permute.NewAxis("profile", "main")
	}

	axes := []permute.Axis{
		permute.NewAxis("usage", "transcoding", "ultralowlatency", "lowlatency", "webcam"),
		permute.NewAxis("quality", "balanced", "speed", "quality"),
		profiles,
	}
	if isHevc {
		axes = append(axes, permute.NewAxis("profile_tier", "main", "high"))
	}
	axes = append(axes, permute.NewAxis("rc", "cbr"))

	return &Amf{encoder: encoder, gpu: gpu, axes: axes}
}

func (a *Amf) Encoder() string { return a.encoder }

func (a *Amf) Vendor() Vendor { return VendorAMD }

func (a *Amf) Axes() []permute.Axis { return a.axes }

func (a *Amf) BaseBitrates() [4]int { return [4]int{20, 35, 50, 85} }

func (a *Amf) Render(t permute.Tuple) string {
	b := &settingsBuilder{}
	b.add("-usage", t.Get("usage")).
		add("-quality", t.Get("quality")).
		add("-profile:v", t.Get("profile")).
		add("-profile_tier", t.Get("profile_tier")).
		add("-rc", t.Get("rc")).
		add("-cbr", "true").
		add("-gpu", strconv.Itoa(a.gpu))
	return b.String()
}

// DefaultSettings uses the main profile for both codecs; h264 barely cares
// and hevc reaches the same fps without a profile tier.
func (a *Amf) DefaultSettings() string {
	return fmt.Sprintf("-usage ultralowlatency -quality speed -profile:v main -rc cbr -cbr true -gpu %d", a.gpu)
}

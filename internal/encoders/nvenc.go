package encoders

import (
	"fmt"
	"strconv"

	"github.com/smazurov/permutor/internal/permute"
)

// Nvenc is the NVIDIA NVENC catalog.
type Nvenc struct {
	encoder string
	gpu     int
	axes    []permute.Axis
}

// NewNvenc creates the catalog for h264_nvenc or hevc_nvenc.
func NewNvenc(encoder string, gpu int) *Nvenc {
	profile := "high"
	if encoder == "hevc_nvenc" {
		profile = "main"
	}

	return &Nvenc{
		encoder: encoder,
		gpu:     gpu,
		axes: []permute.Axis{
			permute.NewAxis("preset", "p1", "p2", "p3", "p4", "p5", "p6", "p7"),
			permute.NewAxis("tune", "hq", "ll", "ull"),
			permute.NewAxis("profile", profile),
			// vbr modes are left out, they are a poor fit for game streaming
			permute.NewAxis("rc", "cbr"),
		},
	}
}

func (n *Nvenc) Encoder() string { return n.encoder }

func (n *Nvenc) Vendor() Vendor { return VendorNvidia }

func (n *Nvenc) Axes() []permute.Axis { return n.axes }

func (n *Nvenc) BaseBitrates() [4]int { return [4]int{10, 20, 25, 55} }

// Render builds e.g. "-preset p1 -tune hq -profile:v main -rc cbr -cbr true -gpu 0".
func (n *Nvenc) Render(t permute.Tuple) string {
	b := &settingsBuilder{}
	b.add("-preset", t.Get("preset")).
		add("-tune", t.Get("tune")).
		add("-profile:v", t.Get("profile")).
		add("-rc", t.Get("rc")).
		add("-cbr", "true").
		add("-gpu", strconv.Itoa(n.gpu))
	return b.String()
}

func (n *Nvenc) DefaultSettings() string {
	return fmt.Sprintf("-preset p1 -tune ll -profile:v %s -rc cbr -cbr true -gpu %d", n.axes[2].Values[0], n.gpu)
}

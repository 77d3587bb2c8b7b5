package encoders

import "github.com/smazurov/permutor/internal/permute"

// VideoToolbox is the Apple silicon catalog. h264, hevc and prores share
// most options; only h264 has a coder option and prores has no constant
// bitrate mode.
type VideoToolbox struct {
	encoder string
	axes    []permute.Axis
}

// NewVideoToolbox creates the catalog for one of the *_videotoolbox encoders.
func NewVideoToolbox(encoder string) *VideoToolbox {
	var axes []permute.Axis
	switch encoder {
	case "h264_videotoolbox":
		axes = []permute.Axis{
			permute.NewAxis("profile", "baseline", "constrained_baseline", "main", "high", "constrained_high", "extended"),
			permute.NewAxis("coder", "vlc", "cavlc", "cabac", "ac"),
		}
	case "prores_videotoolbox":
		axes = []permute.Axis{
			permute.NewAxis("profile", "auto", "proxy", "lt", "standard", "hq", "4444", "xq"),
		}
	default:
		axes = []permute.Axis{
			permute.NewAxis("profile", "main", "main10"),
		}
	}

	return &VideoToolbox{encoder: encoder, axes: axes}
}

func (v *VideoToolbox) Encoder() string { return v.encoder }

func (v *VideoToolbox) Vendor() Vendor { return VendorApple }

func (v *VideoToolbox) Axes() []permute.Axis { return v.axes }

func (v *VideoToolbox) BaseBitrates() [4]int { return [4]int{10, 20, 25, 55} }

func (v *VideoToolbox) isProres() bool { return v.encoder == "prores_videotoolbox" }

func (v *VideoToolbox) Render(t permute.Tuple) string {
	b := &settingsBuilder{}
	b.add("-profile:v", t.Get("profile")).add("-coder", t.Get("coder"))
	if !v.isProres() {
		b.add("-constant_bit_rate", "true")
	}
	return b.String()
}

func (v *VideoToolbox) DefaultSettings() string {
	switch v.encoder {
	case "h264_videotoolbox":
		return "-profile:v baseline -coder vlc -constant_bit_rate true"
	case "prores_videotoolbox":
		return "-profile:v auto"
	default:
		return "-profile:v main -constant_bit_rate true"
	}
}

package encoders

import (
	"fmt"
	"strings"

	"github.com/smazurov/permutor/internal/permute"
)

// Vendor identifies the hardware encoder family an ffmpeg encoder belongs to.
type Vendor int

// Supported vendors.
const (
	VendorUnknown Vendor = iota
	VendorNvidia
	VendorAMD
	VendorIntelQSV
	VendorIntelAV1
	VendorApple
)

func (v Vendor) String() string {
	switch v {
	case VendorNvidia:
		return "nvidia"
	case VendorAMD:
		return "amd"
	case VendorIntelQSV:
		return "intel-qsv"
	case VendorIntelAV1:
		return "intel-av1"
	case VendorApple:
		return "apple"
	default:
		return "unknown"
	}
}

// VendorForEncoder maps an ffmpeg encoder name such as "hevc_nvenc" to its vendor.
func VendorForEncoder(encoder string) Vendor {
	switch {
	case strings.Contains(encoder, "nvenc"):
		return VendorNvidia
	case strings.Contains(encoder, "amf"):
		return VendorAMD
	case encoder == "av1_qsv":
		return VendorIntelAV1
	case encoder == "h264_qsv" || encoder == "hevc_qsv":
		return VendorIntelQSV
	case strings.Contains(encoder, "videotoolbox"):
		return VendorApple
	default:
		return VendorUnknown
	}
}

// Catalog is the static option catalog of one encoder. It renders option
// combinations into the settings string passed to ffmpeg after -c:v.
type Catalog interface {
	permute.Renderer

	// Encoder returns the ffmpeg encoder name, e.g. "h264_nvenc".
	Encoder() string

	// Vendor returns the family the encoder belongs to.
	Vendor() Vendor

	// BaseBitrates returns the recommended 60fps bitrates in Mb/s for
	// permute.Resolutions, in the same order.
	BaseBitrates() [4]int
}

// supported lists every encoder permutor knows how to sweep.
var supported = []string{
	"h264_nvenc",
	"hevc_nvenc",
	"h264_amf",
	"hevc_amf",
	"h264_qsv",
	"hevc_qsv",
	"av1_qsv",
	"h264_videotoolbox",
	"hevc_videotoolbox",
	"prores_videotoolbox",
}

// Supported returns the encoders that have a catalog.
func Supported() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// IsSupported reports whether encoder has a catalog.
func IsSupported(encoder string) bool {
	for _, s := range supported {
		if s == encoder {
			return true
		}
	}
	return false
}

// NewCatalog returns the catalog for encoder. gpu selects the device index for
// vendors that accept one.
func NewCatalog(encoder string, gpu int) (Catalog, error) {
	if !IsSupported(encoder) {
		return nil, fmt.Errorf("encoder %q is not supported", encoder)
	}

	switch VendorForEncoder(encoder) {
	case VendorNvidia:
		return NewNvenc(encoder, gpu), nil
	case VendorAMD:
		return NewAmf(encoder, gpu), nil
	case VendorIntelQSV:
		return NewQsv(encoder), nil
	case VendorIntelAV1:
		return NewAv1Qsv(), nil
	case VendorApple:
		return NewVideoToolbox(encoder), nil
	default:
		return nil, fmt.Errorf("no catalog for encoder %q", encoder)
	}
}

// StreamFormat returns the raw container ffmpeg should use when piping the
// encoder's output to another process.
func StreamFormat(encoder string) string {
	switch {
	case strings.Contains(encoder, "h264"):
		return "h264"
	case strings.Contains(encoder, "hevc"):
		return "hevc"
	default:
		return "ivf"
	}
}

// settingsBuilder joins "-flag value" pairs into a settings string.
type settingsBuilder struct {
	parts []string
}

func (b *settingsBuilder) add(flag, value string) *settingsBuilder {
	if value == "" {
		return b
	}
	b.parts = append(b.parts, flag, value)
	return b
}

func (b *settingsBuilder) String() string {
	return strings.Join(b.parts, " ")
}

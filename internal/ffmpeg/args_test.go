package ffmpeg

import (
	"slices"
	"strings"
	"testing"
)

const (
	testInput    = "1080-60.y4m"
	testEncoder  = "h264_nvenc"
	testSettings = "-preset p1 -tune hq -profile:v high -rc cbr -cbr true -gpu 0"
)

func TestArgsEncode(t *testing.T) {
	args := NewEncode(testInput, testEncoder, testSettings, 6, "localhost:1234")

	want := "-progress tcp://localhost:1234 -stats_period 0.5 -i 1080-60.y4m -b:v 6M -c:v h264_nvenc " +
		testSettings + " -f null -"
	if got := args.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestArgsEncodeSecondInput(t *testing.T) {
	args := NewEncode(testInput, testEncoder, testSettings, 6, "localhost:1234")
	args.SecondInput = "1080-60-2.y4m"

	got := args.String()
	if !strings.Contains(got, "-i 1080-60.y4m -i 1080-60-2.y4m -b:v 6M") {
		t.Errorf("String() = %s", got)
	}
}

func TestArgsVmaf(t *testing.T) {
	args := NewEncode(testInput, testEncoder, testSettings, 6, "localhost:1234")
	vmaf := args.Vmaf("localhost:2000", 60, 8)

	want := "-report -r 60 -i tcp://localhost:2000?listen -r 60 -i 1080-60.y4m " +
		"-filter_complex libvmaf='n_threads=8:n_subsample=5' -f null -"
	if got := vmaf.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}

	// the original must stay an encode
	if args.VmafThreads != 0 || args.FirstInput != testInput {
		t.Error("Vmaf() modified the receiver")
	}
}

func TestArgsStreamTo(t *testing.T) {
	args := NewEncode(testInput, "hevc_nvenc", "-preset p1", 10, "localhost:1234")
	got := args.StreamTo("localhost:2000", "hevc").Slice()

	if !slices.Equal(got[len(got)-3:], []string{"-f", "hevc", "tcp://localhost:2000"}) {
		t.Errorf("Slice() = %v", got)
	}
	if args.Output != NullOutput {
		t.Error("StreamTo() modified the receiver")
	}
}

func TestArgsNoNetwork(t *testing.T) {
	args := NewEncode(testInput, testEncoder, testSettings, 6, "localhost:1234").StreamTo("localhost:2000", "h264")
	got := args.NoNetwork().String()

	if strings.Contains(got, "tcp://") {
		t.Errorf("NoNetwork() still has network endpoints: %s", got)
	}
	if !strings.HasSuffix(got, "-f null -") {
		t.Errorf("NoNetwork() output = %s", got)
	}

	vmaf := NewEncode(testInput, testEncoder, testSettings, 6, "").Vmaf("localhost:2000", 60, 4).NoNetwork()
	if strings.Contains(vmaf.String(), "tcp://") {
		t.Errorf("NoNetwork() on scorer = %s", vmaf.String())
	}
}

func TestArgsDecode(t *testing.T) {
	args := NewEncode(testInput, testEncoder, testSettings, 6, "localhost:1234")

	out := args.DecodeOutput("/tmp/decode.mkv").Slice()
	if !slices.Equal(out[len(out)-4:], []string{"-y", "-f", "matroska", "/tmp/decode.mkv"}) {
		t.Errorf("DecodeOutput() = %v", out)
	}

	in := args.DecodeInput("/tmp/decode.mkv").String()
	want := "-progress tcp://localhost:1234 -stats_period 0.5 -hwaccel auto -i /tmp/decode.mkv -f null -"
	if in != want {
		t.Errorf("DecodeInput() =\n%s\nwant\n%s", in, want)
	}
}

func TestSplitSettings(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"-preset p1", []string{"-preset", "p1"}},
		{"  -preset   p1 \t-tune hq ", []string{"-preset", "p1", "-tune", "hq"}},
		{`-vf "scale=1280:720, fps=60"`, []string{"-vf", "scale=1280:720, fps=60"}},
		{`-x265-params 'a=1 b=2'`, []string{"-x265-params", "a=1 b=2"}},
	}

	for _, tt := range tests {
		if got := SplitSettings(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("SplitSettings(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

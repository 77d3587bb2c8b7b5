package version

import (
	"strings"
	"testing"
)

func TestFull(t *testing.T) {
	info := Info{Version: "1.2.0", GitCommit: "abc1234", BuildDate: "2024-01-01", GoVersion: "go1.24.11", Platform: "linux/amd64"}
	want := "1.2.0 (abc1234, built 2024-01-01, go1.24.11 linux/amd64)"
	if got := info.Full(); got != want {
		t.Errorf("Full() = %q, want %q", got, want)
	}
}

func TestGetUsesBuildVariables(t *testing.T) {
	info := Get()
	if info.Version != Version || info.GitCommit != GitCommit {
		t.Errorf("unexpected info %+v", info)
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("unexpected go version %q", info.GoVersion)
	}
}

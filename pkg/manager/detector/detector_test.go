package detector

import (
	"reflect"
	"runtime"
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	info, err := Detect()
	if err != nil {
		t.Fatalf("Detect() returned error: %v", err)
	}
	if info.Arch != runtime.GOARCH {
		t.Errorf("expected Arch '%s', got '%s'", runtime.GOARCH, info.Arch)
	}

	switch runtime.GOOS {
	case "linux":
		if info.OS != OSLinux {
			t.Errorf("expected OS Linux, got %s", info.OS)
		}
	case "windows":
		if info.OS != OSWindows {
			t.Errorf("expected OS Windows, got %s", info.OS)
		}
	}
}

func TestParseOSRelease(t *testing.T) {
	input := `NAME="Linux Mint"
ID=linuxmint
ID_LIKE="ubuntu debian"
PRETTY_NAME="Linux Mint 21.3"
# comment
`
	info, err := ParseOSRelease(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseOSRelease() error: %v", err)
	}
	if info.ID != "linuxmint" {
		t.Errorf("ID = %q, want linuxmint", info.ID)
	}
	if !reflect.DeepEqual(info.IDLike, []string{"ubuntu", "debian"}) {
		t.Errorf("IDLike = %v", info.IDLike)
	}
	if info.PrettyName != "Linux Mint 21.3" {
		t.Errorf("PrettyName = %q", info.PrettyName)
	}
}

func TestSystemInfo_MatchesDistro(t *testing.T) {
	info := &SystemInfo{
		OS:           OSLinux,
		Distribution: "ubuntu",
		DistroFamily: []string{"debian"},
	}

	tests := []struct {
		distros  []string
		expected bool
	}{
		{[]string{"ubuntu"}, true},
		{[]string{"debian"}, true},
		{[]string{"fedora"}, false},
		{[]string{"arch", "ubuntu"}, true},
	}

	for _, tt := range tests {
		if got := info.MatchesDistro(tt.distros...); got != tt.expected {
			t.Errorf("MatchesDistro(%v) = %v, want %v", tt.distros, got, tt.expected)
		}
	}
}

func TestGetNativeManagerForFamily(t *testing.T) {
	tests := []struct {
		distro   string
		idLike   []string
		expected string
	}{
		{"ubuntu", nil, "apt"},
		{"arch", nil, "pacman"},
		{"pop", []string{"ubuntu", "debian"}, "apt"},
		{"endeavouros", []string{"arch"}, "pacman"},
		{"fedora", []string{"rhel"}, ""},
		{"unknown", []string{"alsounknown"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.distro, func(t *testing.T) {
			if got := GetNativeManagerForFamily(tt.distro, tt.idLike); got != tt.expected {
				t.Errorf("GetNativeManagerForFamily(%s, %v) = %s, want %s",
					tt.distro, tt.idLike, got, tt.expected)
			}
		})
	}
}

func TestDefaultOrder(t *testing.T) {
	tests := []struct {
		name string
		info SystemInfo
		want []string
	}{
		{"windows", SystemInfo{OS: OSWindows}, []string{"winget", "chocolatey", "scoop", "npm", "pip", "cargo", "dotnet"}},
		{"arch", SystemInfo{OS: OSLinux, Distribution: "arch"}, []string{"pacman", "flatpak", "npm", "pip", "cargo", "dotnet"}},
		{"unknown linux", SystemInfo{OS: OSLinux, Distribution: "unknown"}, []string{"flatpak", "npm", "pip", "cargo", "dotnet"}},
		{"darwin", SystemInfo{OS: OSDarwin}, []string{"npm", "pip", "cargo", "dotnet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.DefaultOrder(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DefaultOrder() = %v, want %v", got, tt.want)
			}
		})
	}
}

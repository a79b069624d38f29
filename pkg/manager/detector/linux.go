package detector

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// LinuxInfo contains information parsed from /etc/os-release.
type LinuxInfo struct {
	ID         string   // Distribution ID (e.g., "ubuntu", "arch")
	IDLike     []string // Related distributions
	PrettyName string
}

// DetectLinux detects the Linux distribution by reading os-release.
func DetectLinux() (*LinuxInfo, error) {
	for _, path := range []string{"/etc/os-release", "/usr/lib/os-release"} {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		info, err := ParseOSRelease(f)
		f.Close()
		if err == nil && info.ID != "" {
			return info, nil
		}
	}

	return &LinuxInfo{ID: "unknown", PrettyName: "Unknown Linux"}, nil
}

// ParseOSRelease parses the KEY=value format of os-release.
func ParseOSRelease(r io.Reader) (*LinuxInfo, error) {
	info := &LinuxInfo{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")

		switch key {
		case "ID":
			info.ID = value
		case "ID_LIKE":
			info.IDLike = strings.Fields(value)
		case "PRETTY_NAME":
			info.PrettyName = value
		}
	}

	return info, scanner.Err()
}

// distroManagerMap maps distribution IDs to their native package managers.
var distroManagerMap = map[string]string{
	// Debian family
	"debian":     "apt",
	"ubuntu":     "apt",
	"linuxmint":  "apt",
	"pop":        "apt",
	"elementary": "apt",
	"zorin":      "apt",
	"kali":       "apt",
	"raspbian":   "apt",

	// Arch family
	"arch":        "pacman",
	"manjaro":     "pacman",
	"endeavouros": "pacman",
	"garuda":      "pacman",
	"artix":       "pacman",
	"cachyos":     "pacman",
}

// GetNativeManager returns the native package manager for a distribution ID.
func GetNativeManager(distroID string) string {
	return distroManagerMap[distroID]
}

// GetNativeManagerForFamily checks the distribution ID and its family for a native manager.
func GetNativeManagerForFamily(distroID string, idLike []string) string {
	if mgr := GetNativeManager(distroID); mgr != "" {
		return mgr
	}
	for _, family := range idLike {
		if mgr := GetNativeManager(family); mgr != "" {
			return mgr
		}
	}
	return ""
}

// Package detector identifies the host system and its preferred package managers.
package detector

import (
	"runtime"
)

// OSType represents the detected operating system type.
type OSType string

const (
	OSLinux   OSType = "linux"
	OSDarwin  OSType = "darwin"
	OSWindows OSType = "windows"
	OSUnknown OSType = "unknown"
)

// SystemInfo contains information about the detected system.
type SystemInfo struct {
	OS           OSType
	Arch         string
	Distribution string   // Linux distribution ID (e.g., "ubuntu", "arch")
	DistroFamily []string // Related distributions (from ID_LIKE)
	PrettyName   string
}

// Detect detects the current system's OS and distribution.
func Detect() (*SystemInfo, error) {
	info := &SystemInfo{
		Arch: runtime.GOARCH,
	}

	switch runtime.GOOS {
	case "linux":
		info.OS = OSLinux
		linuxInfo, err := DetectLinux()
		if err != nil {
			return info, err
		}
		info.Distribution = linuxInfo.ID
		info.DistroFamily = linuxInfo.IDLike
		info.PrettyName = linuxInfo.PrettyName
	case "darwin":
		info.OS = OSDarwin
		info.Distribution = "macos"
		info.PrettyName = "macOS"
	case "windows":
		info.OS = OSWindows
		info.Distribution = "windows"
		info.PrettyName = "Windows"
	default:
		info.OS = OSUnknown
	}

	return info, nil
}

// MatchesDistro checks if the system matches any of the given distribution identifiers.
// It checks both the direct distribution ID and the ID_LIKE family.
func (s *SystemInfo) MatchesDistro(distros ...string) bool {
	for _, d := range distros {
		if s.Distribution == d {
			return true
		}
		for _, family := range s.DistroFamily {
			if family == d {
				return true
			}
		}
	}
	return false
}

// NativeManagers returns the system package managers native to this
// system, most preferred first. Availability is not checked.
func (s *SystemInfo) NativeManagers() []string {
	switch s.OS {
	case OSWindows:
		return WindowsManagers()
	case OSLinux:
		if mgr := GetNativeManagerForFamily(s.Distribution, s.DistroFamily); mgr != "" {
			return []string{mgr}
		}
	}
	return nil
}

// DefaultOrder is the manager order used when the configuration does not
// name one: native managers, then flatpak, then the language managers.
func (s *SystemInfo) DefaultOrder() []string {
	order := s.NativeManagers()
	if s.OS == OSLinux {
		order = append(order, "flatpak")
	}
	return append(order, "npm", "pip", "cargo", "dotnet")
}

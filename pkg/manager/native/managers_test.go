package native

import (
	"testing"

	"unipkg/internal/config"
	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
	"unipkg/pkg/manager/backend/backendtest"
)

var (
	_ manager.Manager = (*WinGet)(nil)
	_ manager.Manager = (*Chocolatey)(nil)
	_ manager.Manager = (*Scoop)(nil)
	_ manager.Manager = (*APT)(nil)
	_ manager.Manager = (*Pacman)(nil)
)

func TestManagerMetadata(t *testing.T) {
	deps := backend.Deps{Exec: backendtest.NewQuerier()}
	tests := []struct {
		mgr     manager.Manager
		name    string
		binary  string
		sources bool
	}{
		{NewWinGet(deps), "winget", "winget", true},
		{NewChocolatey(deps), "chocolatey", "choco", true},
		{NewScoop(deps), "scoop", "scoop", true},
		{NewAPT(deps), "apt", "apt-get", false},
		{NewPacman(deps), "pacman", "pacman", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.mgr.Name() != tt.name {
				t.Errorf("Name() = %q", tt.mgr.Name())
			}
			if tt.mgr.Type() != manager.TypeNative {
				t.Errorf("Type() = %q", tt.mgr.Type())
			}
			if tt.mgr.Executable() != tt.binary {
				t.Errorf("Executable() = %q, want %q", tt.mgr.Executable(), tt.binary)
			}
			if tt.mgr.DefaultSource() == nil {
				t.Error("DefaultSource() is nil")
			}
			if tt.mgr.OperationHelper() == nil {
				t.Error("OperationHelper() is nil")
			}
			if got := tt.mgr.SourceHelper() != nil; got != tt.sources {
				t.Errorf("SourceHelper() present = %v, want %v", got, tt.sources)
			}
			if tt.mgr.Capabilities().SupportsSources != tt.sources {
				t.Errorf("SupportsSources = %v", tt.mgr.Capabilities().SupportsSources)
			}
		})
	}
}

func TestExecutableOverride(t *testing.T) {
	a := NewAPT(backend.Deps{
		Exec:   backendtest.NewQuerier(),
		Config: config.ManagerConfig{Executable: "/opt/apt/bin/apt-get"},
	})
	if a.Executable() != "/opt/apt/bin/apt-get" {
		t.Errorf("Executable() = %q", a.Executable())
	}
}

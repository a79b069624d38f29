package manager

import (
	"context"
	"errors"
	"testing"

	"unipkg/internal/config"
)

// MockManager for testing
type MockManager struct {
	name        string
	displayName string
	mgrType     ManagerType
	available   bool
	helper      OperationHelper
	sources     *SourceHelper
}

func (m *MockManager) Name() string                     { return m.name }
func (m *MockManager) DisplayName() string              { return m.displayName }
func (m *MockManager) Type() ManagerType                { return m.mgrType }
func (m *MockManager) Executable() string               { return m.name }
func (m *MockManager) Capabilities() Capabilities       { return Capabilities{} }
func (m *MockManager) IsAvailable() bool                { return m.available }
func (m *MockManager) OperationHelper() OperationHelper { return m.helper }
func (m *MockManager) SourceHelper() *SourceHelper      { return m.sources }

func (m *MockManager) DefaultSource() *ManagerSource {
	return NewSource(m, m.name, "")
}

func (m *MockManager) FindPackages(_ context.Context, _ string) ([]*Package, error) {
	return nil, nil
}
func (m *MockManager) ListInstalled(_ context.Context) ([]*Package, error) { return nil, nil }
func (m *MockManager) ListUpdates(_ context.Context) ([]*Package, error)   { return nil, nil }
func (m *MockManager) InstallableVersions(_ context.Context, _ *Package) ([]string, error) {
	return nil, nil
}

func TestNewRegistry(t *testing.T) {
	if registry := NewRegistry(nil); registry == nil {
		t.Fatal("NewRegistry() returned nil")
	}
}

func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry(config.Default())

	mock := &MockManager{name: "mock", displayName: "Mock Manager", mgrType: TypeNative, available: true}
	registry.Register(mock)

	mgr, ok := registry.Get("mock")
	if !ok {
		t.Error("Get() should find registered manager")
	}
	if mgr != mock {
		t.Error("Get() returned wrong manager")
	}

	if _, ok := registry.Get("nonexistent"); ok {
		t.Error("Get() should return false for non-existent manager")
	}
}

func TestRegistryRegisterDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Managers["npm"] = config.ManagerConfig{Disabled: true}
	registry := NewRegistry(cfg)

	registry.Register(&MockManager{name: "npm", mgrType: TypeLanguage, available: true})

	if _, ok := registry.Get("npm"); ok {
		t.Error("disabled manager should not be registered")
	}
}

func TestRegistryAvailable(t *testing.T) {
	registry := NewRegistry(config.Default())
	registry.Register(&MockManager{name: "available", available: true, mgrType: TypeNative})
	registry.Register(&MockManager{name: "unavailable", available: false, mgrType: TypeNative})

	managers := registry.Available()
	if len(managers) != 1 || managers[0].Name() != "available" {
		t.Errorf("Available() = %v, want only 'available'", names(managers))
	}
	if len(registry.All()) != 2 {
		t.Errorf("All() should include unavailable managers, got %d", len(registry.All()))
	}
}

func TestRegistryAvailableByType(t *testing.T) {
	registry := NewRegistry(config.Default())
	registry.Register(&MockManager{name: "apt", mgrType: TypeNative, available: true})
	registry.Register(&MockManager{name: "flatpak", mgrType: TypeUniversal, available: true})
	registry.Register(&MockManager{name: "npm", mgrType: TypeLanguage, available: true})

	tests := []struct {
		mtype    ManagerType
		expected string
	}{
		{TypeNative, "apt"},
		{TypeUniversal, "flatpak"},
		{TypeLanguage, "npm"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mtype), func(t *testing.T) {
			managers := registry.AvailableByType(tt.mtype)
			if len(managers) != 1 || managers[0].Name() != tt.expected {
				t.Errorf("AvailableByType(%s) = %v, want [%s]", tt.mtype, names(managers), tt.expected)
			}
		})
	}
}

func TestRegistrySortByPriority(t *testing.T) {
	cfg := config.Default()
	cfg.General.ManagerOrder = []string{"scoop", "language", "winget"}
	registry := NewRegistry(cfg)

	for _, m := range []*MockManager{
		{name: "winget", mgrType: TypeNative, available: true},
		{name: "pip", mgrType: TypeLanguage, available: true},
		{name: "scoop", mgrType: TypeNative, available: true},
		{name: "chocolatey", mgrType: TypeNative, available: true},
	} {
		registry.Register(m)
	}

	got := names(registry.Available())
	want := []string{"scoop", "pip", "winget", "chocolatey"}
	if len(got) != len(want) {
		t.Fatalf("Available() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Available() = %v, want %v", got, want)
		}
	}
}

func TestRegistryGetManagerForSource(t *testing.T) {
	registry := NewRegistry(config.Default())
	registry.Register(&MockManager{name: "winget", mgrType: TypeNative, available: true})
	registry.Register(&MockManager{name: "scoop", mgrType: TypeNative, available: false})
	registry.Register(&MockManager{name: "pip", mgrType: TypeLanguage, available: true})

	tests := []struct {
		source  string
		want    string
		wantErr error
	}{
		{"winget", "winget", nil},
		{"native", "winget", nil},
		{"language", "pip", nil},
		{"scoop", "", ErrManagerUnavailable},
		{"universal", "", ErrManagerUnavailable},
		{"brew", "", ErrManagerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			mgr, err := registry.GetManagerForSource(tt.source)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mgr.Name() != tt.want {
				t.Errorf("got %s, want %s", mgr.Name(), tt.want)
			}
		})
	}
}

func names(managers []Manager) []string {
	out := make([]string, len(managers))
	for i, m := range managers {
		out[i] = m.Name()
	}
	return out
}

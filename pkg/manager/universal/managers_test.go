package universal

import (
	"testing"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
	"unipkg/pkg/manager/backend/backendtest"
)

var _ manager.Manager = (*Flatpak)(nil)

func TestFlatpakManager(t *testing.T) {
	f := NewFlatpak(backend.Deps{Exec: backendtest.NewQuerier()})

	if f.Name() != "flatpak" {
		t.Errorf("Name() = %q", f.Name())
	}
	if f.Type() != manager.TypeUniversal {
		t.Errorf("Type() = %q", f.Type())
	}
	caps := f.Capabilities()
	if !caps.SupportsScope || !caps.SupportsSources {
		t.Errorf("Capabilities() = %+v", caps)
	}
	if f.SourceHelper() == nil {
		t.Error("SourceHelper() is nil")
	}
}

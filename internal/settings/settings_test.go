package settings

import (
	"path/filepath"
	"testing"

	"unipkg/pkg/manager"
)

var _ manager.Settings = (*Store)(nil)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestBoolsAndStrings(t *testing.T) {
	s, _ := openTestStore(t)

	if s.Bool(manager.SettingIgnoreUpdatesNotApplicable) {
		t.Error("unset flag should be false")
	}
	if err := s.SetBool(manager.SettingIgnoreUpdatesNotApplicable, true); err != nil {
		t.Fatal(err)
	}
	if !s.Bool(manager.SettingIgnoreUpdatesNotApplicable) {
		t.Error("flag should be set")
	}
	if err := s.SetBool(manager.SettingIgnoreUpdatesNotApplicable, false); err != nil {
		t.Fatal(err)
	}
	if s.Bool(manager.SettingIgnoreUpdatesNotApplicable) {
		t.Error("flag should be cleared")
	}

	if err := s.SetString("theme", "dark"); err != nil {
		t.Fatal(err)
	}
	if got := s.String("theme"); got != "dark" {
		t.Errorf("String() = %q", got)
	}
}

func TestLists(t *testing.T) {
	s, _ := openTestStore(t)

	for _, v := range []string{"winget", "scoop", "winget"} {
		if err := s.AppendList("disabled", v); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.List("disabled")
	if err != nil || len(list) != 2 || list[0] != "winget" || list[1] != "scoop" {
		t.Fatalf("List() = %v, %v", list, err)
	}

	if err := s.RemoveFromList("disabled", "winget"); err != nil {
		t.Fatal(err)
	}
	if list, _ = s.List("disabled"); len(list) != 1 || list[0] != "scoop" {
		t.Errorf("List() after remove = %v", list)
	}
	if list, _ = s.List("missing"); list != nil {
		t.Errorf("missing list = %v", list)
	}
}

func TestMapsPersist(t *testing.T) {
	s, path := openTestStore(t)

	if err := s.SetMapItem(manager.SettingWinGetAlreadyUpgraded, "Git.Git", "2.47.0"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMapItem(manager.SettingWinGetAlreadyUpgraded, "Mozilla.Firefox", "131.0"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteMapItem(manager.SettingWinGetAlreadyUpgraded, "Mozilla.Firefox"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if v, ok := reopened.MapItem(manager.SettingWinGetAlreadyUpgraded, "Git.Git"); !ok || v != "2.47.0" {
		t.Errorf("MapItem() = %q, %v", v, ok)
	}
	if _, ok := reopened.MapItem(manager.SettingWinGetAlreadyUpgraded, "Mozilla.Firefox"); ok {
		t.Error("deleted item still present")
	}
	m, err := reopened.Map("missing")
	if err != nil || m == nil || len(m) != 0 {
		t.Errorf("Map(missing) = %v, %v", m, err)
	}
}

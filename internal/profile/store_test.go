package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeProfileFile(t *testing.T, dir, name string, p *Profile) string {
	t.Helper()
	data, err := yaml.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStore_Load(t *testing.T) {
	dir := t.TempDir()
	p := DefaultProfile()
	p.Name = "catalog"
	p.Version = 2
	writeProfileFile(t, dir, "catalog.yaml", p)

	s := NewStore(dir)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	got, ok := s.Get("catalog")
	if !ok {
		t.Fatal("expected catalog profile to be loaded")
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
	names := s.Names()
	if len(names) != 2 || names[0] != "catalog" || names[1] != "default" {
		t.Errorf("Names() = %v", names)
	}
}

func TestStore_Load_skipsInvalid(t *testing.T) {
	dir := t.TempDir()
	p := DefaultProfile()
	p.Name = "broken"
	p.Engine.IndexFields[0].Weight = -1
	writeProfileFile(t, dir, "broken.yaml", p)

	s := NewStore(dir)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("broken"); ok {
		t.Error("invalid profile should not be loaded")
	}
}

func TestStore_emptyDirHasDefault(t *testing.T) {
	s := NewStore("")
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if s.Default() == nil {
		t.Fatal("default profile must always be present")
	}
}

func TestStore_Watch_reloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	p := DefaultProfile()
	p.Name = "live"
	path := writeProfileFile(t, dir, "live.yaml", p)

	s := NewStore(dir)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	notified := make(chan struct{}, 1)
	s.Subscribe(func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Watch(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	p.Version = 9
	data, err := yaml.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-notified:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload notification")
	}
	got, ok := s.Get("live")
	if !ok || got.Version != 9 {
		t.Errorf("reloaded profile version = %v, want 9", got)
	}
}

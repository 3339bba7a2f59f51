package engine

import (
	"errors"
	"testing"
)

func TestStatus_StringRoundTrip(t *testing.T) {
	for s := StatusSuccess; s <= StatusBoxNeedMoreOutput; s++ {
		got, err := ParseStatus(s.String())
		if err != nil {
			t.Fatalf("ParseStatus(%q) failed: %v", s.String(), err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %v, want %v", s.String(), got, s)
		}
	}
	if Status(99).String() != "status(99)" {
		t.Errorf("unknown status String() = %q", Status(99).String())
	}
	if _, err := ParseStatus("bogus"); err == nil {
		t.Error("expected error for unknown status name")
	}
}

func TestEvent_Has(t *testing.T) {
	if !DecodeEvents.Has(EventBox | EventFrame) {
		t.Error("DecodeEvents should include box and frame")
	}
	if (EventBasicInfo | EventFrame).Has(EventFullImage) {
		t.Error("subset reported full image")
	}
}

func TestRegistry_OpenUnknown(t *testing.T) {
	_, err := Open("does-not-exist", Options{})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestRegistry_RegisterAndOpen(t *testing.T) {
	var gotWorkers int
	Register("registry-test", func(opts Options) (Engine, error) {
		gotWorkers = opts.Workers
		return nil, errors.New("boom")
	})

	_, err := Open("registry-test", Options{})
	if err == nil {
		t.Fatal("expected factory error to propagate")
	}
	if gotWorkers != DefaultWorkers {
		t.Errorf("workers = %d, want default %d", gotWorkers, DefaultWorkers)
	}

	found := false
	for _, name := range Backends() {
		if name == "registry-test" {
			found = true
		}
	}
	if !found {
		t.Error("registered backend missing from Backends()")
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	Register("registry-dup", func(Options) (Engine, error) { return nil, nil })
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate Register")
		}
	}()
	Register("registry-dup", func(Options) (Engine, error) { return nil, nil })
}

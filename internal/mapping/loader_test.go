package mapping

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeMapping struct {
	name       string
	compatible bool
	panicCheck bool
	startErr   error

	started int
	closed  int
}

func (f *fakeMapping) Name() string               { return f.name }
func (f *fakeMapping) Vendor() string             { return "test" }
func (f *fakeMapping) Version() string            { return "0.0.0" }
func (f *fakeMapping) Platforms() []string        { return []string{"java"} }
func (f *fakeMapping) CompatibleProtocols() []int { return []int{766} }

func (f *fakeMapping) Compatible() bool {
	if f.panicCheck {
		panic("broken compatibility check")
	}
	return f.compatible
}

func (f *fakeMapping) Start() error {
	f.started++
	return f.startErr
}

func (f *fakeMapping) Close() error {
	f.closed++
	return nil
}

func ctor(m *fakeMapping) Constructor {
	return func(Deps) Mapping { return m }
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestLoadFirstCompatibleWins(t *testing.T) {
	first := &fakeMapping{name: "first", compatible: true}
	second := &fakeMapping{name: "second", compatible: true}

	l := NewLoader(nopLogger(), ctor(first), ctor(second))
	m, err := l.Load(Deps{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Name() != "first" {
		t.Fatalf("expected first candidate, got %s", m.Name())
	}
	if second.started != 0 {
		t.Fatalf("second candidate must never start")
	}

	// A second Load while one is active returns the same mapping.
	again, err := l.Load(Deps{})
	if err != nil || again != m {
		t.Fatalf("expected the active mapping back, got %v, %v", again, err)
	}
	if first.started != 1 {
		t.Fatalf("active mapping must not be restarted")
	}
}

func TestLoadSkipsIncompatibleAndPanicking(t *testing.T) {
	incompatible := &fakeMapping{name: "incompatible"}
	panicking := &fakeMapping{name: "panicking", panicCheck: true}
	good := &fakeMapping{name: "good", compatible: true}

	l := NewLoader(nopLogger(), ctor(incompatible), ctor(panicking), ctor(good))
	m, err := l.Load(Deps{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Name() != "good" {
		t.Fatalf("expected good candidate, got %s", m.Name())
	}
	if incompatible.started != 0 || panicking.started != 0 {
		t.Fatalf("incompatible candidates must never start")
	}
}

func TestLoadContinuesPastStartFailure(t *testing.T) {
	failing := &fakeMapping{name: "failing", compatible: true, startErr: errors.New("injection failed")}
	good := &fakeMapping{name: "good", compatible: true}

	l := NewLoader(nopLogger(), ctor(failing), ctor(good))
	m, err := l.Load(Deps{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Name() != "good" {
		t.Fatalf("expected fallback to good candidate, got %s", m.Name())
	}
	// A partially-started mapping must not be left active.
	if failing.closed != 1 {
		t.Fatalf("failed candidate must be closed, got %d closes", failing.closed)
	}
}

func TestLoadNoCandidatesIsNonFatal(t *testing.T) {
	l := NewLoader(nopLogger(), ctor(&fakeMapping{name: "nope"}))

	if _, err := l.Load(Deps{}); !errors.Is(err, ErrNoCompatibleMapping) {
		t.Fatalf("expected ErrNoCompatibleMapping, got %v", err)
	}
	if _, err := l.Active(); !errors.Is(err, ErrNoCompatibleMapping) {
		t.Fatalf("Active without a mapping must fail, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	m := &fakeMapping{name: "m", compatible: true}
	l := NewLoader(nopLogger(), ctor(m))

	if _, err := l.Load(Deps{}); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if m.closed != 1 {
		t.Fatalf("mapping must be closed exactly once, got %d", m.closed)
	}
}

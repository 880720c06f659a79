package stream

import (
	"errors"
	"testing"

	"github.com/backkem/avpolicy/pkg/a2dp"
)

func testConfig() Config {
	return Config{
		SEP:       a2dp.SEPRecord{SEID: 1, Type: a2dp.SEPTypeSink, Codec: a2dp.DefaultSBCSinkCaps.Encode()},
		LocalType: a2dp.SEPTypeSource,
		PeerAddr:  a2dp.BDAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		Codec:     a2dp.CodecInfo{0x06, 0x00, 0x00, 0x21, 0x15, 0x02, 0x35},
	}
}

func TestNewRegistry(t *testing.T) {
	if r := NewRegistry(RegistryConfig{}); r.MaxStreams() != DefaultMaxStreams {
		t.Errorf("MaxStreams() = %d, want %d", r.MaxStreams(), DefaultMaxStreams)
	}
	if r := NewRegistry(RegistryConfig{MaxStreams: 2}); r.MaxStreams() != 2 || r.Count() != 0 {
		t.Errorf("MaxStreams() = %d, Count() = %d", r.MaxStreams(), r.Count())
	}
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	const h Handle = 0x41

	if err := r.Discover(h, Discovery{NumSEPs: 2, NumSink: 2}); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if s, _ := r.State(h); s != StateConfiguring {
		t.Fatalf("State() = %v, want Configuring", s)
	}

	if _, err := r.Transition(h, StateOpen); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Open before configure error = %v, want ErrInvalidTransition", err)
	}

	if err := r.Configure(h, testConfig()); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	steps := []State{StateOpen, StateStarted, StateStopped, StateStarted}
	for _, s := range steps {
		if _, err := r.Transition(h, s); err != nil {
			t.Fatalf("Transition(%v) error = %v", s, err)
		}
	}

	e, ok := r.Get(h)
	if !ok {
		t.Fatal("Get() not found")
	}
	if e.State != StateStarted || e.Discovery.NumSink != 2 || e.SEP.SEID != 1 {
		t.Errorf("Get() = %+v", e)
	}
	if e.Direction() != a2dp.SEPTypeSource {
		t.Errorf("Direction() = %v", e.Direction())
	}

	if err := r.Configure(h, testConfig()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Configure(Started) error = %v, want ErrInvalidTransition", err)
	}

	closed, ok := r.Remove(h)
	if !ok || closed.State != StateClosed {
		t.Errorf("Remove() = %v, %v", closed.State, ok)
	}
	if _, ok := r.Get(h); ok {
		t.Error("Get() after Remove should fail")
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestRegistry_Configure(t *testing.T) {
	t.Run("creates entry without discovery", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{})
		if err := r.Configure(7, testConfig()); err != nil {
			t.Fatalf("Configure() error = %v", err)
		}
		if s, _ := r.State(7); s != StateConfigured {
			t.Errorf("State() = %v, want Configured", s)
		}
	})

	t.Run("replaces previous configuration", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{})
		r.Configure(1, testConfig())
		first, _ := r.Get(1)

		cfg := testConfig()
		cfg.Codec = a2dp.CodecInfo{0x06, 0x00, 0x00, 0x11, 0x15, 0x02, 0x20}
		if err := r.Configure(1, cfg); err != nil {
			t.Fatalf("Configure() error = %v", err)
		}
		second, _ := r.Get(1)
		if !second.Codec.Equal(cfg.Codec) {
			t.Errorf("Codec = %v, want %v", second.Codec, cfg.Codec)
		}
		if second.ConfigSeq <= first.ConfigSeq {
			t.Errorf("ConfigSeq = %d, want > %d", second.ConfigSeq, first.ConfigSeq)
		}
	})

	t.Run("reconfigure open stream in place", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{})
		r.Configure(1, testConfig())
		r.Transition(1, StateOpen)
		if err := r.Configure(1, testConfig()); err != nil {
			t.Fatalf("Configure(Open) error = %v", err)
		}
		if s, _ := r.State(1); s != StateOpen {
			t.Errorf("State() = %v, want Open", s)
		}
	})

	t.Run("stored configuration is a copy", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{})
		cfg := testConfig()
		r.Configure(1, cfg)
		cfg.Codec[3] = 0x00

		e, _ := r.Get(1)
		if e.Codec[3] != 0x21 {
			t.Error("Configure() should copy the codec element")
		}
		e.Codec[3] = 0x00
		again, _ := r.Get(1)
		if again.Codec[3] != 0x21 {
			t.Error("Get() should return a copy")
		}
	})

	t.Run("empty codec", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{})
		if err := r.Configure(1, Config{}); !errors.Is(err, ErrEmptyConfig) {
			t.Errorf("Configure() error = %v, want ErrEmptyConfig", err)
		}
		if r.Count() != 0 {
			t.Error("empty config should not create an entry")
		}
	})
}

func TestRegistry_Reject(t *testing.T) {
	t.Run("fresh stream stays unconfigured", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{})
		r.Discover(1, Discovery{})
		if err := r.Reject(1); err != nil {
			t.Fatalf("Reject() error = %v", err)
		}
		e, _ := r.Get(1)
		if e.State.IsConfigured() || !e.Rejected {
			t.Errorf("entry = %v rejected=%v", e.State, e.Rejected)
		}
		if _, err := r.Transition(1, StateOpen); err == nil {
			t.Error("Open after rejection should fail")
		}
	})

	t.Run("configured stream cannot open until accepted again", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{})
		r.Configure(1, testConfig())
		r.Reject(1)
		if _, err := r.Transition(1, StateOpen); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("Open error = %v, want ErrNotConfigured", err)
		}

		r.Configure(1, testConfig())
		if _, err := r.Transition(1, StateOpen); err != nil {
			t.Errorf("Open after new config error = %v", err)
		}
	})
}

func TestRegistry_Arena(t *testing.T) {
	r := NewRegistry(RegistryConfig{MaxStreams: 2})

	r.Discover(1, Discovery{})
	r.Discover(2, Discovery{})
	if err := r.Discover(3, Discovery{}); !errors.Is(err, ErrRegistryFull) {
		t.Fatalf("Discover() on full registry error = %v, want ErrRegistryFull", err)
	}

	r.Remove(1)
	if err := r.Discover(3, Discovery{}); err != nil {
		t.Fatalf("Discover() after Remove error = %v", err)
	}
	if len(r.slots) != 2 {
		t.Errorf("slots = %d, want freed slot reused", len(r.slots))
	}

	e, ok := r.Get(3)
	if !ok || e.Handle != 3 || e.State != StateConfiguring {
		t.Errorf("Get(3) = %+v, %v", e, ok)
	}
	if _, ok := r.Get(1); ok {
		t.Error("removed handle should not resolve")
	}
	if _, ok := r.Remove(9); ok {
		t.Error("Remove(unknown) should report false")
	}
}

func TestRegistry_Setters(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	if err := r.SetMTU(1, 672); !errors.Is(err, ErrStreamNotFound) {
		t.Errorf("SetMTU(unknown) error = %v", err)
	}
	if _, err := r.Transition(1, StateOpen); !errors.Is(err, ErrStreamNotFound) {
		t.Errorf("Transition(unknown) error = %v", err)
	}

	r.Configure(1, testConfig())
	r.SetMTU(1, 672)
	r.SetDelay(1, 1500)
	e, _ := r.Get(1)
	if e.MTU != 672 || e.Delay != 1500 {
		t.Errorf("MTU = %d, Delay = %d", e.MTU, e.Delay)
	}
}

func TestRegistry_TryForEach(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	r.Configure(1, testConfig())
	r.Configure(2, testConfig())

	n := 0
	if !r.TryForEach(func(e *Entry) bool { n++; return true }) {
		t.Fatal("TryForEach() on idle registry should succeed")
	}
	if n != 2 {
		t.Errorf("visited %d entries, want 2", n)
	}

	r.mu.Lock()
	called := false
	ok := r.TryForEach(func(e *Entry) bool { called = true; return true })
	r.mu.Unlock()
	if ok || called {
		t.Error("TryForEach() should fail fast while write-locked")
	}

	n = 0
	r.ForEach(func(e *Entry) bool { n++; return false })
	if n != 1 {
		t.Errorf("ForEach() visited %d after stop, want 1", n)
	}
}

func TestEntry_Protection(t *testing.T) {
	e := Entry{}
	if e.HasProtection() || e.ProtectionEnforced() {
		t.Error("no protection expected")
	}
	e.Protect = []a2dp.ProtectInfo{a2dp.SCMST()}
	e.CopyMode = a2dp.CopyFree
	if !e.HasProtection() || e.ProtectionEnforced() {
		t.Error("copy-free SCMS-T is negotiated but not enforced")
	}
	e.CopyMode = a2dp.CopyNever
	if !e.ProtectionEnforced() {
		t.Error("copy-never SCMS-T should be enforced")
	}
}

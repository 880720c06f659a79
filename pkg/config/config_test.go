package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/catalog"
	"github.com/pion/logging"
)

const sample = `
role: source
codecs:
  - name: sbc
  - name: aac
    priority: 5000
content_protection:
  enabled: true
  default_mode: copy_once
streams:
  max_streams: 4
feeder:
  queue_size: 32
  recover_after: 64
logging:
  level: debug
  scopes:
    feeder: warn
metrics:
  enabled: true
  address: 127.0.0.1:9100
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avpolicy.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Streams.MaxStreams != 4 || c.Feeder.QueueSize != 32 || c.Feeder.RecoverAfter != 64 {
		t.Errorf("Load() = %+v", c)
	}
	if !c.Protection.Enabled || c.Protection.Required {
		t.Errorf("Protection = %+v", c.Protection)
	}
	if mode, _ := c.Protection.Mode(); mode != a2dp.CopyOnce {
		t.Errorf("Mode() = %v, want CopyOnce", mode)
	}

	defs, err := c.Definitions()
	if err != nil {
		t.Fatalf("Definitions() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("Definitions() = %d entries, want 2", len(defs))
	}
	if defs[0].Codec.Index() != a2dp.CodecIndexSourceSBC || defs[0].Priority != catalog.PrioritySBC {
		t.Errorf("defs[0] = %v/%d", defs[0].Codec.Index(), defs[0].Priority)
	}
	if defs[1].Codec.Index() != a2dp.CodecIndexSourceAAC || defs[1].Priority != 5000 {
		t.Errorf("defs[1] = %v/%d", defs[1].Codec.Index(), defs[1].Priority)
	}

	lf := c.Logging.LoggerFactory()
	if lf.DefaultLogLevel != logging.LogLevelDebug || lf.ScopeLevels["feeder"] != logging.LogLevelWarn {
		t.Errorf("LoggerFactory() levels = %v, %v", lf.DefaultLogLevel, lf.ScopeLevels)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if sep, _ := c.LocalType(); sep != a2dp.SEPTypeSource {
		t.Errorf("LocalType() = %v, want Source", sep)
	}
	want := []a2dp.CodecIndex{a2dp.CodecIndexSourceAptX, a2dp.CodecIndexSourceAAC, a2dp.CodecIndexSourceSBC}
	got := c.Indices()
	if len(got) != len(want) {
		t.Fatalf("Indices() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Indices()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParse_Sink(t *testing.T) {
	c, err := Parse([]byte("role: sink\ncodecs: [{name: sbc}, {name: aac}]\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	idx := c.Indices()
	if len(idx) != 2 || idx[0] != a2dp.CodecIndexSinkSBC || idx[1] != a2dp.CodecIndexSinkAAC {
		t.Errorf("Indices() = %v", idx)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad role", "role: relay"},
		{"empty codecs", "codecs: []"},
		{"unknown codec", "codecs: [{name: ldac}]"},
		{"aptx on sink", "role: sink\ncodecs: [{name: aptx}]"},
		{"duplicate codec", "codecs: [{name: sbc}, {name: SBC}]"},
		{"bad copy mode", "content_protection: {enabled: true, default_mode: copy_twice}"},
		{"required without enabled", "content_protection: {required: true}"},
		{"negative streams", "streams: {max_streams: -1}"},
		{"negative feeder", "feeder: {max_level: -2}"},
		{"bad log level", "logging: {level: loud}"},
		{"bad scope level", "logging: {scopes: {mtu: loud}}"},
		{"metrics without address", "metrics: {enabled: true, address: \"\"}"},
		{"malformed yaml", "codecs: [name: sbc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

package mediapath

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/feeder"
	"github.com/backkem/avpolicy/pkg/policy"
	"github.com/backkem/avpolicy/pkg/selector"
	"github.com/backkem/avpolicy/pkg/stream"
	"github.com/pion/logging"
	"github.com/pion/rtp"
)

var sbcConfig = a2dp.CodecInfo{0x06, 0x00, 0x00, 0x21, 0x15, 0x02, 0x35}

type fakeFeed struct {
	mu     sync.Mutex
	frames []feeder.Frame
	drops  []stream.Handle
}

func (f *fakeFeed) NextFrame(cfg a2dp.CodecInfo) (feeder.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return feeder.Frame{}, false
	}
	fr := f.frames[0]
	f.frames = f.frames[1:]
	return fr, true
}

func (f *fakeFeed) FrameDropped(h stream.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drops = append(f.drops, h)
}

func (f *fakeFeed) dropCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.drops)
}

func newTestDriver(t *testing.T, config DriverConfig) *Driver {
	t.Helper()
	config.LoggerFactory = logging.NewDefaultLoggerFactory()
	d, err := NewDriver(config)
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}
	return d
}

// receive reads one packet from the link, ticking it until delivered.
func receive(t *testing.T, l *Link) []byte {
	t.Helper()
	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 2048)
		n, err := l.Receiver().Read(buf)
		if err != nil {
			close(got)
			return
		}
		got <- buf[:n]
	}()

	deadline := time.After(time.Second)
	for {
		l.Tick()
		select {
		case b, ok := <-got:
			if !ok {
				t.Fatal("Read() failed")
			}
			return b
		case <-deadline:
			t.Fatal("timeout waiting for packet")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestNewDriver(t *testing.T) {
	if _, err := NewDriver(DriverConfig{}); !errors.Is(err, ErrNoFeed) {
		t.Errorf("NewDriver() error = %v, want ErrNoFeed", err)
	}
	if _, err := NewDriver(DriverConfig{Feed: &fakeFeed{}}); !errors.Is(err, ErrNoConn) {
		t.Errorf("NewDriver() error = %v, want ErrNoConn", err)
	}
}

func TestDriver_MediaHeader(t *testing.T) {
	link := NewLink(LinkConfig{})
	defer link.Close()

	feed := &fakeFeed{frames: []feeder.Frame{
		{Payload: []byte{0x9C, 0x01}, Samples: 128, Timestamp: 0},
		{Payload: []byte{0x9C, 0x02}, Samples: 128, Timestamp: 128},
	}}
	layout := NewLayout(sbcConfig, true, false)
	d := newTestDriver(t, DriverConfig{
		Feed:      feed,
		Conn:      link.Sender(),
		Handle:    1,
		Codec:     sbcConfig,
		Layout:    layout,
		SSRC:      0xCAFE,
		Sequencer: rtp.NewFixedSequencer(100),
	})

	var seqs []uint16
	for i, wantTS := range []uint32{0, 128} {
		if !d.Pump() {
			t.Fatalf("Pump() #%d found nothing ready", i)
		}
		pkt, err := layout.Parse(receive(t, link))
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if pkt.Header == nil {
			t.Fatal("packet should carry a media header")
		}
		if pkt.Header.Timestamp != wantTS || pkt.Header.SSRC != 0xCAFE || pkt.Header.PayloadType != DefaultPayloadType {
			t.Errorf("header = %+v", pkt.Header)
		}
		if pkt.Frames != 1 || pkt.Payload[1] != byte(i+1) {
			t.Errorf("payload = %d frames %v", pkt.Frames, pkt.Payload)
		}
		seqs = append(seqs, pkt.Header.SequenceNumber)
	}
	if seqs[1] != seqs[0]+1 {
		t.Errorf("sequence numbers = %v, want consecutive", seqs)
	}

	if d.Pump() {
		t.Error("Pump() on drained feed should report false")
	}
	if d.Sent() != 2 || d.Dropped() != 0 {
		t.Errorf("Sent() = %d, Dropped() = %d", d.Sent(), d.Dropped())
	}
}

func TestDriver_NoMediaHeader(t *testing.T) {
	link := NewLink(LinkConfig{})
	defer link.Close()

	aptx := a2dp.DefaultAptXCaps.Encode()
	feed := &fakeFeed{frames: []feeder.Frame{{Payload: []byte{1, 2, 3, 4}}}}
	d := newTestDriver(t, DriverConfig{
		Feed:   feed,
		Conn:   link.Sender(),
		Codec:  aptx,
		Layout: NewLayout(aptx, false, false),
	})

	d.Pump()
	if got := receive(t, link); !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("packet = %v, want bare payload", got)
	}
}

func TestDriver_ContentProtectionHeader(t *testing.T) {
	link := NewLink(LinkConfig{})
	defer link.Close()

	layout := NewLayout(sbcConfig, true, true)
	feed := &fakeFeed{frames: []feeder.Frame{{Payload: []byte{0x9C}}}}
	d := newTestDriver(t, DriverConfig{
		Feed:     feed,
		Conn:     link.Sender(),
		Codec:    sbcConfig,
		Layout:   layout,
		CopyMode: func() a2dp.CopyMode { return a2dp.CopyNever },
	})

	d.Pump()
	pkt, err := layout.Parse(receive(t, link))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if pkt.Protect == nil || *pkt.Protect != scmstCopyNever {
		t.Errorf("Protect = %v, want copy-never header", pkt.Protect)
	}
}

func TestDriver_Drops(t *testing.T) {
	t.Run("exceeds effective MTU", func(t *testing.T) {
		link := NewLink(LinkConfig{})
		defer link.Close()

		feed := &fakeFeed{frames: []feeder.Frame{{Payload: make([]byte, 400)}}}
		d := newTestDriver(t, DriverConfig{
			Feed:   feed,
			Conn:   link.Sender(),
			Handle: 7,
			Codec:  sbcConfig,
			Layout: NewLayout(sbcConfig, true, false),
			MTU:    func() uint16 { return 335 },
		})

		if !d.Pump() {
			t.Fatal("Pump() should consume the frame")
		}
		if d.Dropped() != 1 || d.Sent() != 0 {
			t.Errorf("Dropped() = %d, Sent() = %d", d.Dropped(), d.Sent())
		}
		if len(feed.drops) != 1 || feed.drops[0] != 7 {
			t.Errorf("drops = %v, want [7]", feed.drops)
		}
	})

	t.Run("link drops", func(t *testing.T) {
		link := NewLink(LinkConfig{Condition: Condition{DropRate: 1}})
		defer link.Close()

		feed := &fakeFeed{frames: []feeder.Frame{{Payload: []byte{1}}}}
		d := newTestDriver(t, DriverConfig{Feed: feed, Conn: link.Sender(), Codec: sbcConfig})
		d.Pump()
		if feed.dropCount() != 1 {
			t.Errorf("drops = %d, want 1", feed.dropCount())
		}
	})

	t.Run("link packet limit", func(t *testing.T) {
		link := NewLink(LinkConfig{})
		defer link.Close()
		link.SetCondition(Condition{MaxPacket: 8})

		feed := &fakeFeed{frames: []feeder.Frame{{Payload: make([]byte, 16)}, {Payload: make([]byte, 4)}}}
		d := newTestDriver(t, DriverConfig{Feed: feed, Conn: link.Sender(), Codec: sbcConfig})
		d.Pump()
		d.Pump()
		if d.Dropped() != 1 || d.Sent() != 1 {
			t.Errorf("Dropped() = %d, Sent() = %d", d.Dropped(), d.Sent())
		}
	})
}

func TestDriver_Run(t *testing.T) {
	link := NewLink(LinkConfig{AutoProcess: true})
	defer link.Close()

	frames := make([]feeder.Frame, 5)
	for i := range frames {
		frames[i] = feeder.Frame{Payload: []byte{byte(i)}}
	}
	feed := &fakeFeed{frames: frames}
	d := newTestDriver(t, DriverConfig{
		Feed:     feed,
		Conn:     link.Sender(),
		Codec:    sbcConfig,
		Layout:   NewLayout(sbcConfig, false, false),
		Interval: time.Millisecond,
	})

	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := link.Receiver().Read(buf); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := d.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want DeadlineExceeded", err)
	}
	if d.Sent() != 5 {
		t.Errorf("Sent() = %d, want 5", d.Sent())
	}
}

func TestDriver_Wait(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		frame    time.Duration
		want     time.Duration
	}{
		{name: "fixed cadence", interval: 5 * time.Millisecond, frame: 2 * time.Millisecond, want: 5 * time.Millisecond},
		{name: "frame duration", frame: 2902 * time.Microsecond, want: 2902 * time.Microsecond},
		{name: "idle", want: DefaultInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDriver(t, DriverConfig{
				Feed:     &fakeFeed{},
				Conn:     &bytes.Buffer{},
				Codec:    sbcConfig,
				Interval: tt.interval,
			})
			if got := d.wait(tt.frame); got != tt.want {
				t.Errorf("wait(%v) = %v, want %v", tt.frame, got, tt.want)
			}
		})
	}
}

func TestDriver_RunPacesByFrameDuration(t *testing.T) {
	link := NewLink(LinkConfig{AutoProcess: true})
	defer link.Close()

	frames := make([]feeder.Frame, 5)
	for i := range frames {
		frames[i] = feeder.Frame{Payload: []byte{byte(i)}, Duration: time.Millisecond}
	}
	feed := &fakeFeed{frames: frames}
	d := newTestDriver(t, DriverConfig{
		Feed:   feed,
		Conn:   link.Sender(),
		Codec:  sbcConfig,
		Layout: NewLayout(sbcConfig, false, false),
	})

	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := link.Receiver().Read(buf); err != nil {
				return
			}
		}
	}()

	// The first pump waits DefaultInterval; the rest follow at 1ms.
	ctx, cancel := context.WithTimeout(context.Background(), 5*DefaultInterval)
	defer cancel()
	if err := d.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want DeadlineExceeded", err)
	}
	if d.Sent() != 5 {
		t.Errorf("Sent() = %d, want 5", d.Sent())
	}
}

func TestDriver_PeerDelay(t *testing.T) {
	feed := &fakeFeed{frames: []feeder.Frame{
		{Payload: []byte{1}, Delay: 1500},
		{Payload: []byte{2}, Delay: 2000},
	}}
	d := newTestDriver(t, DriverConfig{
		Feed:   feed,
		Conn:   &bytes.Buffer{},
		Codec:  sbcConfig,
		Layout: NewLayout(sbcConfig, false, false),
	})
	if got := d.PeerDelay(); got != 0 {
		t.Errorf("PeerDelay() before first frame = %v, want 0", got)
	}

	want := []time.Duration{150 * time.Millisecond, 200 * time.Millisecond}
	for i, w := range want {
		if !d.Pump() {
			t.Fatalf("Pump() %d = false, want true", i)
		}
		if got := d.PeerDelay(); got != w {
			t.Errorf("PeerDelay() after frame %d = %v, want %v", i, got, w)
		}
	}
}

func TestLayout_Parse(t *testing.T) {
	l := NewLayout(sbcConfig, false, true)
	if _, err := l.Parse([]byte{0x01}); !errors.Is(err, ErrShortPacket) {
		t.Errorf("Parse() error = %v, want ErrShortPacket", err)
	}
	if _, err := NewLayout(sbcConfig, true, false).Parse([]byte{0x80}); err == nil {
		t.Error("Parse() of truncated RTP header should fail")
	}
}

func TestDriver_WithPolicy(t *testing.T) {
	lf := logging.NewDefaultLoggerFactory()
	q := feeder.NewQueue(8)
	p, err := policy.New(policy.Config{Source: q, LoggerFactory: lf})
	if err != nil {
		t.Fatalf("policy.New() error = %v", err)
	}
	if _, err := p.Init(context.Background(), a2dp.CodecIndexSourceSBC); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	const h stream.Handle = 1
	p.DiscoveryResult(h, policy.Discovery{
		NumSEPs:   1,
		NumSink:   1,
		Endpoints: []a2dp.SEPRecord{{SEID: 1, Type: a2dp.SEPTypeSink, Codec: a2dp.CodecInfo{0x06, 0x00, 0x00, 0xFF, 0xFF, 0x02, 0x35}}},
	})
	sel, err := p.GetConfig(h, 0)
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if err := p.SetConfig(h, selector.Request{Codec: sel.Codec, SEID: sel.SEID}); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if _, err := p.Open(h, 335); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	noHeader, err := p.Start(h, sel.Codec)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	link := NewLink(LinkConfig{})
	defer link.Close()
	d := newTestDriver(t, DriverConfig{
		Feed:   p,
		Conn:   link.Sender(),
		Handle: h,
		Codec:  sel.Codec,
		Layout: NewLayout(sel.Codec, !noHeader, false),
		MTU:    func() uint16 { return p.EffectiveMTU(a2dp.SEPTypeSource) },
	})

	q.Push(feeder.Frame{Payload: make([]byte, 120), Samples: 128})
	q.Push(feeder.Frame{Payload: make([]byte, 600), Samples: 128})

	d.Pump()
	d.Pump()
	if d.Sent() != 1 || d.Dropped() != 1 {
		t.Errorf("Sent() = %d, Dropped() = %d", d.Sent(), d.Dropped())
	}
	if p.Level() != 1 {
		t.Errorf("Level() = %d, want 1 after oversized frame", p.Level())
	}
	if q.Level() != 1 {
		t.Errorf("queue Level() = %d, want 1", q.Level())
	}
}

// Package mediapath is a reference media-path driver for the stream policy.
//
// A Driver pulls frames from a Feed, wraps them in the packet layout the
// stream negotiated and writes them to a connection. It runs on a fixed
// cadence or, without one, paces itself by each frame's playback duration.
// Frames that do not fit the effective MTU, or whose write fails, are
// reported back to the feed as dropped.
//
// The peer's delay report does not change what goes on the wire: RTP
// timestamps stay on the sample clock. The driver exposes the latest
// reported delay through PeerDelay so the audio producer can shift its
// presentation time for A/V sync.
//
// Link provides an in-memory connection for tests and simulations.
package mediapath

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/feeder"
	"github.com/backkem/avpolicy/pkg/stream"
	"github.com/pion/logging"
	"github.com/pion/rtp"
)

// DefaultInterval is the default frame cadence.
const DefaultInterval = 10 * time.Millisecond

// Feed is the part of the stream policy used by the media path.
type Feed interface {
	NextFrame(cfg a2dp.CodecInfo) (feeder.Frame, bool)
	FrameDropped(h stream.Handle)
}

// DriverConfig configures a Driver.
type DriverConfig struct {
	// Feed supplies frames and receives drop reports. Required.
	Feed Feed

	// Conn receives media packets. Required.
	Conn io.Writer

	// Handle is the stream the driver serves.
	Handle stream.Handle

	// Codec is the stream's configured codec element.
	Codec a2dp.CodecInfo

	// Layout is the packet layout of the stream.
	Layout Layout

	// CopyMode returns the copy-control mode written in the SCMS-T header.
	// Optional; copy-free if nil.
	CopyMode func() a2dp.CopyMode

	// MTU returns the effective MTU. Optional; 0 means unconstrained.
	MTU func() uint16

	// Interval is the frame cadence of Run. If 0, Run waits each frame's
	// Duration before the next one, and DefaultInterval while nothing is
	// ready.
	Interval time.Duration

	// PayloadType is the RTP payload type. Default: DefaultPayloadType
	PayloadType uint8

	// SSRC identifies the RTP stream.
	SSRC uint32

	// Sequencer numbers RTP packets. Default: rtp.NewRandomSequencer()
	Sequencer rtp.Sequencer

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Driver moves frames from a Feed to a connection.
type Driver struct {
	config DriverConfig
	log    logging.LeveledLogger

	sent    atomic.Uint64
	dropped atomic.Uint64
	delay   atomic.Uint32 // 1/10 ms
}

// NewDriver creates a driver.
func NewDriver(config DriverConfig) (*Driver, error) {
	if config.Feed == nil {
		return nil, ErrNoFeed
	}
	if config.Conn == nil {
		return nil, ErrNoConn
	}
	if config.PayloadType == 0 {
		config.PayloadType = DefaultPayloadType
	}
	if config.Sequencer == nil {
		config.Sequencer = rtp.NewRandomSequencer()
	}

	d := &Driver{config: config}
	if config.LoggerFactory != nil {
		d.log = config.LoggerFactory.NewLogger("mediapath")
	}
	return d, nil
}

// Pump moves at most one frame. It returns false when the feed had
// nothing ready.
func (d *Driver) Pump() bool {
	_, ok := d.pump()
	return ok
}

// pump moves one frame and returns its playback duration.
func (d *Driver) pump() (time.Duration, bool) {
	fr, ok := d.config.Feed.NextFrame(d.config.Codec)
	if !ok {
		return 0, false
	}
	d.delay.Store(uint32(fr.Delay))

	pkt, err := d.packet(fr)
	if err != nil {
		d.drop(err)
		return fr.Duration, true
	}
	if mtu := d.mtu(); mtu > 0 && len(pkt) > int(mtu) {
		d.drop(ErrPacketTooLarge)
		return fr.Duration, true
	}
	if _, err := d.config.Conn.Write(pkt); err != nil {
		d.drop(err)
		return fr.Duration, true
	}
	d.sent.Add(1)
	return fr.Duration, true
}

func (d *Driver) packet(fr feeder.Frame) ([]byte, error) {
	mode := a2dp.CopyFree
	if d.config.CopyMode != nil {
		mode = d.config.CopyMode()
	}
	body := d.config.Layout.build(fr.Payload, mode)
	if !d.config.Layout.MediaHeader {
		return body, nil
	}

	p := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    d.config.PayloadType,
			SequenceNumber: d.config.Sequencer.NextSequenceNumber(),
			Timestamp:      fr.Timestamp,
			SSRC:           d.config.SSRC,
		},
		Payload: body,
	}
	return p.Marshal()
}

func (d *Driver) mtu() uint16 {
	if d.config.MTU == nil {
		return 0
	}
	return d.config.MTU()
}

func (d *Driver) drop(err error) {
	d.dropped.Add(1)
	d.config.Feed.FrameDropped(d.config.Handle)
	if d.log != nil {
		d.log.Debugf("stream %d: frame dropped: %v", d.config.Handle, err)
	}
}

// Run pumps frames until ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	timer := time.NewTimer(d.wait(0))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			dur, _ := d.pump()
			timer.Reset(d.wait(dur))
		}
	}
}

// wait returns the time until the next pump after a frame of duration
// frame, or 0 when no frame was ready.
func (d *Driver) wait(frame time.Duration) time.Duration {
	if d.config.Interval > 0 {
		return d.config.Interval
	}
	if frame > 0 {
		return frame
	}
	return DefaultInterval
}

// PeerDelay returns the most recent delay reported by the peer for the
// frames this driver sent.
func (d *Driver) PeerDelay() time.Duration {
	return time.Duration(d.delay.Load()) * 100 * time.Microsecond
}

// Sent returns the number of packets written.
func (d *Driver) Sent() uint64 {
	return d.sent.Load()
}

// Dropped returns the number of frames reported as dropped.
func (d *Driver) Dropped() uint64 {
	return d.dropped.Load()
}

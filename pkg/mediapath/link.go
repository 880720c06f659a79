package mediapath

import (
	"io"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// Condition configures simulated link behavior.
type Condition struct {
	// DropRate is the probability of discarding a packet (0.0 - 1.0).
	// Discarded writes fail with ErrDropped so the sender can report them.
	DropRate float64

	// MaxPacket rejects larger writes with ErrPacketTooLarge. 0 disables
	// the check.
	MaxPacket int
}

// LinkConfig configures a Link.
type LinkConfig struct {
	// AutoProcess enables automatic packet delivery in a background goroutine.
	AutoProcess bool

	// ProcessInterval is how often the auto-processor delivers packets.
	// Default: 1ms
	ProcessInterval time.Duration

	// Condition is the initial link condition.
	Condition Condition
}

// Link is an in-memory point-to-point media link between a sender and a
// receiver. It wraps pion's test.Bridge.
//
// Without AutoProcess, packets are only delivered by Tick or Process, which
// keeps tests deterministic. Close unblocks pending reads on the receiver.
type Link struct {
	bridge *test.Bridge

	mu              sync.RWMutex
	condition       Condition
	rng             *rand.Rand
	closed          bool
	processInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup

	rx     chan []byte
	rxDone chan struct{}
}

// rxQueueSize bounds packets delivered by the bridge but not yet read.
const rxQueueSize = 256

// NewLink creates a link.
func NewLink(config LinkConfig) *Link {
	l := &Link{
		bridge:          test.NewBridge(),
		condition:       config.Condition,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		processInterval: config.ProcessInterval,
		stopCh:          make(chan struct{}),
		rx:              make(chan []byte, rxQueueSize),
		rxDone:          make(chan struct{}),
	}
	if l.processInterval == 0 {
		l.processInterval = time.Millisecond
	}
	go l.readLoop()
	if config.AutoProcess {
		l.wg.Add(1)
		go l.autoProcess()
	}
	return l
}

func (l *Link) autoProcess() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.processInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.bridge.Tick()
		}
	}
}

// readLoop moves packets delivered by the bridge to the receiver queue. It
// exits when the bridge closes the receiving side or the link closes.
func (l *Link) readLoop() {
	defer close(l.rxDone)
	buf := make([]byte, 65535)
	for {
		n, err := l.bridge.GetConn1().Read(buf)
		if err != nil {
			return
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		select {
		case l.rx <- pkt:
		case <-l.stopCh:
			return
		}
	}
}

// SetCondition replaces the link condition.
func (l *Link) SetCondition(cond Condition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.condition = cond
}

// Sender returns the sending side of the link. Writes are subject to the
// link condition.
func (l *Link) Sender() net.Conn {
	return &senderConn{Conn: l.bridge.GetConn0(), link: l}
}

// Receiver returns the receiving side of the link. Reads return io.EOF
// once the link is closed.
func (l *Link) Receiver() net.Conn {
	return &receiverConn{Conn: l.bridge.GetConn1(), link: l}
}

// Tick delivers one packet in each direction, if queued, and returns the
// number delivered.
func (l *Link) Tick() int {
	return l.bridge.Tick()
}

// Process delivers all queued packets.
func (l *Link) Process() int {
	count := 0
	for {
		n := l.Tick()
		if n == 0 {
			return count
		}
		count += n
	}
}

// Close closes both sides, stops auto-processing and unblocks pending
// reads.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.stopCh)
	l.mu.Unlock()

	l.wg.Wait()

	err := l.bridge.GetConn0().Close()
	if err1 := l.bridge.GetConn1().Close(); err == nil {
		err = err1
	}

	// The bridge closes a read side only from Tick, once its queue is empty.
	for {
		select {
		case <-l.rxDone:
			return err
		default:
		}
		l.bridge.Tick()
		time.Sleep(time.Millisecond)
	}
}

// check applies the link condition to a packet of n bytes.
func (l *Link) check(n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.condition.MaxPacket > 0 && n > l.condition.MaxPacket {
		return ErrPacketTooLarge
	}
	if l.condition.DropRate > 0 && l.rng.Float64() < l.condition.DropRate {
		return ErrDropped
	}
	return nil
}

type senderConn struct {
	net.Conn
	link *Link
}

func (c *senderConn) Write(b []byte) (int, error) {
	if err := c.link.check(len(b)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

type receiverConn struct {
	net.Conn
	link *Link
}

// Read returns the next delivered packet, truncated to len(b).
func (c *receiverConn) Read(b []byte) (int, error) {
	select {
	case pkt := <-c.link.rx:
		return copy(b, pkt), nil
	case <-c.link.stopCh:
		return 0, io.EOF
	}
}

package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"get-selected-text/src/config"
)

// lookupTimeout bounds each PING while scanning for a resident.
const lookupTimeout = 300 * time.Millisecond

// Ports is the inclusive loopback range a resident may own. The resident binds
// Start; clients scan Start..End.
type Ports struct {
	Start int
	End   int
}

// DefaultPorts is the range used when no configuration is available.
func DefaultPorts() Ports {
	return Ports{Start: config.DefaultPortStart, End: config.DefaultPortEnd}
}

// PortsFrom takes the range from cfg, or DefaultPorts when cfg carries none.
func PortsFrom(cfg *config.Config) Ports {
	if cfg == nil || cfg.PortStart <= 0 {
		return DefaultPorts()
	}
	p := Ports{Start: cfg.PortStart, End: cfg.PortEnd}
	if p.End < p.Start {
		p.End = p.Start
	}
	return p
}

func (p Ports) addr(port int) string { return fmt.Sprintf("%s:%d", residentHost, port) }

// StartAddr is where the resident listens.
func (p Ports) StartAddr() string { return p.addr(p.Start) }

// find returns the first port in range whose listener answers PING with PONG.
func (p Ports) find(ctx context.Context) (int, bool) {
	timeout := lookupTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < timeout {
			timeout = d
		}
	}
	for port := p.Start; port <= p.End; port++ {
		if ctx.Err() != nil {
			return 0, false
		}
		if answersPing(p.addr(port), timeout) {
			return port, true
		}
	}
	return 0, false
}

// DetectResidentPort reports the port of a running resident within p.
func DetectResidentPort(ctx context.Context, p Ports) (int, bool) {
	return p.find(ctx)
}

func answersPing(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(pingRequest)); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}

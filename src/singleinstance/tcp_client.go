package singleinstance

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"get-selected-text/src/selector"
)

type tcpClient struct {
	ports Ports
}

func newTcpClient(p Ports) Client { return &tcpClient{ports: p} }

func (c *tcpClient) TryRunOnce(ctx context.Context, mode Mode) (bool, selector.Result, error) {
	port, ok := c.ports.find(ctx)
	if !ok {
		return false, selector.Result{}, nil
	}
	res, err := request(ctx, c.ports.addr(port), mode)
	return true, res, err
}

func request(ctx context.Context, addr string, mode Mode) (selector.Result, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return selector.Result{}, err
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	line := stdoutRequest
	if mode == ModeClipboard {
		line = clipRequest
	}
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(line); err != nil {
		return selector.Result{}, err
	}
	if err := w.Flush(); err != nil {
		return selector.Result{}, err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return selector.Result{}, err
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return selector.Result{}, err
	}
	switch status {
	case successResponse:
		var res selector.Result
		if err := json.Unmarshal(body, &res); err != nil {
			return selector.Result{}, fmt.Errorf("singleinstance: bad response body: %w", err)
		}
		return res, nil
	case errorResponse:
		return selector.Result{}, errors.New(string(body))
	default:
		return selector.Result{}, fmt.Errorf("singleinstance: unexpected status %q", status)
	}
}

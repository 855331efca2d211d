package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

type tcpClient struct {
	addr string
}

func newTCPClient(port int) *tcpClient {
	return &tcpClient{addr: net.JoinHostPort(residentHost, strconv.Itoa(port))}
}

func timeoutFrom(ctx context.Context, fallback time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return fallback
}

func (c *tcpClient) Running(ctx context.Context) bool {
	return ping(c.addr, timeoutFrom(ctx, 300*time.Millisecond))
}

func (c *tcpClient) Send(ctx context.Context, cmd Command) (bool, string, error) {
	deadline := timeoutFrom(ctx, 2*time.Second)
	if !ping(c.addr, deadline) {
		return false, "", nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, deadline)
	if err != nil {
		return false, "", nil
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(deadline))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(string(cmd) + "\n"); err != nil {
		return true, "", err
	}
	if err := w.Flush(); err != nil {
		return true, "", err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return true, "", fmt.Errorf("reading reply: %w", err)
	}
	body, _ := io.ReadAll(br)
	switch status {
	case replySuccess:
		return true, string(body), nil
	case replyError:
		return true, "", errors.New(string(body))
	default:
		return true, "", fmt.Errorf("unexpected reply %q", status)
	}
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(pingRequest); err != nil {
		return false
	}
	if err := w.Flush(); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}

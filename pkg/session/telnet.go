package session

import (
	"net"
	"strconv"
	"time"
)

// Telnet protocol bytes (RFC 854). Only option negotiation is handled: every
// DO is answered WONT and every WILL is answered DONT, which keeps the
// device in plain NVT mode. Subnegotiation blocks are skipped.
const (
	telnetSE   = 240
	telnetSB   = 250
	telnetWill = 251
	telnetWont = 252
	telnetDo   = 253
	telnetDont = 254
	telnetIAC  = 255
)

type telnetDecodeState int

const (
	telnetStateData telnetDecodeState = iota
	telnetStateIAC
	telnetStateOption
	telnetStateSub
	telnetStateSubIAC
)

// telnetConn is a raw telnet byte stream. Reads return payload bytes only;
// negotiation sequences are consumed and answered inline.
type telnetConn struct {
	conn net.Conn

	state   telnetDecodeState
	command byte
}

func dialTelnet(host string, port int, timeout time.Duration) (*telnetConn, error) {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return nil, err
	}
	return &telnetConn{conn: conn}, nil
}

func (t *telnetConn) Read(p []byte) (int, error) {
	buf := make([]byte, len(p))
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			data, replies := t.decode(buf[:n])
			if len(replies) > 0 {
				// Best effort: a device ignoring the refusals still
				// talks NVT for login purposes.
				_, _ = t.conn.Write(replies)
			}
			if len(data) > 0 {
				return copy(p, data), err
			}
		}
		if err != nil {
			return 0, err
		}
	}
}

// decode strips telnet command sequences from a chunk, carrying parser state
// across chunk boundaries, and produces the negotiation replies to send.
func (t *telnetConn) decode(chunk []byte) (data, replies []byte) {
	for _, b := range chunk {
		switch t.state {
		case telnetStateData:
			if b == telnetIAC {
				t.state = telnetStateIAC
			} else {
				data = append(data, b)
			}
		case telnetStateIAC:
			switch b {
			case telnetIAC:
				// Escaped 0xFF literal.
				data = append(data, b)
				t.state = telnetStateData
			case telnetDo, telnetDont, telnetWill, telnetWont:
				t.command = b
				t.state = telnetStateOption
			case telnetSB:
				t.state = telnetStateSub
			default:
				t.state = telnetStateData
			}
		case telnetStateOption:
			switch t.command {
			case telnetDo:
				replies = append(replies, telnetIAC, telnetWont, b)
			case telnetWill:
				replies = append(replies, telnetIAC, telnetDont, b)
			}
			t.state = telnetStateData
		case telnetStateSub:
			if b == telnetIAC {
				t.state = telnetStateSubIAC
			}
		case telnetStateSubIAC:
			if b == telnetSE {
				t.state = telnetStateData
			} else {
				t.state = telnetStateSub
			}
		}
	}
	return data, replies
}

func (t *telnetConn) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *telnetConn) Close() error {
	return t.conn.Close()
}

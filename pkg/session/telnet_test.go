package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTelnetDecodePassthrough(t *testing.T) {
	tc := &telnetConn{}
	data, replies := tc.decode([]byte("Login: "))
	require.Equal(t, "Login: ", string(data))
	require.Empty(t, replies)
}

func TestTelnetDecodeNegotiation(t *testing.T) {
	tc := &telnetConn{}
	// IAC DO ECHO(1), IAC WILL SGA(3), then payload.
	in := []byte{telnetIAC, telnetDo, 1, telnetIAC, telnetWill, 3, 'o', 'k'}
	data, replies := tc.decode(in)
	require.Equal(t, "ok", string(data))
	require.Equal(t, []byte{telnetIAC, telnetWont, 1, telnetIAC, telnetDont, 3}, replies)
}

func TestTelnetDecodeEscapedIAC(t *testing.T) {
	tc := &telnetConn{}
	data, replies := tc.decode([]byte{'a', telnetIAC, telnetIAC, 'b'})
	require.Equal(t, []byte{'a', telnetIAC, 'b'}, data)
	require.Empty(t, replies)
}

func TestTelnetDecodeSubnegotiationSkipped(t *testing.T) {
	tc := &telnetConn{}
	in := []byte{telnetIAC, telnetSB, 31, 0, 80, 0, 24, telnetIAC, telnetSE, 'x'}
	data, replies := tc.decode(in)
	require.Equal(t, "x", string(data))
	require.Empty(t, replies)
}

func TestTelnetDecodeAcrossChunks(t *testing.T) {
	tc := &telnetConn{}
	data1, _ := tc.decode([]byte{'a', telnetIAC})
	data2, replies := tc.decode([]byte{telnetDo, 1, 'b'})
	require.Equal(t, "a", string(data1))
	require.Equal(t, "b", string(data2))
	require.Equal(t, []byte{telnetIAC, telnetWont, 1}, replies)
}

package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutputStripsPagerBanner(t *testing.T) {
	raw := []byte("line one\r\n--More(CTRL+C break)--\r\nline two\r\n")
	out := Output(raw, "", "")
	require.NotContains(t, out, "More(CTRL+C break)")
	require.Contains(t, out, "line one")
	require.Contains(t, out, "line two")
}

func TestOutputStripsControlSequences(t *testing.T) {
	raw := []byte("inter\x08face up\r\n\x1b[32mGigabitEthernet0/1\x1b[0m down\r\n")
	out := Output(raw, "", "")
	require.Equal(t, "interface up\r\nGigabitEthernet0/1 down", out)
}

func TestOutputStripsEchoAndPrompt(t *testing.T) {
	raw := []byte("show version\r\nCisco IOS 15.1\r\nrouter1>")
	out := Output(raw, "show version", "router1")
	require.Equal(t, "Cisco IOS 15.1", out)
}

func TestOutputEchoMustBeLeading(t *testing.T) {
	raw := []byte("header\nshow version\nrest")
	out := Output(raw, "show version", "")
	require.Equal(t, "header\nshow version\nrest", out)
}

func TestOutputPromptMustBeTrailing(t *testing.T) {
	raw := []byte("router1> is mentioned here\nmore text")
	out := Output(raw, "", "router1")
	require.Equal(t, "router1> is mentioned here\nmore text", out)
}

func TestOutputIdempotent(t *testing.T) {
	vectors := []struct {
		raw     string
		command string
		name    string
	}{
		{"show version\r\nCisco IOS 15.1\r\nrouter1>", "show version", "router1"},
		{"display device\r\n--More(CTRL+C break)--\r\nSlot 1 ok\r\n<DPFW>", "display device", "<DPFW"},
		{"plain output with no artifacts", "show run", "core-sw"},
		{"", "show run", "core-sw"},
		{"  \r\n\t ", "x", "y"},
	}
	for _, v := range vectors {
		once := Output([]byte(v.raw), v.command, v.name)
		twice := Output([]byte(once), v.command, v.name)
		require.Equal(t, once, twice, "sanitize not idempotent for %q", v.raw)
	}
}

func TestOutputPreservesContentAfterBanner(t *testing.T) {
	raw := []byte("Port   Status\n--More(CTRL+C break)--\nGe0/1  up\nGe0/2  down\n")
	out := Output(raw, "", "")
	require.Contains(t, out, "Ge0/1  up")
	require.Contains(t, out, "Ge0/2  down")
}

func TestOutputLossyDecode(t *testing.T) {
	raw := []byte{'o', 'k', 0xff, 0xfe, '!'}
	out := Output(raw, "", "")
	require.Contains(t, out, "ok")
	require.Contains(t, out, "!")
}

func TestOutputCommandWithRegexMetacharacters(t *testing.T) {
	cmd := "display current-configuration | include sysname"
	raw := []byte(cmd + "\r\n sysname core-1\r\n<core-1>")
	out := Output(raw, cmd, "<core-1")
	require.Equal(t, "sysname core-1", out)
}

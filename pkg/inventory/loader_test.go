package inventory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/netinspect/netinspect/pkg/profile"
)

func writeInventory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadResolvesDefaults(t *testing.T) {
	path := writeInventory(t, `
devices:
  - host: 10.0.0.1
    brand: 思科
    username: admin
    password: secret
`)

	devices, err := Load(path, profile.Default(), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, devices, 1)

	dev := devices[0]
	require.Equal(t, "cisco_ios", dev.Profile)
	require.Equal(t, ProtocolSSH, dev.Protocol)
	require.Equal(t, 22, dev.Port)
	require.Equal(t, 30*time.Second, dev.Timeout)
	require.Empty(t, dev.Commands)
}

func TestLoadTelnetDefaultsAndOverrides(t *testing.T) {
	path := writeInventory(t, `
devices:
  - host: 10.0.0.2
    brand: 迪普
    password: secret
    protocol: telnet
    timeout: "60"
  - host: 10.0.0.3
    brand: huawei
    password: secret
    protocol: telnet
    port: 2023
`)

	devices, err := Load(path, profile.Default(), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	require.Equal(t, 23, devices[0].Port)
	require.Equal(t, "dptech_os", devices[0].Profile)
	require.Equal(t, 60*time.Second, devices[0].Timeout)

	require.Equal(t, 2023, devices[1].Port)
	require.Equal(t, "huawei", devices[1].Profile)
}

func TestLoadSkipsInvalidRows(t *testing.T) {
	path := writeInventory(t, `
devices:
  - host: 10.0.0.1
    brand: 思科
  - host: ""
    brand: 华为
    password: x
  - host: 10.0.0.2
    brand: juniper
    password: x
  - host: 10.0.0.3
    brand: 中兴
    password: x
`)

	devices, err := Load(path, profile.Default(), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, "10.0.0.3", devices[0].Host)
}

func TestLoadInvalidProtocolFallsBackToSSH(t *testing.T) {
	path := writeInventory(t, `
devices:
  - host: 10.0.0.1
    brand: 锐捷
    password: x
    protocol: rlogin
`)

	devices, err := Load(path, profile.Default(), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, ProtocolSSH, devices[0].Protocol)
	require.Equal(t, 22, devices[0].Port)
}

func TestSplitCommands(t *testing.T) {
	cmds := SplitCommands("display version; display device ,display health|\n display cpu ")
	require.Equal(t, []string{"display version", "display device", "display health", "display cpu"}, cmds)
	require.Nil(t, SplitCommands(""))
	require.Nil(t, SplitCommands(" ; , "))
}

func TestSharedCommandMerge(t *testing.T) {
	path := writeInventory(t, `
devices:
  - host: 10.0.0.1
    brand: 华三
    password: x
    use_shared_commands: true
    commands: "display arp"
  - host: 10.0.0.2
    brand: 华三
    password: x
    commands: "display arp"
shared_commands:
  华三: "display version; display device"
`)

	devices, err := Load(path, profile.Default(), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	require.Equal(t, []string{"display version", "display device", "display arp"}, devices[0].Commands)
	require.Equal(t, []string{"display arp"}, devices[1].Commands)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), profile.Default(), zerolog.Nop())
	require.Error(t, err)
}

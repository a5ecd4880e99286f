package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netinspect/netinspect/cmd/netinspect/internal/format"
)

// inventoryTemplate is a starter inventory covering both protocols, shared
// command lists and the legacy telnet family.
const inventoryTemplate = `# netinspect device inventory
#
# brand selects the vendor profile. Supported values (aliases in parens):
#   huawei (华为), cisco_ios (思科), hp_comware (华三), ruijie_os (锐捷),
#   zte_zxros (中兴), dptech_os (迪普)
#
# commands accepts one string; separate commands with ; , | or newlines.

shared_commands:
  cisco_ios: "show version; show ip interface brief; show logging"
  huawei: "display version; display device; display logbuffer"

devices:
  - host: 10.0.0.1
    brand: 思科
    username: admin
    password: change-me
    enable_secret: change-me-too
    protocol: ssh
    use_shared_commands: true
    commands: "show environment"

  - host: 10.0.0.2
    brand: huawei
    username: admin
    password: change-me
    protocol: telnet
    port: 2323
    timeout: 60
    use_shared_commands: true

  - host: 10.0.0.3
    brand: 迪普
    username: admin
    password: change-me
    enable_secret: secondary-password
    protocol: telnet
    commands: |
      display version
      display device
`

func newTemplateCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print a starter inventory YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), inventoryTemplate)
				return nil
			}
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", outPath)
			}
			if err := os.WriteFile(outPath, []byte(inventoryTemplate), 0o644); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), format.Notice("Inventory template written to "+outPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write the template to this file instead of stdout")

	return cmd
}

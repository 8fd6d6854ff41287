package cli

import "github.com/spf13/cobra"

// StringFlag defines a string flag for a command.
type StringFlag struct {
	Name     string
	Usage    string
	Default  string
	Required bool
}

// IntFlag defines an int flag for a command.
type IntFlag struct {
	Name    string
	Usage   string
	Default int
}

// BoolFlag defines a boolean flag for a command.
type BoolFlag struct {
	Name    string
	Usage   string
	Default bool
}

// LeafCommand describes a command that runs logic rather than grouping subcommands.
type LeafCommand struct {
	Use       string
	Short     string
	Args      cobra.PositionalArgs
	StrFlags  []StringFlag
	IntFlags  []IntFlag
	BoolFlags []BoolFlag
	RunE      func(cmd *cobra.Command, args []string) error
}

// Build creates the cobra.Command with its flags registered.
func (lc LeafCommand) Build() *cobra.Command {
	cmd := &cobra.Command{
		Use:          lc.Use,
		Short:        lc.Short,
		Args:         lc.Args,
		RunE:         lc.RunE,
		SilenceUsage: true,
	}
	for _, f := range lc.StrFlags {
		cmd.Flags().String(f.Name, f.Default, f.Usage)
		if f.Required {
			_ = cmd.MarkFlagRequired(f.Name)
		}
	}
	for _, f := range lc.IntFlags {
		cmd.Flags().Int(f.Name, f.Default, f.Usage)
	}
	for _, f := range lc.BoolFlags {
		cmd.Flags().Bool(f.Name, f.Default, f.Usage)
	}
	return cmd
}

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xaionaro-go/avrecode/channellayout"
)

func layoutDescribe(cmd *cobra.Command, args []string) error {
	l, err := channellayout.FromName(args[0])
	if err != nil {
		return err
	}
	desc, err := l.Describe()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "name: %s\n", desc)
	fmt.Fprintf(out, "order: %s\n", l.Order())
	fmt.Fprintf(out, "channels: %d\n", l.Channels())
	if mask, ok := l.NativeMask(); ok {
		fmt.Fprintf(out, "mask: 0x%x\n", mask)
	}
	names := make([]string, 0, l.Channels())
	for idx := 0; idx < l.Channels(); idx++ {
		names = append(names, l.ChannelAt(idx).Name())
	}
	fmt.Fprintf(out, "channel list: %s\n", strings.Join(names, " "))
	return nil
}

func layoutBest(cmd *cobra.Command, args []string) error {
	maxChannels, err := cmd.Flags().GetInt("max")
	if err != nil {
		return err
	}

	candidates := make([]channellayout.Layout, 0, len(args))
	for _, arg := range args {
		l, err := channellayout.FromName(arg)
		if err != nil {
			return err
		}
		candidates = append(candidates, l)
	}

	fmt.Fprintln(cmd.OutOrStdout(), channellayout.Best(candidates, maxChannels))
	return nil
}

func layoutList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, p := range channellayout.Presets() {
		l := channellayout.FromMask(p.Mask)
		fmt.Fprintf(out, "%-16s %2d\n", p.Name, l.Channels())
	}
	return nil
}

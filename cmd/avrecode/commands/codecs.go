package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xaionaro-go/avrecode"
	"github.com/xaionaro-go/avrecode/types"
)

func codecs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	onlyEncoders, err := cmd.Flags().GetBool("encoders")
	if err != nil {
		return err
	}
	onlyDecoders, err := cmd.Flags().GetBool("decoders")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, c := range avrecode.Init(ctx).Codecs(ctx) {
		if c.MediaType != types.MediaTypeAudio {
			continue
		}
		if (onlyEncoders && !c.IsEncoder) || (onlyDecoders && c.IsEncoder) {
			continue
		}
		kind := "D"
		if c.IsEncoder {
			kind = "E"
		}
		fmt.Fprintf(out, "%s %-24s %s\n", kind, c.Name, c.LongName)
	}
	return nil
}

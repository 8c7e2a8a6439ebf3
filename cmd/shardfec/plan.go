package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/shardfec/shardfec/frame"
)

func newPlanCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan SIZE",
		Short: "Print the shard layout of a frame of SIZE bytes",
		Args:  cobra.ExactArgs(1),
	}
	applyRedundancy := redundancyFlag(cmd, o)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := applyRedundancy(); err != nil {
			return err
		}
		size, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Wrapf(err, "frame size %q", args[0])
		}
		plan, err := frame.Planner.Plan(size, o.cfg.Redundancy)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "frame_size: %d\n", plan.FrameSize)
		fmt.Fprintf(w, "redundancy: %d\n", plan.Redundancy)
		fmt.Fprintf(w, "unit: %d\n", plan.Unit)
		fmt.Fprintf(w, "shard_packets: %d\n", plan.ShardPackets)
		fmt.Fprintf(w, "block_size: %d\n", plan.BlockSize)
		fmt.Fprintf(w, "data_shards: %d\n", plan.DataShards)
		fmt.Fprintf(w, "parity_shards: %d\n", plan.ParityShards)
		fmt.Fprintf(w, "data_packets: %d\n", plan.DataPackets)
		fmt.Fprintf(w, "padding_packets: %d\n", plan.PaddingPackets())
		fmt.Fprintf(w, "total_packets: %d\n", plan.TotalPackets())
		return nil
	}
	return cmd
}

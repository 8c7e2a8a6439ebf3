package main

import (
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/shardfec/shardfec/frame"
	"github.com/shardfec/shardfec/videoquic"
)

func newSendCmd(o *options) *cobra.Command {
	var (
		addr   string
		frames int
		size   int
		fps    int
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send synthetic frames to a shardfec server",
		Args:  cobra.NoArgs,
	}
	applyRedundancy := redundancyFlag(cmd, o)
	cmd.Flags().StringVar(&addr, "addr", "", "server address (defaults to the config)")
	cmd.Flags().IntVar(&frames, "frames", 300, "number of frames to send")
	cmd.Flags().IntVar(&size, "size", 40000, "frame size in bytes")
	cmd.Flags().IntVar(&fps, "fps", 60, "frames per second")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := applyRedundancy(); err != nil {
			return err
		}
		if fps <= 0 || size < 0 {
			return errors.New("fps must be positive and size not negative")
		}
		cfg := o.cfg
		if addr != "" {
			cfg.Addr = addr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		s, err := videoquic.Dial(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		tick := time.NewTicker(time.Second / time.Duration(fps))
		defer tick.Stop()
		for i := 0; i < frames; i++ {
			data := make([]byte, size)
			rng.Read(data)
			f := frame.Frame{
				VideoFrameIndex:    uint64(i),
				TrackingFrameIndex: uint64(i),
				SentTimeUs:         uint64(time.Now().UnixMicro()),
				Data:               data,
			}
			if err := s.SendFrame(ctx, f); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
			}
		}
		log.Infow("sent", "frames", frames, "addr", cfg.Addr)
		return nil
	}
	return cmd
}

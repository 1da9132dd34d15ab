package main

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/pipeframe/pipeframe/command"
	"github.com/spf13/cobra"
)

var benchRounds int

var benchCmd = &cobra.Command{
	Use:   "bench <addr>",
	Short: "measure echo round-trips against a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if benchRounds < 1 {
			return fmt.Errorf("rounds must be positive")
		}
		client, err := command.Dial(args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		kb := 1 << 10
		for _, size := range []int{kb, 64 * kb, kb * kb, 4 * kb * kb} {
			data := make([]byte, size/2)
			rand.Read(data)
			payload := fmt.Sprintf("%x", data)

			start := time.Now()
			for i := 0; i < benchRounds; i++ {
				resp, err := client.Call(cmd.Context(), "echo", map[string]string{"data": payload})
				if err != nil {
					return err
				}
				if resp.Params["data"] != payload {
					return fmt.Errorf("echo of %d bytes does not match", size)
				}
			}
			diff := time.Since(start)
			thru := float64(2*size*benchRounds) / diff.Seconds() / (1 << 20)
			fmt.Fprintln(cmd.OutOrStdout(), "Bytes:", size, "Rounds:", benchRounds,
				"RTT:", diff/time.Duration(benchRounds), "Thru:", int(thru), "MB/s")
		}
		return nil
	},
}

func init() {
	benchCmd.Flags().IntVarP(&benchRounds, "rounds", "n", 10, "round-trips per payload size")
}

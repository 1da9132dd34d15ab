package main

import (
	"encoding/json"
	"fmt"

	"github.com/pipeframe/pipeframe/transport"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <addr> <json>",
	Short: "send one value to a receiver",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var v any
		if err := json.Unmarshal([]byte(args[1]), &v); err != nil {
			return err
		}
		c, err := valueCodec()
		if err != nil {
			return err
		}
		ch, err := transport.Dial(args[0])
		if err != nil {
			return err
		}
		defer ch.Close()
		return c.Encoder(ch).Encode(v)
	},
}

var recvCmd = &cobra.Command{
	Use:   "recv <addr>",
	Short: "receive one value and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := valueCodec()
		if err != nil {
			return err
		}
		l, err := transport.Listen(args[0])
		if err != nil {
			return err
		}
		defer l.Close()
		ch, err := l.Accept()
		if err != nil {
			return err
		}
		defer ch.Close()

		var v any
		if err := c.Decoder(ch).Decode(&v); err != nil {
			return err
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pipeframe/pipeframe/command"
	"github.com/progrium/clon-go"
	"github.com/spf13/cobra"
)

var callTimeout time.Duration

var callCmd = &cobra.Command{
	Use:   "call <addr> <name> [key=value...]",
	Short: "call a remote command",
	Long: `Call the named command on the server at addr. Arguments are parsed as
CLON key=value pairs and sent as request parameters. The response is
printed as JSON.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args[2:])
		if err != nil {
			return err
		}

		client, err := command.Dial(args[0], command.WithRequestTimeout(callTimeout))
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.Call(cmd.Context(), args[1], params)
		if resp == nil {
			return err
		}
		b, merr := json.MarshalIndent(struct {
			Type   command.ResponseType `json:"type"`
			Params map[string]string    `json:"params"`
		}{resp.Type, resp.Params}, "", "  ")
		if merr != nil {
			return merr
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return err
	},
}

func init() {
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 30*time.Second, "request timeout, 0 for none")
}

// parseParams turns CLON arguments into request parameters. Nested values
// are sent as JSON.
func parseParams(args []string) (map[string]string, error) {
	params := map[string]string{}
	if len(args) == 0 {
		return params, nil
	}
	v, err := clon.Parse(args)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arguments must be key=value pairs")
	}
	for k, v := range obj {
		switch v := v.(type) {
		case string:
			params[k] = v
		case map[string]any, []any:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			params[k] = string(b)
		default:
			params[k] = fmt.Sprint(v)
		}
	}
	return params, nil
}

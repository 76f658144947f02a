package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var powerCmd = &cobra.Command{
	Use:   "power <target> <on|off|cycle|state>",
	Short: "Control a target's power feed",
	Args:  cobra.ExactArgs(2),
	RunE:  runPower,
}

func init() {
	rootCmd.AddCommand(powerCmd)
}

func runPower(cmd *cobra.Command, args []string) error {
	client, err := apiClient()
	if err != nil {
		return err
	}
	name, op := args[0], args[1]

	if op == "state" {
		var out struct {
			On bool `json:"on"`
		}
		resp, err := client.R().SetResult(&out).Get("/targets/" + name + "/power")
		if err != nil {
			return err
		}
		if err := apiError(resp); err != nil {
			return err
		}
		if out.On {
			fmt.Println("on")
		} else {
			fmt.Println("off")
		}
		return nil
	}

	resp, err := client.R().Post("/targets/" + name + "/power/" + op)
	if err != nil {
		return err
	}
	return apiError(resp)
}

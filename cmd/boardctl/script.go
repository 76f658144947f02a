package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var scriptCmd = &cobra.Command{
	Use:   "script <target> <file.js>",
	Short: "Run a JavaScript command sequence on a target",
	Long: `Uploads a script and executes it against the target shell. The
script has a 'shell' object with run(cmd) and runCheck(cmd), plus a
capturing console. The captured console output prints afterwards.`,
	Args: cobra.ExactArgs(2),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(scriptCmd)
}

func runScript(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	client, err := apiClient()
	if err != nil {
		return err
	}

	var out struct {
		ID      string `json:"id"`
		Console []struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		} `json:"console"`
	}
	resp, err := client.R().
		SetBody(map[string]string{"source": string(source)}).
		SetResult(&out).
		Post("/targets/" + args[0] + "/script")
	if err != nil {
		return err
	}
	if err := apiError(resp); err != nil {
		return err
	}

	for _, entry := range out.Console {
		fmt.Printf("[%s] %s\n", entry.Level, entry.Message)
	}
	return nil
}

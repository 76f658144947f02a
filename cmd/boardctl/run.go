package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	runTimeout      int
	runCodec        string
	runDecodeErrors string
)

var runCmd = &cobra.Command{
	Use:   "run <target> <command...>",
	Short: "Run a shell command on a target",
	Long: `Runs one command on the target's shell and prints its output.
The process exit code mirrors the inferred shell exit status: 0 for
success, 1 for any non-zero or unknown status.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runTimeout, "timeout", 30, "Command timeout in seconds")
	runCmd.Flags().StringVar(&runCodec, "codec", "", "Output text codec (utf-8, iso-8859-1, auto, ...)")
	runCmd.Flags().StringVar(&runDecodeErrors, "decode-errors", "", "Decode error policy (strict, replace, ignore)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	client, err := apiClient()
	if err != nil {
		return err
	}

	body := map[string]interface{}{
		"command": strings.Join(args[1:], " "),
		"timeout": runTimeout,
	}
	if runCodec != "" {
		body["codec"] = runCodec
	}
	if runDecodeErrors != "" {
		body["decode_errors"] = runDecodeErrors
	}

	var out struct {
		Lines  []string `json:"lines"`
		Status int      `json:"status"`
	}
	resp, err := client.R().SetBody(body).SetResult(&out).Post("/targets/" + args[0] + "/run")
	if err != nil {
		return err
	}
	if err := apiError(resp); err != nil {
		return err
	}

	for _, line := range out.Lines {
		fmt.Println(line)
	}
	if out.Status != 0 {
		fmt.Fprintf(os.Stderr, "exit status %d\n", out.Status)
		os.Exit(1)
	}
	return nil
}

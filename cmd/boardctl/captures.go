package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var capturesCmd = &cobra.Command{
	Use:   "captures <target>",
	Short: "List console capture files for a target",
	Args:  cobra.ExactArgs(1),
	RunE:  listCaptures,
}

var capturesArchiveCmd = &cobra.Command{
	Use:   "archive <target> [output]",
	Short: "Download all captures as a tar.zst archive",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  downloadArchive,
}

func init() {
	capturesCmd.AddCommand(capturesArchiveCmd)
	rootCmd.AddCommand(capturesCmd)
}

func listCaptures(cmd *cobra.Command, args []string) error {
	client, err := apiClient()
	if err != nil {
		return err
	}

	var out struct {
		Files []struct {
			Name    string `json:"name"`
			Size    int64  `json:"size"`
			ModTime string `json:"mod_time"`
		} `json:"files"`
	}
	resp, err := client.R().
		SetResult(&out).
		Get("/targets/" + args[0] + "/captures")
	if err != nil {
		return err
	}
	if err := apiError(resp); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
	for _, f := range out.Files {
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Name, f.Size, f.ModTime)
	}
	return w.Flush()
}

func downloadArchive(cmd *cobra.Command, args []string) error {
	output := args[0] + "-captures.tar.zst"
	if len(args) == 2 {
		output = args[1]
	}
	client, err := apiClient()
	if err != nil {
		return err
	}

	resp, err := client.R().
		SetOutput(output).
		Get("/targets/" + args[0] + "/captures/archive")
	if err != nil {
		return err
	}
	if resp.IsError() {
		os.Remove(output)
		return fmt.Errorf("server returned %s", resp.Status())
	}
	fmt.Printf("wrote %s\n", output)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List lab targets",
	Args:  cobra.NoArgs,
	RunE:  runTargets,
}

var statusCmd = &cobra.Command{
	Use:   "status <target>",
	Short: "Show one target's status and command statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var activateCmd = &cobra.Command{
	Use:   "activate <target>",
	Short: "Synchronize the target shell",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivate,
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <target>",
	Short: "Reset the target shell readiness",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeactivate,
}

var transitionCmd = &cobra.Command{
	Use:   "transition <target> <off|booted|shell>",
	Short: "Drive the target's boot strategy",
	Args:  cobra.ExactArgs(2),
	RunE:  runTransition,
}

func init() {
	rootCmd.AddCommand(targetsCmd, statusCmd, activateCmd, deactivateCmd, transitionCmd)
}

func runTargets(cmd *cobra.Command, args []string) error {
	client, err := apiClient()
	if err != nil {
		return err
	}
	var out struct {
		Targets []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
			State  string `json:"state"`
		} `json:"targets"`
	}
	resp, err := client.R().SetResult(&out).Get("/targets")
	if err != nil {
		return err
	}
	if err := apiError(resp); err != nil {
		return err
	}
	for _, t := range out.Targets {
		fmt.Printf("%-24s %-10s %s\n", t.Name, t.Status, t.State)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := apiClient()
	if err != nil {
		return err
	}
	resp, err := client.R().Get("/targets/" + args[0])
	if err != nil {
		return err
	}
	if err := apiError(resp); err != nil {
		return err
	}
	fmt.Println(string(resp.Body()))
	return nil
}

func runActivate(cmd *cobra.Command, args []string) error {
	return postSimple("/targets/" + args[0] + "/activate")
}

func runDeactivate(cmd *cobra.Command, args []string) error {
	return postSimple("/targets/" + args[0] + "/deactivate")
}

func runTransition(cmd *cobra.Command, args []string) error {
	client, err := apiClient()
	if err != nil {
		return err
	}
	resp, err := client.R().
		SetBody(map[string]string{"state": args[1]}).
		Post("/targets/" + args[0] + "/transition")
	if err != nil {
		return err
	}
	if err := apiError(resp); err != nil {
		return err
	}
	fmt.Println(string(resp.Body()))
	return nil
}

func postSimple(path string) error {
	client, err := apiClient()
	if err != nil {
		return err
	}
	resp, err := client.R().Post(path)
	if err != nil {
		return err
	}
	if err := apiError(resp); err != nil {
		return err
	}
	fmt.Println(string(resp.Body()))
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "taskgate",
	Short: "Taskgate — role-gated task management API",
	Long:  "Taskgate is a task management backend with JWT access/refresh sessions and role-based authorization: admins manage everything, managers work their team's tasks within field-level limits, users work their own.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/taskgate.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/yuzuki/roomgrab/pkg/consts"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Print the version number of roomgrab",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("roomgrab version: %s (%s, built %s) %s/%s\n",
			consts.Version, consts.GitCommit, consts.BuildTime, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

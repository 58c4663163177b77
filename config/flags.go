package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func RegisterFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringP("room", "r", "", "room name, as in <base-url>/r/ROOMNAME")
	flags.StringP("passwd", "p", "", "room password (prefix with #key to pass a room key)")
	flags.StringP("username", "u", "", "username to use in the room")
	flags.BoolP("downloader", "d", true, "download files")
	flags.BoolP("logger", "l", true, "log the room chat")
	flags.StringP("folder", "f", "", "destination path template for downloads")
	flags.Bool("jd", false, "send links to the download manager folder watch")
	flags.Bool("myjd", false, "send links to the remote download manager API")

	bindFlags(cmd)
}

func bindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	viper.BindPFlag("room.name", flags.Lookup("room"))
	viper.BindPFlag("room.user", flags.Lookup("username"))
	viper.BindPFlag("download.enabled", flags.Lookup("downloader"))
	viper.BindPFlag("chatlog.enabled", flags.Lookup("logger"))
	viper.BindPFlag("download.path", flags.Lookup("folder"))
	viper.BindPFlag("folderwatch.enabled", flags.Lookup("jd"))
	viper.BindPFlag("remote_api.enabled", flags.Lookup("myjd"))
}

// ApplyPasswordFlag keeps the original #key convention: a --passwd value
// starting with #key is a room key, anything else a room password.
func ApplyPasswordFlag(passwd string) {
	if passwd == "" {
		return
	}
	if len(passwd) > 4 && passwd[:4] == "#key" {
		viper.Set("room.key", passwd[4:])
		return
	}
	viper.Set("room.password", passwd)
}

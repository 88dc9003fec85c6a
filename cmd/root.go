package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"aicommit/api"
	commitcmd "aicommit/cmd/commit"
)

var (
	baseURL    string
	modelName  string
	configFile string

	RootCmd = &cobra.Command{
		Use:           "aicommit",
		Short:         "aicommit writes conventional commit messages from your staged diff",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func Execute() error {
	return RootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Completion model name (default from OPENAI_MODEL)")
	RootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Completion API base URL (default from OPENAI_BASE_URL)")
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./.aicommit.yaml)")

	viper.BindPFlag("model", RootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("baseURL", RootCmd.PersistentFlags().Lookup("base-url"))

	RootCmd.AddCommand(commitcmd.CommitCmd)
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".aicommit")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.BindEnv("apiKey", "OPENAI_API_KEY")
	viper.BindEnv("baseURL", "OPENAI_BASE_URL")
	viper.BindEnv("model", "OPENAI_MODEL")
	viper.SetDefault("baseURL", api.DefaultBaseURL)
	viper.SetDefault("model", api.DefaultModel)

	viper.AutomaticEnv()
	viper.ReadInConfig()
}

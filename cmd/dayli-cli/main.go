package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dayli-app/dayli/clientcli"
)

var (
	version = "dev"

	cfgFile     string
	profileName string
	endpoint    string
	token       string
	userID      string
	jsonOutput  bool
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:     "dayli-cli",
	Version: version,
	Short:   "Client for the Dayli storage server",
	Long: `Dayli CLI - Client for the Dayli storage server

Uploads request a presigned credential from the server, then send the
file straight to the object store. Deletes and image fetches go through
the server, which enforces ownership.

Connection settings come from profiles (~/.dayli/config.yaml), the
DAYLI_ENDPOINT / DAYLI_TOKEN / DAYLI_USER_ID environment variables, or
flags. Flags take precedence.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.dayli/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "profile name (env: DAYLI_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "server", "s", "", "server URL (default: http://localhost:5810, env: DAYLI_ENDPOINT)")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", "", "bearer token (env: DAYLI_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user id (env: DAYLI_USER_ID)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// getConfigPath returns the config file path, preferring the flag, then the
// environment, then the default location.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if envPath := clientcli.ConfigPathFromEnv(); envPath != "" {
		return envPath
	}
	return clientcli.DefaultConfigPath()
}

// buildConfig merges config from profile, env vars, and flags (flags take precedence).
func buildConfig() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	// 1. Load from the selected profile, if a config file exists
	name := profileName
	if name == "" {
		name = clientcli.ProfileFromEnv()
	}

	configPath := getConfigPath()
	if configPath != "" {
		fileCfg, err := clientcli.LoadConfigFile(configPath)
		if err == nil {
			p, profileErr := fileCfg.GetProfile(name)
			if profileErr != nil && (name != "" || cfgFile != "") {
				return nil, profileErr
			}
			if profileErr == nil {
				configs = append(configs, clientcli.ConfigFromProfile(p))
			}
		} else if cfgFile != "" {
			// Only error if the user explicitly specified a config file
			return nil, err
		}
	}

	// 2. Load from environment variables
	configs = append(configs, clientcli.ConfigFromEnv())

	// 3. Load from flags
	configs = append(configs, &clientcli.Config{
		Endpoint: endpoint,
		Token:    token,
		UserID:   userID,
	})

	return clientcli.MergeConfig(configs...), nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return clientcli.New(cfg)
}

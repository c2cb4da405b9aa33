package cmd

import (
	"fmt"
	"strings"

	"github.com/HaydarovAkbar/HikVision/internal/client"
	"github.com/HaydarovAkbar/HikVision/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Variables to hold flag values
var (
	host     string
	user     string
	pass     string
	port     int
	protocol string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify credentials against a device and save them",
	Long: `Checks that the device answers the device info request with the given
credentials, then saves the connection settings to the config file so later
commands can reuse them.

Example:
  hikvision-cli login --host 172.18.18.60 --username admin --password secret`,
	Run: func(cmd *cobra.Command, args []string) {
		host = strings.TrimSpace(host)
		protocol = strings.ToLower(protocol)

		viper.Set("host", host)
		viper.Set("username", user)
		viper.Set("password", pass)
		viper.Set("port", port)
		viper.Set("protocol", protocol)

		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			fail("Error: invalid connection settings: %v", err)
		}

		fmt.Printf("Checking %s as user '%s'...\n", cfg.BaseURL(), user)

		api := client.New(cfg)
		if err := api.Ping(cmd.Context()); err != nil {
			fail("Login failed: %s", explain(err))
		}

		fmt.Println("Login successful. Saving configuration...")

		if err := config.SaveConnection(host, user, pass, port, protocol); err != nil {
			fail("Failed to save configuration file: %v", err)
		}

		fmt.Printf("Connection saved. You can now run commands like 'hikvision-cli collect'.\n")
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&host, "host", "", "Device IP address or host name")
	loginCmd.Flags().StringVarP(&user, "username", "u", "admin", "Device username")
	loginCmd.Flags().StringVarP(&pass, "password", "p", "", "Device password")
	loginCmd.Flags().IntVar(&port, "port", 80, "Device HTTP port")
	loginCmd.Flags().StringVar(&protocol, "protocol", "http", "http or https")

	_ = loginCmd.MarkFlagRequired("host")
	_ = loginCmd.MarkFlagRequired("password")
}

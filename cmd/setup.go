package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"wattmon/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, _, err := config.Load()
	if err != nil {
		return err
	}

	clientID := cfg.Telemetry.ClientID
	clientSecret := cfg.Telemetry.ClientSecret
	defaultDays := strconv.Itoa(cfg.General.DefaultDays)

	var deviceID, deviceName, deviceLocation string
	if len(cfg.Devices) > 0 {
		deviceID = cfg.Devices[0].DeviceID
		deviceName = cfg.Devices[0].Name
		deviceLocation = cfg.Devices[0].Location
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cloud API client id").
				Description("From the smart-plug vendor's developer console.").
				Value(&clientID),
			huh.NewInput().
				Title("Cloud API client secret").
				EchoMode(huh.EchoModePassword).
				Value(&clientSecret),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Device id").
				Description("The smart plug powering your rig.").
				Value(&deviceID),
			huh.NewInput().
				Title("Device name").
				Value(&deviceName),
			huh.NewInput().
				Title("Location").
				Description("Tariff tables are looked up by location.").
				Value(&deviceLocation),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default report window").
				Options(
					huh.NewOption("7 days", "7"),
					huh.NewOption("30 days", "30"),
					huh.NewOption("90 days", "90"),
				).
				Value(&defaultDays),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Telemetry.ClientID = clientID
	cfg.Telemetry.ClientSecret = clientSecret
	if days, err := strconv.Atoi(defaultDays); err == nil && days > 0 {
		cfg.General.DefaultDays = days
	}

	if deviceID != "" {
		dev := config.DeviceConfig{DeviceID: deviceID, Name: deviceName, Location: deviceLocation}
		if len(cfg.Devices) > 0 {
			cfg.Devices[0] = dev
		} else {
			cfg.Devices = append(cfg.Devices, dev)
		}
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Edit the [tariffs] section there to match your electricity plan.")
	fmt.Println("  Run `wattmon daemon` to start monitoring.")
	fmt.Println()
	return nil
}

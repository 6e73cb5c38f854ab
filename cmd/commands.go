package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"halights/internal/auth"
	"halights/internal/discovery"
	"halights/internal/ha"
	"halights/internal/tui"
	"halights/internal/views"

	"github.com/spf13/cobra"
)

var scanTimeout time.Duration

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(lightsCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "how long to listen for announcements")
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(tui.Deps{
		Auth:    a.auth,
		Scanner: discovery.NewScanner(a.logger),
		Logger:  a.logger,
		Host:    a.cfg.Host,
		Token:   a.cfg.Token,
	})
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check a host and token and remember them",
	Long: `Performs a single connection attempt with the given host and token.
On success the credential is stored and used to prefill the login screen.`,
	Example: `  halights login --host 192.168.1.50 --token <token>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*a.cfg.ConnectTimeout)
		defer cancel()

		if _, err := a.auth.Login(ctx, a.cfg.Host, a.cfg.Token); err != nil {
			return describeLoginError(err)
		}

		cred, _ := a.auth.Saved()
		fmt.Printf("Logged in to %s\n", cred.Host)
		return nil
	},
}

var lightsCmd = &cobra.Command{
	Use:   "lights",
	Short: "List the lights of the instance",
	Long: `Connects with the stored credential (or --host/--token) and prints every
light entity with its state. Selected lights are marked with '*'.`,
	RunE: runLights,
}

func runLights(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	host, token := a.cfg.Host, a.cfg.Token
	if saved, ok := a.auth.Saved(); ok {
		if host == "" {
			host = saved.Host
		}
		if token == "" {
			token = saved.Token
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*a.cfg.ConnectTimeout)
	defer cancel()

	session, err := a.auth.Login(ctx, host, token)
	if err != nil {
		return describeLoginError(err)
	}

	queue := views.NewQueue()
	defer queue.Close()

	ctrl := views.NewSelectController(session, a.store, queue.Post, a.logger)
	if err := ctrl.Mount(); err != nil {
		return err
	}
	defer ctrl.Unmount()

	if err := queue.RunUntil(ctx, func() bool { return !ctrl.Loading() }); err != nil {
		return fmt.Errorf("timed out waiting for states: %w", err)
	}

	if err := ctrl.Err(); err != nil {
		return err
	}

	entities := ctrl.Entities()
	if len(entities) == 0 {
		fmt.Println("No lights found.")
		return nil
	}
	for _, e := range entities {
		mark := " "
		if ctrl.IsSelected(e.EntityID) {
			mark = "*"
		}
		fmt.Printf("%s %-40s %-4s %s\n", mark, e.EntityID, e.State, e.FriendlyName())
	}
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential and selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.auth.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find Home Assistant instances on the local network",
	Long: `Listens for mDNS announcements of Home Assistant (_home-assistant._tcp)
and prints every instance found.`,
	Example: `  halights discover
  halights discover --timeout 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Scanning for Home Assistant (timeout: %s)...\n\n", scanTimeout)

		scanner := discovery.NewScanner(a.logger)
		scanner.Timeout = scanTimeout
		instances, err := scanner.Scan(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if len(instances) == 0 {
			fmt.Println("No instances found.")
			return nil
		}

		for i, inst := range instances {
			fmt.Printf("%d. %s\n", i+1, inst.Name)
			fmt.Printf("   Host:    %s\n", inst.Host())
			if inst.Version != "" {
				fmt.Printf("   Version: %s\n", inst.Version)
			}
			if inst.BaseURL != "" {
				fmt.Printf("   URL:     %s\n", inst.BaseURL)
			}
			fmt.Println()
		}
		fmt.Println("Use 'halights login --host <host> --token <token>' to connect")
		return nil
	},
}

func describeLoginError(err error) error {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return fmt.Errorf("%w (use --host and --token)", err)
	case errors.Is(err, ha.ErrAuthInvalid):
		return errors.New("connection failed: the token was rejected")
	case errors.Is(err, ha.ErrTimeout):
		return errors.New("connection failed: no answer within the timeout")
	default:
		return fmt.Errorf("connection failed: %w", err)
	}
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/convobridge/convobridge/pkg/app"
)

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Run convobridge as a system service",
	}

	var cfgPath string
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to configuration file")

	for _, action := range []string{"install", "uninstall", "start", "stop"} {
		action := action
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			RunE: func(_ *cobra.Command, _ []string) error {
				svc, err := newService(cfgPath)
				if err != nil {
					return err
				}
				if err := service.Control(svc, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				fmt.Printf("Service %s: done\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager (used by the installed unit)",
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService(cfgPath)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	})

	return cmd
}

func newService(cfgPath string) (service.Service, error) {
	args := []string{"service", "run"}
	if cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	return service.New(&program{cfgPath: cfgPath}, &service.Config{
		Name:        "convobridge",
		DisplayName: "ConvoBridge",
		Description: "Multi-platform conversation bridge for AI agents",
		Arguments:   args,
	})
}

// program adapts the application loop to the service manager interface.
type program struct {
	cfgPath string
	errCh   chan error
}

func (p *program) Start(service.Service) error {
	p.errCh = make(chan error, 1)
	go func() {
		p.errCh <- app.Run(app.RunParams{
			ConfigPath: p.cfgPath,
			Version:    version,
			Commit:     commit,
			Date:       date,
			LogLevel:   slog.LevelInfo,
		})
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	// app.Run exits on SIGTERM, which the service manager delivers to the
	// process; nothing extra to tear down here.
	return nil
}

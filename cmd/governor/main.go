// SPDX-License-Identifier: BSD-3-Clause

// Command governor runs the supervisory state manager for a beamline
// endstation: it compiles the given machine configurations, publishes
// the channel namespace on the embedded bus, and sequences collision-free
// transitions between named states.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cfgpkg "github.com/Usernamejwle/governor/pkg/config"
	"github.com/Usernamejwle/governor/pkg/log"
	"github.com/Usernamejwle/governor/service/governor"
	ipcsvc "github.com/Usernamejwle/governor/service/ipc"
)

// version is stamped by the build.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPaths []string
		checkConfig bool
		logLevel    string
		prefix      string
		syncPath    string
	)

	cmd := &cobra.Command{
		Use:           "governor -c CONFIG [CONFIG ...]",
		Short:         "Supervisory state manager for beamline endstation positioners",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetGlobalLevel(level)

			configs, syncMap, err := loadConfigs(configPaths, syncPath)
			if checkConfig {
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				fmt.Println("configuration OK")
				return nil
			}
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gov := governor.New(
				governor.WithPrefix(prefix),
				governor.WithVersion(version),
				governor.WithConfigs(configs...),
				governor.WithSyncMap(syncMap),
				governor.WithIPC(ipcsvc.New()),
			)
			return gov.Run(ctx, nil)
		},
	}

	cmd.Flags().StringArrayVarP(&configPaths, "config", "c", nil, "machine configuration file (repeatable, at least one)")
	cmd.Flags().BoolVar(&checkConfig, "check_config", false, "parse and validate the configuration, then exit")
	cmd.Flags().StringVarP(&logLevel, "log-level", "l", "INFO", "log level {DEBUG,INFO,WARNING,ERROR,CRITICAL}")
	cmd.Flags().StringVar(&prefix, "prefix", "", "string prepended to every published channel")
	cmd.Flags().StringVarP(&syncPath, "sync", "s", "", "target synchronization map file")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// loadConfigs reads, parses, and validates every machine configuration
// and the optional sync map, collecting all problems before reporting.
func loadConfigs(paths []string, syncPath string) ([]*cfgpkg.Machine, cfgpkg.Sync, error) {
	var configs []*cfgpkg.Machine
	for _, path := range paths {
		m, err := cfgpkg.Load(path)
		if err != nil {
			return nil, nil, err
		}
		if err := m.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		configs = append(configs, m)
	}

	var syncMap cfgpkg.Sync
	if syncPath != "" {
		s, err := cfgpkg.LoadSync(syncPath)
		if err != nil {
			return nil, nil, err
		}
		if err := cfgpkg.ValidateSync(s, configs); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", syncPath, err)
		}
		syncMap = s
	}

	return configs, syncMap, nil
}

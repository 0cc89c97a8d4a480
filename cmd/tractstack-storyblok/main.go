package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/application/container"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/application/startup"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/build"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:           "tractstack-storyblok",
	Short:         "Storyblok integration host and live-preview server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the integration and serve previews",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return startup.Initialize(ctx)
	},
}

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "Print the scripts the integration injects",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Hub.Close()
		return printScripts(cmd.OutOrStdout(), c)
	},
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Print the virtual modules the integration provides",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Hub.Close()
		return printModules(cmd.Context(), cmd.OutOrStdout(), c)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of text")
	rootCmd.AddCommand(serveCmd, scriptsCmd, modulesCmd)
}

func buildContainer(ctx context.Context) (*container.Container, error) {
	logger, err := startup.NewLogger()
	if err != nil {
		return nil, err
	}
	c, err := startup.NewContainer(logger)
	if err != nil {
		return nil, err
	}
	if _, err := startup.Build(ctx, c); err != nil {
		c.Hub.Close()
		return nil, err
	}
	return c, nil
}

func printScripts(w io.Writer, c *container.Container) error {
	scripts := c.Pipeline.Scripts()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(scripts)
	}
	for _, s := range scripts {
		fmt.Fprintf(w, "// stage: %s\n%s\n", s.Stage, s.Source)
	}
	return nil
}

func printModules(ctx context.Context, w io.Writer, c *container.Container) error {
	for _, id := range []string{build.InitModuleID, build.ComponentsModuleID} {
		module, err := c.Pipeline.Module(ctx, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			if err := json.NewEncoder(w).Encode(map[string]string{"id": id, "source": module.Source}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(w, "// %s\n%s\n", id, module.Source)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("tractstack-storyblok: %v", err)
		os.Exit(1)
	}
}

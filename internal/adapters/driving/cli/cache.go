package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the answer cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Invalidate every cached answer",
	Long: `Bumps the cache namespace so every existing answer is ignored.
Old entries expire on their own.`,
	RunE: runCacheClear,
}

var cacheNamespaceCmd = &cobra.Command{
	Use:   "namespace",
	Short: "Show the current cache namespace",
	RunE:  runCacheNamespace,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheNamespaceCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	if cacheService == nil {
		return fmt.Errorf("cache %w", errNotConfigured)
	}
	ns, err := cacheService.Clear(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	cmd.Printf("Cache cleared (namespace %d)\n", ns)
	return nil
}

func runCacheNamespace(cmd *cobra.Command, _ []string) error {
	if cacheService == nil {
		return fmt.Errorf("cache %w", errNotConfigured)
	}
	ns, err := cacheService.Namespace(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read namespace: %w", err)
	}
	cmd.Println(ns)
	return nil
}

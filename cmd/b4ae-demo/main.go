// Command b4ae-demo exercises the cryptographic core end-to-end: it runs a
// complete handshake between an in-process initiator and responder, then
// exchanges a few padded, ratcheted messages, logging each step. It is a
// demonstration harness only; it performs no real network I/O.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/b4ae/core/internal/config"
	"github.com/b4ae/core/internal/logging"
	"github.com/b4ae/core/pkg/handshake"
	"github.com/b4ae/core/pkg/registry"
)

var (
	configPath string
	logLevel   string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "b4ae-demo",
		Short: "Demonstrates the B4AE handshake and double-ratchet session",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults applied if empty)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	root.AddCommand(handshakeCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.GenerateDefault(), nil
	}
	return config.LoadConfig(configPath)
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.DEBUG
	case "warn":
		return logging.WARN
	case "error":
		return logging.ERROR
	default:
		return logging.INFO
	}
}

func handshakeCmd() *cobra.Command {
	var messageCount int
	cmd := &cobra.Command{
		Use:   "handshake",
		Short: "Run a complete handshake and exchange a few messages between two in-process peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logging.New("b4ae-demo", parseLevel(logLevel), os.Stdout)
			return runHandshakeDemo(log, cfg, messageCount)
		},
	}
	cmd.Flags().IntVar(&messageCount, "messages", 3, "number of messages to exchange after the handshake completes")
	return cmd
}

func runHandshakeDemo(log *logging.Logger, cfg *config.Config, messageCount int) error {
	reg := registry.New(registry.Config{
		RatchetInterval:   cfg.RatchetInterval,
		SkipCacheCapacity: cfg.SkipCacheCapacity,
		SkipDistanceMax:   cfg.SkipDistanceMax,
		PaddingBlockSize:  cfg.PaddingBlockSize,
	})

	alice := []byte("alice")
	bob := []byte("bob")

	log.Info("starting handshake", logging.Fields{"initiator": string(alice), "responder": string(bob)})

	initMsg, err := reg.Initiate(alice)
	if err != nil {
		return fmt.Errorf("initiate: %w", err)
	}

	respBytes, err := reg.Receive(bob, true, initMsg.Encode())
	if err != nil {
		return fmt.Errorf("bob processes init: %w", err)
	}
	log.Info("responder processed init", logging.Fields{"state": handshake.StateWaitingComplete.String()})

	completeBytes, err := reg.Receive(alice, false, respBytes)
	if err != nil {
		return fmt.Errorf("alice processes response: %w", err)
	}
	log.Info("initiator completed handshake", logging.Fields{"state": handshake.StateCompleted.String()})

	if _, err := reg.Receive(bob, false, completeBytes); err != nil {
		return fmt.Errorf("bob processes complete: %w", err)
	}
	log.Info("responder completed handshake", logging.Fields{"state": handshake.StateCompleted.String()})

	messages := []string{"hello", "world", "post-quantum"}
	for i := 0; i < messageCount; i++ {
		plaintext := messages[i%len(messages)]
		if err := exchangeOne(log, reg, alice, bob, plaintext); err != nil {
			return err
		}
	}

	return nil
}

func exchangeOne(log *logging.Logger, reg *registry.Registry, from, to []byte, plaintext string) error {
	wire, err := reg.Encrypt(from, []byte(plaintext), nil)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	log.Info("sent message", logging.Fields{"from": string(from), "counter": wire.Header.Counter, "ratchet": wire.Header.Flags != 0})

	recovered, err := reg.Decrypt(to, wire, nil)
	if err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}
	log.Info("received message", logging.Fields{"to": string(to), "plaintext": string(recovered)})

	return nil
}

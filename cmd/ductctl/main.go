// Command ductctl is duct's operator CLI: inspecting a bus's ring
// capacity, probing a listener with a single round-trip, and reaping
// stale shared-memory segments. Grounded in billm-baaaht's cmd/root.go
// cobra command tree, cut down to duct's much smaller surface.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuihairu/duct"
	"github.com/cuihairu/duct/internal/ductlog"
	"github.com/cuihairu/duct/internal/shm"
	"github.com/cuihairu/duct/internal/shmcleanup"
	"github.com/cuihairu/duct/message"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "ductctl",
	Short: "Inspect and exercise duct buses from the command line",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ductlog.SetLevel(logLevel)
	},
}

var capacityCmd = &cobra.Command{
	Use:   "capacity",
	Short: "Report the fixed slot capacity of the shm:// ring layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("slot count:        %d\n", shm.SlotCount)
		fmt.Printf("slot payload max:  %d bytes\n", shm.SlotPayloadMax)
		fmt.Printf("ring capacity:     %d bytes\n", shm.SlotCount*shm.SlotPayloadMax)
		fmt.Printf("segment size:      %d bytes (both directions)\n", shm.ShmSize)
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping <address>",
	Short: "Dial address, send one message, wait for an echo, then exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		p, st := duct.Dial(args[0], duct.DialOptions{Timeout: timeout})
		if !st.Ok() {
			return fmt.Errorf("dial: %s", st.Error())
		}
		defer p.Close()

		if st := p.Send(message.FromString("ping"), duct.SendOptions{Timeout: timeout}); !st.Ok() {
			return fmt.Errorf("send: %s", st.Error())
		}
		msg, st := p.Recv(duct.RecvOptions{Timeout: timeout})
		if !st.Ok() {
			return fmt.Errorf("recv: %s", st.Error())
		}
		fmt.Printf("reply: %s\n", string(msg.Bytes()))
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <dir> <bus-name>",
	Short: "Remove every shm segment under <dir> and every shm bootstrap socket (never run automatically)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return shmcleanup.CleanupStaleBus(args[0], args[1])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug|info|warn|error")
	pingCmd.Flags().Duration("timeout", 5*time.Second, "per-operation timeout")
	rootCmd.AddCommand(capacityCmd, pingCmd, cleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

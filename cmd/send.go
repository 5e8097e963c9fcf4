package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mhurbridge/pkg/protocol"
)

var (
	sendAddr       string
	sendPacketSize int
)

var sendCmd = &cobra.Command{
	Use:   "send <job.json | ->",
	Short: "Send an import job to a running bridge",
	Long: "Reads an import job document from a file, or from stdin when the argument is -, " +
		"checks that it decodes and sends it to the bridge over UDP.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		payload, err := readJob(args[0], os.Stdin, term.IsTerminal(int(os.Stdin.Fd())))
		if err != nil {
			return err
		}

		job, err := protocol.Decode(payload)
		if err != nil {
			return err
		}

		addr := sendAddr
		if addr == "" {
			addr = cfg.Bridge.Address()
		}
		size := sendPacketSize
		if size <= 0 {
			size = cfg.Bridge.PacketSize
		}

		if err := protocol.Send(cmd.Context(), addr, payload, size); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "sent %s (%s, %d parts) to %s\n", job.Data.Name, job.Data.Kind, len(job.Data.Parts), addr)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendAddr, "addr", "", "bridge address (default: bridge host and port from config)")
	sendCmd.Flags().IntVar(&sendPacketSize, "packet-size", 0, "fragment size in bytes (default: bridge packet_size from config)")
}

// readJob reads the job document named by arg. An interactive stdin is
// refused so the command never waits on a terminal.
func readJob(arg string, stdin io.Reader, interactive bool) ([]byte, error) {
	if arg == "-" {
		if interactive {
			return nil, errors.New("refusing to read a job from a terminal; pipe a document or pass a file")
		}
		payload, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read job from stdin: %w", err)
		}
		return payload, nil
	}

	payload, err := os.ReadFile(filepath.Clean(arg))
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	return payload, nil
}

package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/spf13/cobra"
)

func DevCmd() *cobra.Command {
	var (
		port          string
		storageDriver string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Run the server with hot reload (air)",
		Long: `Run the server under air, rebuilding on changes to Go, CSS and SQL files.
Objects are kept on the local filesystem unless --storage=s3 is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(port, storageDriver)
		},
	}
	cmd.Flags().StringVar(&port, "port", "8090", "Port to listen on")
	cmd.Flags().StringVar(&storageDriver, "storage", "", "Storage driver (default: $STORAGE_DRIVER or local)")
	return cmd
}

func runDev(port, storageDriver string) error {
	airPath, err := exec.LookPath("air")
	if err != nil {
		return fmt.Errorf("air not found, install with: go install github.com/air-verse/air@latest")
	}

	if storageDriver == "" {
		storageDriver = os.Getenv("STORAGE_DRIVER")
	}
	if storageDriver == "" {
		storageDriver = "local"
	}

	args := []string{
		"air",
		"-c", "/dev/null",
		"-root", ".",
		"-build.cmd", "go build -o ./tmp/server ./cmd/server",
		"-build.bin", "./tmp/server",
		"-build.delay", "100",
		"-build.exclude_dir", "bin,tmp,data,_examples",
		"-build.exclude_regex", "_test.go$",
		"-build.include_ext", "go,css,sql",
		"-build.kill_delay", "500ms",
		"-build.send_interrupt", "true",
	}

	env := append(os.Environ(),
		"PORT="+port,
		"STORAGE_DRIVER="+storageDriver,
	)
	fmt.Printf("fileshare dev server on http://localhost:%s (storage: %s)\n", port, storageDriver)

	return syscall.Exec(airPath, args, env)
}

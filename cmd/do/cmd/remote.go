package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// RemoteCmd manages a deployed fileshare server over SSH.
func RemoteCmd() *cobra.Command {
	var (
		target sshTarget
		unit   string
	)

	remoteCmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage the deployed server over SSH",
	}
	remoteCmd.PersistentFlags().StringVar(&target.host, "host", os.Getenv("SSH_HOST"), "SSH host (user@host) or set SSH_HOST env")
	remoteCmd.PersistentFlags().StringVar(&target.port, "port", "22", "SSH port")
	remoteCmd.PersistentFlags().StringVar(&target.keyPath, "key", "", "Path to SSH private key (default: ~/.ssh/id_ed25519)")
	remoteCmd.PersistentFlags().StringVar(&unit, "unit", "fileshare", "systemd unit running the server")

	remoteCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the state of the server and notification timer units",
		RunE: func(cmd *cobra.Command, args []string) error {
			return remoteStatus(cmd, target, unit)
		},
	})

	var lines int
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent server logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return remoteRun(cmd, target, fmt.Sprintf("journalctl -u %s -n %d --no-pager", shellQuote(serviceName(unit)), lines))
		},
	}
	logsCmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of log lines")
	remoteCmd.AddCommand(logsCmd)

	remoteCmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Restart the server unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			service := shellQuote(serviceName(unit))
			return remoteRun(cmd, target, "systemctl restart "+service+" && systemctl is-active "+service)
		},
	})

	var (
		every  time.Duration
		appURL string
		secret string
	)
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Install a systemd timer that triggers /functions/send-notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			if appURL == "" {
				return fmt.Errorf("--url is required or set APP_URL env")
			}
			if every < time.Minute {
				return fmt.Errorf("--every must be at least 1m")
			}
			return remoteRun(cmd, target, notifyTimerScript(unit, appURL, secret, every))
		},
	}
	scheduleCmd.Flags().DurationVar(&every, "every", 15*time.Minute, "Interval between notification runs")
	scheduleCmd.Flags().StringVar(&appURL, "url", os.Getenv("APP_URL"), "Public base URL of the server")
	scheduleCmd.Flags().StringVar(&secret, "secret", os.Getenv("FUNCTION_SECRET"), "Bearer secret for /functions/*")
	remoteCmd.AddCommand(scheduleCmd)

	remoteCmd.AddCommand(&cobra.Command{
		Use:   "unschedule",
		Short: "Remove the notification timer",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := unit + "-notify"
			script := strings.Join([]string{
				"systemctl disable --now " + shellQuote(name+".timer"),
				"rm -f " + shellQuote("/etc/systemd/system/"+name+".timer") + " " + shellQuote("/etc/systemd/system/"+name+".service"),
				"systemctl daemon-reload",
			}, " && ")
			return remoteRun(cmd, target, script)
		},
	})

	return remoteCmd
}

func serviceName(unit string) string {
	if strings.HasSuffix(unit, ".service") {
		return unit
	}
	return unit + ".service"
}

func remoteRun(cmd *cobra.Command, target sshTarget, script string) error {
	client, err := target.connect()
	if err != nil {
		return fmt.Errorf("ssh connect: %w", err)
	}
	defer func() { _ = client.Close() }()

	output, err := runRemote(client, script)
	fmt.Fprint(cmd.OutOrStdout(), output)
	if err != nil {
		return fmt.Errorf("remote command failed: %w", err)
	}
	return nil
}

type unitState struct {
	Unit        string `json:"unit"`
	Load        string `json:"load"`
	Active      string `json:"active"`
	Sub         string `json:"sub"`
	Description string `json:"description"`
}

func remoteStatus(cmd *cobra.Command, target sshTarget, unit string) error {
	client, err := target.connect()
	if err != nil {
		return fmt.Errorf("ssh connect: %w", err)
	}
	defer func() { _ = client.Close() }()

	output, err := runRemote(client, "systemctl list-units --all --no-pager --output=json "+shellQuote(unit+"*"))
	if err != nil {
		return fmt.Errorf("run command: %w: %s", err, output)
	}

	var units []unitState
	err = json.Unmarshal([]byte(output), &units)
	if err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	if len(units) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no units matching %s\n", unit)
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-32s %-8s %-10s %s\n", "UNIT", "ACTIVE", "SUB", "DESCRIPTION")
	for _, u := range units {
		fmt.Fprintf(out, "%-32s %-8s %-10s %s\n", u.Unit, u.Active, u.Sub, u.Description)
	}
	return nil
}

// notifyTimerScript writes a oneshot service and a timer that POSTs to the notification function.
// The secret goes to an EnvironmentFile created with mode 600 before it is written.
func notifyTimerScript(unit, appURL, secret string, every time.Duration) string {
	name := unit + "-notify"
	endpoint := strings.TrimRight(appURL, "/") + "/functions/send-notifications"
	envFile := "/etc/" + name + ".env"

	curl := "/usr/bin/curl -fsS -X POST " + endpoint
	env := ""
	if secret != "" {
		curl += " -H \"Authorization: Bearer ${NOTIFY_SECRET}\""
		env = "EnvironmentFile=" + envFile + "\n"
	}

	service := fmt.Sprintf(`[Unit]
Description=Send fileshare notifications
After=network-online.target

[Service]
Type=oneshot
%sExecStart=%s
`, env, curl)

	timer := fmt.Sprintf(`[Unit]
Description=Run %s every %s

[Timer]
OnBootSec=2min
OnUnitActiveSec=%ss
Unit=%s.service

[Install]
WantedBy=timers.target
`, name, every, strconv.FormatInt(int64(every/time.Second), 10), name)

	var steps []string
	if secret != "" {
		steps = append(steps,
			"install -m 600 /dev/null "+shellQuote(envFile),
			"printf '%s' "+shellQuote(envLine("NOTIFY_SECRET", secret))+" > "+shellQuote(envFile),
		)
	}
	steps = append(steps,
		"printf '%s' "+shellQuote(service)+" > "+shellQuote("/etc/systemd/system/"+name+".service"),
		"printf '%s' "+shellQuote(timer)+" > "+shellQuote("/etc/systemd/system/"+name+".timer"),
		"systemctl daemon-reload",
		"systemctl enable --now "+shellQuote(name+".timer"),
		"systemctl list-timers --no-pager "+shellQuote(name+".timer"),
	)
	return strings.Join(steps, " && ")
}

var envValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`", "\n", "")

// envLine renders a double-quoted KEY="value" line for a systemd EnvironmentFile.
func envLine(key, value string) string {
	return key + `="` + envValueEscaper.Replace(value) + "\"\n"
}

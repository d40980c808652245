package cmd

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

type sshTarget struct {
	host    string // user@host
	port    string
	keyPath string
}

func (t sshTarget) connect() (*ssh.Client, error) {
	if t.host == "" {
		return nil, fmt.Errorf("--host is required or set SSH_HOST env")
	}

	authMethods, err := authMethods(t.keyPath)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            parseUser(t.host),
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := net.JoinHostPort(parseHost(t.host), t.port)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return client, nil
}

func runRemote(client *ssh.Client, cmd string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", err
	}
	defer func() { _ = session.Close() }()

	output, err := session.CombinedOutput(cmd)
	return string(output), err
}

func authMethods(keyPath string) ([]ssh.AuthMethod, error) {
	// Try ssh-agent first
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err == nil {
			agentClient := agent.NewClient(conn)
			keys, err := agentClient.List()
			if err == nil && len(keys) > 0 {
				return []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)}, nil
			}
			_ = conn.Close()

			if err := runSSHAdd(); err != nil {
				return nil, fmt.Errorf("ssh-add failed: %w", err)
			}

			conn, err = net.Dial("unix", sock)
			if err == nil {
				agentClient = agent.NewClient(conn)
				return []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)}, nil
			}
		}
	}

	// Fall back to key file
	var (
		key []byte
		err error
	)
	if keyPath != "" {
		key, err = os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read key %s: %w", keyPath, err)
		}
	} else {
		key, err = findSSHKey()
		if err != nil {
			return nil, err
		}
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse key (use ssh-add to load passphrase-protected keys): %w", err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func runSSHAdd() error {
	fmt.Println("No keys in ssh-agent, running ssh-add...")
	cmd := exec.Command("ssh-add")
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func findSSHKey() ([]byte, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	keyNames := []string{"id_ed25519", "id_rsa", "id_ecdsa"}
	for _, name := range keyNames {
		key, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("no SSH key found in ~/.ssh (tried: %v)", keyNames)
}

func parseUser(host string) string {
	if user, _, ok := strings.Cut(host, "@"); ok {
		return user
	}
	return "root"
}

func parseHost(host string) string {
	if _, h, ok := strings.Cut(host, "@"); ok {
		return h
	}
	return host
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

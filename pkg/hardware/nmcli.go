package hardware

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Runner executes a command and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Exec runs commands on the host
func Exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NMCLI controls the wireless radio through NetworkManager
type NMCLI struct {
	Interface string
	Run       Runner
}

// NewNMCLI returns a radio for the named wireless interface
func NewNMCLI(iface string) *NMCLI {
	return &NMCLI{
		Interface: iface,
		Run:       Exec,
	}
}

// Associate powers the radio and joins the network
func (n *NMCLI) Associate(ctx context.Context, ssid, password string) error {
	err := n.nmcli(ctx, "radio", "wifi", "on")
	if err != nil {
		return err
	}

	args := []string{"device", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	if n.Interface != "" {
		args = append(args, "ifname", n.Interface)
	}

	return n.nmcli(ctx, args...)
}

// Teardown powers the radio off
func (n *NMCLI) Teardown() error {
	return n.nmcli(context.Background(), "radio", "wifi", "off")
}

func (n *NMCLI) nmcli(ctx context.Context, args ...string) error {
	out, err := n.Run(ctx, "nmcli", args...)
	if err != nil {
		return errors.Wrapf(err, "nmcli %s: %s", args[0], strings.TrimSpace(string(out)))
	}
	return nil
}

package mobilesync

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strings"

	psnet "github.com/shirou/gopsutil/v3/net"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	minPort   = 1025
	maxPort   = 65534
	minQRSize = 256
)

// Bootstrap is what a caller needs to show the mobile user: the URI the
// QR code encodes, the bound port and the QR image as a data URI.
type Bootstrap struct {
	SessionID string `json:"sessionId"`
	URI       string `json:"uri"`
	Port      int    `json:"port"`
	QR        string `json:"qr"`
}

// RandomPort returns a port drawn uniformly from [1025, 65534].
func RandomPort() int {
	return minPort + rand.IntN(maxPort-minPort+1)
}

// ResolveHost returns override when set, otherwise the first IPv4 address
// of an interface that is up and not a loopback.
func ResolveHost(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	ifaces, err := psnet.Interfaces()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") {
			continue
		}
		for _, addr := range iface.Addrs {
			if ip := parseIPv4(addr.Addr); ip != "" {
				return ip, nil
			}
		}
	}
	return "", errors.New("no non-loopback IPv4 address found")
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}

// parseIPv4 accepts "a.b.c.d" or "a.b.c.d/nn".
func parseIPv4(s string) string {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil || ip.IsLoopback() {
		return ""
	}
	return ip.To4().String()
}

// SessionURI is the literal string the QR code encodes.
func SessionURI(host string, port int) string {
	return fmt.Sprintf("ws://%s:%d", host, port)
}

// EncodeQR renders content as a PNG QR code and returns it as a data URI.
// Sizes below 256 pixels are raised to 256.
func EncodeQR(content string, size int) (string, error) {
	if size < minQRSize {
		size = minQRSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

package comport

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Regular expressions for different types of serial devices
var devicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
}

// ListPorts returns the serial port identifiers available on the system,
// sorted. go.bug.st/serial is asked first; on failure /dev is scanned.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil || len(ports) == 0 {
		scanned, scanErr := scanDevDir("/dev")
		if scanErr != nil {
			if err != nil {
				return nil, err
			}
			return nil, scanErr
		}
		ports = scanned
	}

	sort.Strings(ports)
	return ports, nil
}

// scanDevDir lists character devices in dir whose names look like serial ports
func scanDevDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		if !isSerialDeviceName(entry.Name()) {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}
	sort.Strings(ports)
	return ports, nil
}

func isSerialDeviceName(name string) bool {
	for _, pattern := range devicePatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// PortInfo describes one serial port
type PortInfo struct {
	Name         string
	Path         string
	Description  string
	IsUSB        bool
	VendorID     string
	ProductID    string
	SerialNumber string
	Product      string
}

// detailedPorts is swapped in tests
var detailedPorts = enumerator.GetDetailedPortsList

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}

	name := filepath.Base(portPath)
	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Description: getPortDescription(name),
	}

	enrichUSBInfo(info)
	return info, nil
}

// ListPortInfo returns PortInfo for every port ListPorts finds.
func ListPortInfo() ([]*PortInfo, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}

	infos := make([]*PortInfo, 0, len(ports))
	for _, p := range ports {
		info := &PortInfo{
			Name:        filepath.Base(p),
			Path:        p,
			Description: getPortDescription(filepath.Base(p)),
		}
		infos = append(infos, info)
	}

	details, err := detailedPorts()
	if err == nil {
		for _, info := range infos {
			applyDetails(info, details)
		}
	}
	return infos, nil
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	case strings.HasPrefix(strings.ToUpper(name), "COM"):
		return "COM Port"
	default:
		return "Serial Port"
	}
}

// enrichUSBInfo fills the USB fields from the platform enumerator
func enrichUSBInfo(info *PortInfo) {
	details, err := detailedPorts()
	if err != nil {
		return
	}
	applyDetails(info, details)
}

func applyDetails(info *PortInfo, details []*enumerator.PortDetails) {
	for _, d := range details {
		if d == nil || (d.Name != info.Path && filepath.Base(d.Name) != info.Name) {
			continue
		}
		info.IsUSB = d.IsUSB
		if !d.IsUSB {
			return
		}
		info.VendorID = d.VID
		info.ProductID = d.PID
		info.SerialNumber = d.SerialNumber
		info.Product = d.Product
		if d.Product != "" {
			info.Description = d.Product
		}
		return
	}
}

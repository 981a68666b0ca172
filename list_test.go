package comport

import (
	"errors"
	"os"
	"testing"

	"go.bug.st/serial/enumerator"
)

func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Skipf("port enumeration unavailable: %v", err)
	}

	for _, port := range ports {
		if port == "" {
			t.Error("ListPorts returned an empty name")
		}
	}

	// Check that ports are sorted
	for i := 1; i < len(ports); i++ {
		if ports[i-1] > ports[i] {
			t.Errorf("Ports are not sorted: %s > %s", ports[i-1], ports[i])
		}
	}
}

func TestScanDevDir(t *testing.T) {
	ports, err := scanDevDir("/dev")
	if err != nil {
		t.Fatalf("scanDevDir failed: %v", err)
	}
	for _, port := range ports {
		if !isCharacterDevice(port) {
			t.Errorf("Port is not a character device: %s", port)
		}
	}

	// Regular files never qualify, even with a serial-looking name
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/ttyUSB0", nil, 0o600); err != nil {
		t.Fatal(err)
	}
	ports, err = scanDevDir(dir)
	if err != nil {
		t.Fatalf("scanDevDir failed: %v", err)
	}
	if len(ports) != 0 {
		t.Errorf("Expected no ports in %s, got %v", dir, ports)
	}

	if _, err := scanDevDir(dir + "/missing"); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestIsCharacterDevice(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/dev/null", true},
		{"/dev/zero", true},
		{"/tmp", false},         // Directory, not character device
		{"/nonexistent", false}, // Doesn't exist
	}

	for _, test := range tests {
		result := isCharacterDevice(test.path)
		if result != test.expected {
			t.Errorf("isCharacterDevice(%s) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestGetPortDescription(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"ttyUSB0", "USB Serial Port"},
		{"ttyACM0", "USB CDC/ACM Device"},
		{"ttyS0", "Standard Serial Port"},
		{"ttyAMA0", "ARM Serial Port"},
		{"ttymxc0", "i.MX Serial Port"},
		{"ttyO0", "OMAP Serial Port"},
		{"ttySAC0", "Samsung Serial Port"},
		{"ttyTHS0", "Tegra Serial Port"},
		{"COM3", "COM Port"},
		{"unknown", "Serial Port"},
	}

	for _, test := range tests {
		result := getPortDescription(test.name)
		if result != test.expected {
			t.Errorf("getPortDescription(%s) = %s, expected %s", test.name, result, test.expected)
		}
	}
}

func TestIsSerialDeviceName(t *testing.T) {
	testDevices := []struct {
		name        string
		shouldMatch bool
	}{
		{"ttyUSB0", true},
		{"ttyUSB1", true},
		{"ttyACM0", true},
		{"ttyS0", true},
		{"ttyAMA0", true},
		{"tty1", false},    // Virtual terminal
		{"tty2", false},    // Virtual terminal
		{"console", false}, // Console
		{"ptmx", false},    // Pseudo-terminal multiplexer
		{"ptyp0", false},   // Pseudo-terminal
		{"random", false},  // Not a serial device
		{"urandom", false}, // Not a serial device
	}

	for _, device := range testDevices {
		if got := isSerialDeviceName(device.name); got != device.shouldMatch {
			t.Errorf("isSerialDeviceName(%s) = %v, want %v", device.name, got, device.shouldMatch)
		}
	}
}

func TestGetPortInfo(t *testing.T) {
	restore := detailedPorts
	defer func() { detailedPorts = restore }()

	detailedPorts = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/zero", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "A10K3X", Product: "FT232R USB UART"},
			{Name: "/dev/null", IsUSB: false},
		}, nil
	}

	// /dev/null is always a character device
	info, err := GetPortInfo("/dev/null")
	if err != nil {
		t.Fatalf("GetPortInfo failed for /dev/null: %v", err)
	}
	if info.Name != "null" || info.Path != "/dev/null" {
		t.Errorf("Unexpected name/path: %s %s", info.Name, info.Path)
	}
	if info.Description == "" {
		t.Error("Description should not be empty")
	}
	if info.IsUSB || info.VendorID != "" {
		t.Errorf("Expected no USB info, got %+v", info)
	}

	info, err = GetPortInfo("/dev/zero")
	if err != nil {
		t.Fatalf("GetPortInfo failed for /dev/zero: %v", err)
	}
	if !info.IsUSB || info.VendorID != "0403" || info.ProductID != "6001" || info.SerialNumber != "A10K3X" {
		t.Errorf("USB details not applied: %+v", info)
	}
	if info.Description != "FT232R USB UART" {
		t.Errorf("Description = %q, want product name", info.Description)
	}

	_, err = GetPortInfo("/dev/nonexistent")
	if err != ErrDeviceNotFound {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestGetPortInfoWithoutEnumerator(t *testing.T) {
	restore := detailedPorts
	defer func() { detailedPorts = restore }()

	detailedPorts = func() ([]*enumerator.PortDetails, error) {
		return nil, errors.New("enumeration not supported")
	}

	info, err := GetPortInfo("/dev/null")
	if err != nil {
		t.Fatalf("GetPortInfo failed: %v", err)
	}
	if info.IsUSB {
		t.Error("IsUSB set without enumerator data")
	}
}

// BenchmarkListPorts benchmarks the ListPorts function
func BenchmarkListPorts(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := ListPorts(); err != nil {
			b.Skipf("ListPorts failed: %v", err)
		}
	}
}

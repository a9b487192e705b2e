package session

import (
	"regexp"
	"strings"
)

const (
	VendorCisco    = "Cisco"
	VendorJuniper  = "Juniper"
	VendorHP       = "HP"
	VendorHuawei   = "Huawei"
	VendorMikroTik = "MikroTik"
	VendorUbiquiti = "Ubiquiti"
)

// vendorPatterns are matched case insensitively against show version output, first match wins.
var vendorPatterns = []struct {
	vendor   string
	patterns []string
}{
	{VendorCisco, []string{"Cisco", "IOS", "NX-OS", "IOS-XE", "IOS-XR"}},
	{VendorJuniper, []string{"Juniper", "JUNOS"}},
	{VendorHP, []string{"HP ", "HPE ", "ProCurve", "Aruba"}},
	{VendorHuawei, []string{"Huawei", "VRP"}},
	{VendorMikroTik, []string{"MikroTik", "RouterOS"}},
	{VendorUbiquiti, []string{"Ubiquiti", "EdgeOS"}},
}

var hostnamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^Hostname:\s*(\S+)`),
	regexp.MustCompile(`(?m)^System Name\s*:\s*(\S+)`),
	regexp.MustCompile(`(?m)^sysname\s+(\S+)`),
	regexp.MustCompile(`(?m)^identity:\s*(\S+)`),
	regexp.MustCompile(`(?m)^(\S+) uptime is`),
}

var modelPattern = regexp.MustCompile(`(?m)^Model:\s*(\S+)`)

// Identity is what a show version output reveals about a device.
type Identity struct {
	Vendor    string
	Hostname  string
	Model     string
	OSVersion string
}

// Identify parses show version output. Fields that cannot be determined are left empty.
func Identify(output string) Identity {
	id := Identity{
		Vendor:   IdentifyVendor(output),
		Hostname: parseHostname(output),
	}

	if m := modelPattern.FindStringSubmatch(output); m != nil {
		id.Model = m[1]
	}

	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)

		if id.Vendor == VendorCisco && id.Model == "" &&
			strings.Contains(lower, "cisco") && (strings.Contains(lower, "bytes") || strings.Contains(lower, "processor")) {
			if parts := strings.Fields(line); len(parts) > 1 {
				id.Model = parts[1]
			}
		}

		if id.OSVersion == "" && strings.Contains(lower, "version") {
			id.OSVersion = strings.TrimSpace(line)
		}
	}

	return id
}

// IdentifyVendor returns the vendor name, empty when no pattern matches.
func IdentifyVendor(output string) string {
	lower := strings.ToLower(output)

	for _, vp := range vendorPatterns {
		for _, p := range vp.patterns {
			if strings.Contains(lower, strings.ToLower(p)) {
				return vp.vendor
			}
		}
	}

	return ""
}

func parseHostname(output string) string {
	for _, re := range hostnamePatterns {
		if m := re.FindStringSubmatch(output); m != nil {
			return m[1]
		}
	}

	return ""
}

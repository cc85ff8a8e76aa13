// Package bluez talks to the BlueZ daemon over D-Bus to listen for and open
// RFCOMM connections of the clipsync service.
//
// Both directions use BlueZ's external profile API: the service registers an
// org.bluez.Profile1 object and BlueZ hands over connected socket file
// descriptors through NewConnection.
package bluez

import (
	"errors"
	"fmt"
	"net"
	"strings"

	dbus "github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

// ServiceUUID identifies the clipsync RFCOMM service. Every installation,
// on every platform, must use the same value to interoperate.
var ServiceUUID = uuid.MustParse("8ce255c0-200a-11e0-ac64-0800200c9a66")

// ServiceName is the SDP service name registered with the listener.
const ServiceName = "ClipSync"

// DefaultAdapter is the adapter used when none is configured.
const DefaultAdapter = "hci0"

// ErrUnsupported is returned where BlueZ is not available.
var ErrUnsupported = errors.New("bluez: bluetooth is not supported on this platform")

const (
	bluezService        = "org.bluez"
	profileIface        = "org.bluez.Profile1"
	profileManagerIface = "org.bluez.ProfileManager1"
	deviceIface         = "org.bluez.Device1"
	adapterIface        = "org.bluez.Adapter1"
	objManagerIface     = "org.freedesktop.DBus.ObjectManager"
	propsIface          = "org.freedesktop.DBus.Properties"
)

// Options configures a Radio.
type Options struct {
	// Adapter is the controller name, e.g. "hci0".
	Adapter string
	// Channel pins the RFCOMM channel of the listener. 0 lets BlueZ pick.
	Channel uint16
}

// Device is a remote device known to the adapter.
type Device struct {
	Address   string `json:"address"`
	Name      string `json:"name,omitempty"`
	Alias     string `json:"alias,omitempty"`
	Paired    bool   `json:"paired"`
	Connected bool   `json:"connected"`
	// HasService is true when the device advertises ServiceUUID.
	HasService bool `json:"has_service"`
}

// DisplayName returns the alias, falling back to the name and the address.
func (d Device) DisplayName() string {
	switch {
	case d.Alias != "":
		return d.Alias
	case d.Name != "":
		return d.Name
	default:
		return d.Address
	}
}

// AdapterPath returns the object path of an adapter.
func AdapterPath(adapter string) dbus.ObjectPath {
	if adapter == "" {
		adapter = DefaultAdapter
	}
	return dbus.ObjectPath("/org/bluez/" + adapter)
}

// DevicePath converts a MAC address into the BlueZ object path of the
// device under adapter.
func DevicePath(adapter, addr string) (dbus.ObjectPath, error) {
	hw, err := net.ParseMAC(addr)
	if err != nil || len(hw) != 6 {
		return "", fmt.Errorf("bluez: invalid device address %q", addr)
	}
	mac := strings.ToUpper(strings.ReplaceAll(hw.String(), ":", "_"))
	return AdapterPath(adapter) + "/dev_" + dbus.ObjectPath(mac), nil
}

// AddressFromPath extracts the MAC address from a device object path.
// It returns "" for paths that do not name a device.
func AddressFromPath(p dbus.ObjectPath) string {
	s := string(p)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return ""
	}
	return strings.ReplaceAll(s[idx+5:], "_", ":")
}

// deviceFromProps builds a Device from the org.bluez.Device1 properties.
func deviceFromProps(path dbus.ObjectPath, props map[string]dbus.Variant) Device {
	d := Device{Address: AddressFromPath(path)}
	if v, ok := props["Address"].Value().(string); ok && v != "" {
		d.Address = v
	}
	d.Name, _ = props["Name"].Value().(string)
	d.Alias, _ = props["Alias"].Value().(string)
	d.Paired, _ = props["Paired"].Value().(bool)
	d.Connected, _ = props["Connected"].Value().(bool)
	if bonded, ok := props["Bonded"].Value().(bool); ok && bonded {
		d.Paired = true
	}
	uuids, _ := props["UUIDs"].Value().([]string)
	want := ServiceUUID.String()
	for _, u := range uuids {
		if strings.EqualFold(u, want) {
			d.HasService = true
			break
		}
	}
	return d
}

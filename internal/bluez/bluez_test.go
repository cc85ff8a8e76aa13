package bluez

import (
	"testing"

	dbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceIdentity(t *testing.T) {
	assert.Equal(t, "8ce255c0-200a-11e0-ac64-0800200c9a66", ServiceUUID.String())
	assert.Equal(t, "ClipSync", ServiceName)
}

func TestDevicePath(t *testing.T) {
	p, err := DevicePath("", "aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	assert.Equal(t, dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_01"), p)

	p, err = DevicePath("hci1", "AA-BB-CC-DD-EE-02")
	require.NoError(t, err)
	assert.Equal(t, dbus.ObjectPath("/org/bluez/hci1/dev_AA_BB_CC_DD_EE_02"), p)

	for _, bad := range []string{"", "phone", "AA:BB:CC:DD:EE", "00:00:5e:00:53:00:00:01"} {
		_, err := DevicePath("hci0", bad)
		assert.Error(t, err, bad)
	}
}

func TestAddressFromPath(t *testing.T) {
	assert.Equal(t, "AA:BB:CC:DD:EE:01", AddressFromPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_01"))
	assert.Empty(t, AddressFromPath("/org/bluez/hci0"))
}

func TestDeviceFromProps(t *testing.T) {
	path := dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_01")

	d := deviceFromProps(path, map[string]dbus.Variant{
		"Name":   dbus.MakeVariant("Pixel 8"),
		"Paired": dbus.MakeVariant(true),
		"UUIDs":  dbus.MakeVariant([]string{"0000110a-0000-1000-8000-00805f9b34fb", "8CE255C0-200A-11E0-AC64-0800200C9A66"}),
	})
	assert.Equal(t, "AA:BB:CC:DD:EE:01", d.Address)
	assert.Equal(t, "Pixel 8", d.DisplayName())
	assert.True(t, d.Paired)
	assert.True(t, d.HasService)

	d = deviceFromProps(path, map[string]dbus.Variant{
		"Address": dbus.MakeVariant("AA:BB:CC:DD:EE:01"),
		"Alias":   dbus.MakeVariant("Work phone"),
		"Bonded":  dbus.MakeVariant(true),
	})
	assert.Equal(t, "Work phone", d.DisplayName())
	assert.True(t, d.Paired)
	assert.False(t, d.HasService)
	assert.False(t, d.Connected)
}

package aqara

import (
	"context"
	"fmt"
	"strings"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

const (
	PropModel        = "persist.sys.model"
	PropName         = "ro.sys.name"
	PropMac          = "persist.sys.miio_mac"
	PropFirmware     = "ro.sys.fw_ver"
	PropManufacturer = "ro.sys.manufacturer"
	PropProduct      = "ro.sys.product"
	PropRtspUrl      = "sys.camera_rtsp_url"
	PropPtzMoving    = "sys.camera_ptz_moving"
	PropRtspAuth     = "persist.app.rtsp_auth"

	DefaultAnchorKey = PropModel
)

var CapabilityFlags = []string{
	"camera_avdt_motion_active",
	"camera_avdt_voice_active",
	"camera_ai_pet_active",
	"camera_ai_face_active",
	"camera_ai_gesture_active",
	"camera_ai_figure_active",
}

type DeviceInfo struct {
	Name         string `json:"name"`
	Model        string `json:"model"`
	Mac          string `json:"mac"`
	Firmware     string `json:"firmware"`
	Manufacturer string `json:"manufacturer"`
	Product      string `json:"product"`
}

func (c *Client) GetProperty(ctx context.Context, key string) string {
	return c.shell.GetProperty(ctx, key)
}

func (c *Client) SetProperty(ctx context.Context, key string, value string) {
	c.shell.SetProperty(ctx, key, value)
}

func (c *Client) FirmwareVersion(ctx context.Context) string {
	return c.shell.GetProperty(ctx, PropFirmware)
}

func (c *Client) DeviceInfo(ctx context.Context) *DeviceInfo {
	info := &DeviceInfo{
		Model:        c.shell.GetProperty(ctx, PropModel),
		Mac:          c.shell.GetProperty(ctx, PropMac),
		Firmware:     c.shell.GetProperty(ctx, PropFirmware),
		Manufacturer: c.shell.GetProperty(ctx, PropManufacturer),
		Product:      c.shell.GetProperty(ctx, PropProduct),
	}
	info.Name = displayName(c.shell.GetProperty(ctx, PropName), info.Mac)
	logger.SDebug("device info read",
		zap.String("host", c.Host()),
		zap.Reflect("info", info))
	return info
}

func displayName(name string, mac string) string {
	tail := mac
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	tail = strings.ToUpper(strings.ReplaceAll(tail, ":", ""))
	return fmt.Sprintf("%s-%s", name, tail)
}

// RefreshProperties dumps all properties and replaces the cached map in
// one step. The dump is repeated once when the anchor key is missing,
// which is how a partial read shows up.
func (c *Client) RefreshProperties(ctx context.Context) map[string]string {
	var props map[string]string
	err := retry.Do(func() error {
		props = c.shell.DumpProperties(ctx)
		if _, ok := props[c.options.anchorKey]; !ok {
			return fmt.Errorf("anchor property %s missing from dump", c.options.anchorKey)
		}
		return nil
	},
		retry.Attempts(c.options.dumpAttempts),
		retry.Delay(0),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		logger.SWarn("property dump incomplete",
			zap.String("host", c.Host()),
			zap.Int("count", len(props)),
			zap.Error(err))
	}
	if props == nil {
		props = map[string]string{}
	}

	c.propsMu.Lock()
	c.properties = props
	c.propsMu.Unlock()
	return props
}

// Properties returns the last dumped properties.
func (c *Client) Properties() map[string]string {
	c.propsMu.RLock()
	defer c.propsMu.RUnlock()
	cp := make(map[string]string, len(c.properties))
	for k, v := range c.properties {
		cp[k] = v
	}
	return cp
}

// Capabilities reports which AI/detection features the dump flags as
// enabled. The flag may be namespaced, e.g. persist.app.camera_ai_pet_active.
func Capabilities(props map[string]string) map[string]bool {
	caps := make(map[string]bool, len(CapabilityFlags))
	for _, flag := range CapabilityFlags {
		caps[flag] = false
	}
	for key, value := range props {
		name := key[strings.LastIndex(key, ".")+1:]
		if _, known := caps[name]; known && value == "true" {
			caps[name] = true
		}
	}
	return caps
}

func (c *Client) FileExists(ctx context.Context, path string) bool {
	out := c.shell.Run(ctx, fmt.Sprintf("[ -e %s ] && echo yes || echo no", path))
	return strings.TrimSpace(out) == "yes"
}

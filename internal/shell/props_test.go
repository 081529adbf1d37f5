package shell

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
)

const capturedDump = "[persist.app.camera_ai_pet_active]: [true]\r\n" +
	"[persist.sys.miio_mac]: [54:ef:44:1a:2b:3c]\r\n" +
	"[persist.sys.model]: [lumi.camera.gwpagl01]\r\n" +
	"[ro.sys.fw_ver]: [4.3.4_0011]\r\n" +
	"[ro.sys.name]: [Camera Hub G3]\r\n" +
	"[sys.camera_rtsp_url]: [{\"1080p\":\"rtsp:\\/\\/u:p@192.168.1.20:8554\\/ch1\",\"720p\":\"rtsp:\\/\\/u:p@192...]\r\n" +
	"[sys.camera_ptz_moving]: [false]\r\n"

func TestParseProperties(t *testing.T) {
	props := ParseProperties(strings.ReplaceAll(capturedDump, "\r\n", ""))

	want := map[string]string{
		"persist.app.camera_ai_pet_active": "true",
		"persist.sys.miio_mac":             "54:ef:44:1a:2b:3c",
		"persist.sys.model":                "lumi.camera.gwpagl01",
		"ro.sys.fw_ver":                    "4.3.4_0011",
		"ro.sys.name":                      "Camera Hub G3",
		"sys.camera_ptz_moving":            "false",
	}
	if !reflect.DeepEqual(props, want) {
		t.Errorf("ParseProperties = %v, want %v", props, want)
	}
	for k, v := range props {
		if strings.HasSuffix(v, truncationMarker) {
			t.Errorf("truncated value kept for %s: %q", k, v)
		}
	}
}

func TestParseProperties_Edges(t *testing.T) {
	cases := []struct {
		name string
		blob string
		want map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"garbage", "sh: agetprop: not found", map[string]string{}},
		{"unpaired tail", "[a]: [1][b]", map[string]string{"a": "1"}},
		{"empty value", "[a]: []", map[string]string{"a": ""}},
		{"empty key", "[]: [x][b]: [2]", map[string]string{"b": "2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseProperties(tc.blob); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseProperties(%q) = %v, want %v", tc.blob, got, tc.want)
			}
		})
	}
}

type propDevice struct {
	mu    sync.Mutex
	props map[string]string
}

func (p *propDevice) reply(getCmd, setCmd string) func(string) string {
	return func(cmd string) string {
		p.mu.Lock()
		defer p.mu.Unlock()
		switch {
		case cmd == getCmd:
			var sb strings.Builder
			for _, k := range []string{"ro.sys.fw_ver", "ro.sys.name", "sys.camera_ptz_moving"} {
				if v, ok := p.props[k]; ok {
					sb.WriteString("[" + k + "]: [" + v + "]\r\n")
				}
			}
			return strings.TrimSuffix(sb.String(), "\r\n")
		case strings.HasPrefix(cmd, getCmd+" "):
			return p.props[strings.TrimPrefix(cmd, getCmd+" ")]
		case strings.HasPrefix(cmd, setCmd+" "):
			parts := strings.SplitN(strings.TrimPrefix(cmd, setCmd+" "), " ", 2)
			if len(parts) == 2 {
				p.props[parts[0]] = parts[1]
			}
		}
		return ""
	}
}

func TestProperties_GetSetDump(t *testing.T) {
	for _, dialect := range []Dialect{StandardDialect, RootAdminDialect} {
		t.Run(dialect.Kind.String(), func(t *testing.T) {
			getCmd := strings.Fields(dialect.GetPropCommand)[0]
			setCmd := strings.Fields(dialect.SetPropCommand)[0]
			dev := &propDevice{props: map[string]string{
				"ro.sys.fw_ver": "4.3.4_0011",
				"ro.sys.name":   "Camera Hub G3",
			}}
			d := newFakeDevice(t, dialect, dev.reply(getCmd, setCmd))
			s := openFake(t, d)
			ctx := context.Background()

			if got := s.GetProperty(ctx, "ro.sys.fw_ver"); got != "4.3.4_0011" {
				t.Errorf("GetProperty = %q", got)
			}
			if got := s.GetProperty(ctx, "does.not.exist"); got != "" {
				t.Errorf("GetProperty(missing) = %q", got)
			}

			s.SetProperty(ctx, "sys.camera_ptz_moving", "true")
			// Framing must survive the double prompt of a write.
			if got := s.GetProperty(ctx, "sys.camera_ptz_moving"); got != "true" {
				t.Errorf("GetProperty after set = %q", got)
			}

			first := s.DumpProperties(ctx)
			second := s.DumpProperties(ctx)
			if !reflect.DeepEqual(first, second) {
				t.Errorf("dumps differ: %v vs %v", first, second)
			}
			if first["ro.sys.name"] != "Camera Hub G3" || first["sys.camera_ptz_moving"] != "true" {
				t.Errorf("dump = %v", first)
			}
		})
	}
}

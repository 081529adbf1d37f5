package configs

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"

	"gopkg.in/yaml.v3"
)

var globalConfigs *Configs

type Configs struct {
	Sidecar      HttpConfigs         `json:"sidecar,omitempty" yaml:"sidecar,omitempty"`
	Logger       LoggerConfigs       `json:"logger,omitempty" yaml:"logger,omitempty"`
	Provisioning ProvisioningConfigs `json:"provisioning,omitempty" yaml:"provisioning,omitempty"`
	Refresh      RefreshConfigs      `json:"refresh,omitempty" yaml:"refresh,omitempty"`
	Cameras      []CameraConfigs     `json:"cameras,omitempty" yaml:"cameras,omitempty"`
}

func (c Configs) String() string {
	configBytes, _ := json.Marshal(c)
	return string(configBytes)
}

func Init(ctx context.Context) {
	configs, err := readConfig()
	if err != nil {
		log.Fatal(err)
		return
	}
	globalConfigs = configs
}

func Get() *Configs {
	return globalConfigs
}

type HttpConfigs struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`
}

type LoggerConfigs struct {
	Level    string `json:"level,omitempty" yaml:"level,omitempty"`
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
}

type ProvisioningConfigs struct {
	// Printf template receiving the helper's relative path.
	UrlTemplate string `json:"urlTemplate,omitempty" yaml:"urlTemplate,omitempty"`
	BinDir      string `json:"binDir,omitempty" yaml:"binDir,omitempty"`
	ScriptPath  string `json:"scriptPath,omitempty" yaml:"scriptPath,omitempty"`
}

type RefreshConfigs struct {
	PropertiesInterval time.Duration `json:"propertiesInterval,omitempty" yaml:"propertiesInterval,omitempty"`
}

type CameraConfigs struct {
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	Host     string            `json:"host,omitempty" yaml:"host,omitempty"`
	Model    string            `json:"model,omitempty" yaml:"model,omitempty"`
	Stream   string            `json:"stream,omitempty" yaml:"stream,omitempty"`
	RtspAuth bool              `json:"rtspAuth,omitempty" yaml:"rtspAuth,omitempty"`
	Mqtt     EventStoreConfigs `json:"mqtt,omitempty" yaml:"mqtt,omitempty"`
}

type EventStoreConfigs struct {
	Host           string   `json:"host,omitempty" yaml:"host,omitempty"`
	Port           int      `json:"port,omitempty" yaml:"port,omitempty"`
	Name           string   `json:"name,omitempty" yaml:"name,omitempty"`
	Enabled        bool     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Username       string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password       string   `json:"password,omitempty" yaml:"password,omitempty"`
	TlsEnabled     bool     `json:"tlsEnabled,omitempty" yaml:"tlsEnabled,omitempty"`
	Topics         []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	KeepaliveTopic string   `json:"keepaliveTopic,omitempty" yaml:"keepaliveTopic,omitempty"`
}

func (c *EventStoreConfigs) HasAuth() bool {
	return len(c.Username) > 0 && len(c.Password) > 0
}

func (c *Configs) ApplyDefaults() {
	if c.Sidecar.Port == 0 {
		c.Sidecar.Port = DefaultSidecarPort
	}
	if len(c.Sidecar.Name) == 0 {
		c.Sidecar.Name = "aqara-sidecar"
	}
	if len(c.Provisioning.UrlTemplate) == 0 {
		c.Provisioning.UrlTemplate = DefaultProvisioningUrlTemplate
	}
	if len(c.Provisioning.BinDir) == 0 {
		c.Provisioning.BinDir = DefaultBinDir
	}
	if len(c.Provisioning.ScriptPath) == 0 {
		c.Provisioning.ScriptPath = DefaultScriptPath
	}
	if c.Refresh.PropertiesInterval <= 0 {
		c.Refresh.PropertiesInterval = DefaultPropertiesInterval
	}
	for i := range c.Cameras {
		cam := &c.Cameras[i]
		if len(cam.Name) == 0 {
			cam.Name = cam.Host
		}
		cam.Stream = strings.ToLower(cam.Stream)
		if len(cam.Stream) == 0 {
			cam.Stream = "main"
		}
		if len(cam.Mqtt.Host) == 0 {
			cam.Mqtt.Host = cam.Host
		}
		if cam.Mqtt.Port == 0 {
			cam.Mqtt.Port = DefaultMqttPort
		}
		if len(cam.Mqtt.Topics) == 0 {
			cam.Mqtt.Topics = []string{DefaultEventTopic}
		}
		if len(cam.Mqtt.KeepaliveTopic) == 0 {
			cam.Mqtt.KeepaliveTopic = DefaultKeepaliveTopic
		}
		if len(cam.Mqtt.Name) == 0 {
			cam.Mqtt.Name = cam.Name
		}
	}
}

func (c *Configs) Validate() error {
	seen := make(map[string]bool, len(c.Cameras))
	for _, cam := range c.Cameras {
		if len(cam.Host) == 0 {
			return custerror.FormatInvalidArgument("camera %q: missing host", cam.Name)
		}
		if seen[cam.Name] {
			return custerror.FormatAlreadyExists("camera %q: duplicated name", cam.Name)
		}
		seen[cam.Name] = true
		switch cam.Stream {
		case "main", "sub", "sub2":
		default:
			return custerror.FormatInvalidArgument("camera %q: unknown stream %q", cam.Name, cam.Stream)
		}
	}
	return nil
}

func readConfig() (*Configs, error) {
	path, err := getConfigFilePath()
	if err != nil {
		return nil, err
	}
	configFile, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	configs, err := parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	return configs, nil
}

func getConfigFilePath() (string, error) {
	path := os.Getenv(ENV_CONFIG_FILE_PATH)
	if len(path) == 0 {
		return "", custerror.FormatNotFound("%s not found, unable to read configurations", ENV_CONFIG_FILE_PATH)
	}
	return path, nil
}

func readConfigFile(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, custerror.FormatNotFound("readConfigFile: file not found")
		}
		return nil, custerror.FormatInternalError("readConfigFile: err = %s", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, custerror.FormatInternalError("readConfigFile: err = %s", err)
	}

	return contents, nil
}

func parseConfig(contents []byte) (*Configs, error) {
	configs := &Configs{}
	if jsonErr := json.Unmarshal(contents, configs); jsonErr != nil {
		configs = &Configs{}
		if yamlErr := yaml.Unmarshal(contents, configs); yamlErr != nil {
			return nil, custerror.FormatInvalidArgument("parseConfig: config parse JSON err = %s YAML err = %s", jsonErr, yamlErr)
		}
	}
	configs.ApplyDefaults()
	if err := configs.Validate(); err != nil {
		return nil, err
	}
	return configs, nil
}

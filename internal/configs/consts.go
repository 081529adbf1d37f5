package configs

import "time"

const ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

const (
	DefaultSidecarPort             = 5600
	DefaultProvisioningUrlTemplate = "http://master.dl.sourceforge.net/project/aqcn02/%s?viasf=1"
	DefaultBinDir                  = "/data/bin"
	DefaultScriptPath              = "/data/scripts/post_init.sh"
	DefaultPropertiesInterval      = 5 * time.Minute
	DefaultMqttPort                = 1883
	DefaultEventTopic              = "#"
	DefaultKeepaliveTopic          = "broker/ping"
)

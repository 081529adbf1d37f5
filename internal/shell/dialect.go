package shell

import (
	"strings"
	"time"
)

type DialectKind int

const (
	Standard DialectKind = iota
	RootAdmin
)

func (k DialectKind) String() string {
	switch k {
	case RootAdmin:
		return "root_admin"
	default:
		return "standard"
	}
}

// Dialect carries everything that differs between the two known shell
// conventions. Command templates take the property key (and value) as
// printf arguments.
type Dialect struct {
	Kind           DialectKind
	Login          string
	Password       string
	AskPassword    bool
	PromptSuffix   string
	CommandTimeout time.Duration
	ResetWorkdir   bool

	GetPropCommand string
	SetPropCommand string

	// FetchCommand receives the destination path and the source URL.
	FetchCommand string
	// ImmutableScripts marks generated boot scripts with chattr +i.
	ImmutableScripts bool
	// RtspRestartCommand stops the RTSP server so the device monitor
	// respawns it with the current auth setting.
	RtspRestartCommand string
}

const DefaultRtspRestartCommand = "killall rtsp_server"

var StandardDialect = Dialect{
	Kind:               Standard,
	Login:              "admin",
	PromptSuffix:       "# ",
	CommandTimeout:     10 * time.Second,
	GetPropCommand:     "getprop %s",
	SetPropCommand:     "setprop %s %s",
	FetchCommand:       "curl -s -k -L -o %s %s",
	ImmutableScripts:   true,
	RtspRestartCommand: DefaultRtspRestartCommand,
}

var RootAdminDialect = Dialect{
	Kind:               RootAdmin,
	Login:              "root",
	AskPassword:        true,
	PromptSuffix:       "/ # ",
	CommandTimeout:     3 * time.Second,
	ResetWorkdir:       true,
	GetPropCommand:     "agetprop %s",
	SetPropCommand:     "asetprop %s %s",
	FetchCommand:       "wget -q -O %s %s",
	RtspRestartCommand: DefaultRtspRestartCommand,
}

var rootAdminModels = []string{"g3"}

// DialectFor picks the dialect from the configured device model hint.
func DialectFor(modelHint string) Dialect {
	hint := strings.ToLower(modelHint)
	for _, m := range rootAdminModels {
		if strings.Contains(hint, m) {
			return RootAdminDialect
		}
	}
	return StandardDialect
}

func (d Dialect) framing() string {
	return "\r\n" + d.PromptSuffix
}

package shell

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"
	"go.uber.org/zap"
)

const truncationMarker = "..."

var propertyToken = regexp.MustCompile(`\[([^\[\]]*)\]`)

// GetProperty reads one property. Every failure degrades to "".
func (s *Session) GetProperty(ctx context.Context, key string) string {
	command := strings.TrimSpace(fmt.Sprintf(s.dialect.GetPropCommand, key))
	ret := s.Run(ctx, command)
	ret = strings.ReplaceAll(ret, "\r", "")
	ret = strings.ReplaceAll(ret, "\n", "")
	return ret
}

// SetProperty writes one property. The command is sent followed by an
// empty line and both resulting prompts are drained before returning so
// the next command starts on a clean frame. A write prints nothing, so
// the prompts are matched bare, without a preceding line break.
func (s *Session) SetProperty(ctx context.Context, key string, value string) {
	command := fmt.Sprintf(s.dialect.SetPropCommand, key, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.exchange(ctx, command+"\n\n", s.dialect.PromptSuffix, 2, s.dialect.CommandTimeout); err != nil {
		logger.SDebug("shell set property not acknowledged",
			zap.String("host", s.host),
			zap.String("key", key),
			zap.Error(err))
	}
}

// DumpProperties lists every property the device exposes. Missing keys
// mean "not read", never "empty".
func (s *Session) DumpProperties(ctx context.Context) map[string]string {
	return ParseProperties(s.GetProperty(ctx, ""))
}

// ParseProperties extracts `[key]: [value]` pairs from a property listing.
// Values cut short by the shell (ending in "...") are dropped and parsing
// stops at the first unpaired token.
func ParseProperties(blob string) map[string]string {
	props := make(map[string]string)
	tokens := propertyToken.FindAllStringSubmatch(blob, -1)
	for i := 0; i+1 < len(tokens); i += 2 {
		key, value := tokens[i][1], tokens[i+1][1]
		if len(key) == 0 || strings.HasSuffix(value, truncationMarker) {
			continue
		}
		props[key] = value
	}
	return props
}

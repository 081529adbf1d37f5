package aqara

import (
	"context"
	"strconv"
	"strings"
	"time"

	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/shell"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

type Tier int

const (
	Main Tier = iota
	Sub
	Sub2
)

func (t Tier) String() string {
	switch t {
	case Sub:
		return "sub"
	case Sub2:
		return "sub2"
	default:
		return "main"
	}
}

// ParseTier maps a configured stream name to a tier. Anything unknown is
// the main stream.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sub":
		return Sub
	case "sub2":
		return Sub2
	default:
		return Main
	}
}

var tierLabels = map[Tier][]string{
	Main: {"1080p", "1296p", "1520p"},
	Sub:  {"720p"},
	Sub2: {"360p"},
}

type StreamConfig struct {
	Tier         Tier   `json:"tier"`
	AuthRequired bool   `json:"authRequired"`
	Url          string `json:"url"`
}

// JSONExtractor turns the raw RTSP URL property into a JSON object text.
// Firmware revisions frame the property differently.
type JSONExtractor func(raw string) string

// DefaultJSONExtractor unescapes "\/" and keeps the first balanced object.
func DefaultJSONExtractor(raw string) string {
	obj, ok := extractObject(strings.ReplaceAll(raw, `\/`, "/"))
	if !ok {
		return ""
	}
	return obj
}

// extractObject returns the first balanced {...} in s, honouring quoted
// strings.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// minStreamJSONLength is the shortest text that can hold one label/URL pair.
const minStreamJSONLength = len(`{"360p":"rtsp://"}`)

// SelectStream picks the URL for a tier from the label map.
func SelectStream(tier Tier, urls map[string]string) (string, error) {
	labels, ok := tierLabels[tier]
	if !ok {
		labels = tierLabels[Main]
	}
	for _, label := range labels {
		if url := urls[label]; len(url) > 0 {
			return url, nil
		}
	}
	return "", custerror.Wrap(custerror.ErrStreamUnavailable,
		"no stream for tier %s among %d variants", tier, len(urls))
}

func (c *Client) readStreamUrls(ctx context.Context) string {
	return c.options.extractJSON(c.shell.GetProperty(ctx, PropRtspUrl))
}

// ResolveStream reads the RTSP URL map and picks the variant for tier.
// When the property is not populated yet the RTSP server is prepared and
// the property read once more.
func (c *Client) ResolveStream(ctx context.Context, tier Tier, authRequired bool) (string, error) {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	c.stream = StreamConfig{Tier: tier, AuthRequired: authRequired}

	body := c.readStreamUrls(ctx)
	if len(body) < minStreamJSONLength {
		logger.SDebug("rtsp url property not populated, preparing server",
			zap.String("host", c.Host()),
			zap.Int("length", len(body)))
		if err := c.PrepareRtsp(ctx, authRequired); err != nil {
			return "", custerror.Wrap(custerror.ErrStreamUnavailable, "%s", err)
		}
		body = c.readStreamUrls(ctx)
	}
	if len(body) < minStreamJSONLength {
		return "", custerror.Wrap(custerror.ErrStreamUnavailable, "rtsp url property is empty")
	}

	urls, err := parseStreamUrls(body)
	if err != nil {
		logger.SDebug("rtsp url property is not valid JSON",
			zap.String("host", c.Host()),
			zap.String("body", body),
			zap.Error(err))
		return "", custerror.Wrap(custerror.ErrStreamUnavailable, "parse rtsp urls: %s", err)
	}

	url, err := SelectStream(tier, urls)
	if err != nil {
		return "", err
	}
	c.stream.Url = url
	logger.SDebug("stream resolved",
		zap.String("host", c.Host()),
		zap.String("tier", tier.String()))
	return url, nil
}

// parseStreamUrls keeps the string members of the URL object. Firmware
// may add other fields next to the resolution labels.
func parseStreamUrls(body string) (map[string]string, error) {
	var raw map[string]interface{}
	if err := sonic.UnmarshalString(body, &raw); err != nil {
		return nil, err
	}
	urls := make(map[string]string, len(raw))
	for label, v := range raw {
		if url, ok := v.(string); ok {
			urls[label] = url
		}
	}
	return urls, nil
}

// PrepareRtsp writes the RTSP authentication setting and restarts the RTSP
// server with the dialect's restart command. The device monitor respawns
// the server, which reads persist.app.rtsp_auth on start.
func (c *Client) PrepareRtsp(ctx context.Context, authRequired bool) error {
	c.shell.SetProperty(ctx, PropRtspAuth, strconv.FormatBool(authRequired))
	restart := c.Dialect().RtspRestartCommand
	if len(restart) == 0 {
		restart = shell.DefaultRtspRestartCommand
	}
	c.shell.Run(ctx, restart)

	if c.options.rtspSettle <= 0 {
		return nil
	}
	t := time.NewTimer(c.options.rtspSettle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Stream returns the configuration of the last resolution.
func (c *Client) Stream() StreamConfig {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	return c.stream
}
